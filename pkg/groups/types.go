package groups

import (
	"context"
	"fmt"
	"strings"
)

// PrimaryConfig locates the primary group of a user
type PrimaryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	UsesKey       bool   `yaml:"uses_key"`
	Table         string `yaml:"table"`
	UserIDColumn  string `yaml:"user_id_column"`
	GroupIDColumn string `yaml:"group_id_column"`
	KeyColumn     string `yaml:"key_column"`
	KeyName       string `yaml:"key_name"`
}

// SecondaryConfig locates the secondary groups of a user
type SecondaryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	StorageMethod StorageMethod `yaml:"storage_method"`
	Table         string        `yaml:"table"`
	UserIDColumn  string        `yaml:"user_id_column"`
	GroupIDColumn string        `yaml:"group_id_column"`
	KeyColumn     string        `yaml:"key_column"`
	KeyName       string        `yaml:"key_name"`
	Delimiter     string        `yaml:"delimiter"`
}

// StorageMethod is the schema shape holding secondary group memberships
type StorageMethod string

const (
	// StorageSingle is one row per user with a delimited list of group ids
	StorageSingle StorageMethod = "single"
	// StorageKey is StorageSingle in a key/value table
	StorageKey StorageMethod = "key"
	// StorageJunction is one row per membership
	StorageJunction StorageMethod = "junction"
	// StorageMultiple is StorageJunction in a key/value table
	StorageMultiple StorageMethod = "multiple"
)

// ParseStorageMethod validates a configured storage method
func ParseStorageMethod(s string) (StorageMethod, error) {
	method := StorageMethod(strings.ToLower(strings.TrimSpace(s)))
	switch method {
	case StorageSingle, StorageKey, StorageJunction, StorageMultiple:
		return method, nil
	}
	return "", fmt.Errorf("unknown secondary group storage method %q", s)
}

// Delimited reports whether memberships are packed into one column
func (m StorageMethod) Delimited() bool {
	return m == StorageSingle || m == StorageKey
}

// Keyed reports whether rows are filtered by a key column
func (m StorageMethod) Keyed() bool {
	return m == StorageKey || m == StorageMultiple
}

// Resolver answers group membership questions for web application users.
//
// Every method except SecondaryGroupsOf logs failures and returns an empty
// result. Returned slices are never nil.
type Resolver interface {
	PrimaryGroupOf(ctx context.Context, userID string) string
	SecondaryGroupsOf(ctx context.Context, userID string) ([]string, error)
	UsersOfGroupPrimary(ctx context.Context, groupID string) []string
	UsersOfGroupSecondary(ctx context.Context, groupID string) []string
	UsersOfGroup(ctx context.Context, groupID string) []string
}

// Scope selects which memberships UsersOf reads
type Scope int

const (
	ScopeBoth Scope = iota
	ScopePrimary
	ScopeSecondary
)

// ParseScope reads a scope name. An empty name means ScopeBoth.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both", "all":
		return ScopeBoth, nil
	case "primary":
		return ScopePrimary, nil
	case "secondary":
		return ScopeSecondary, nil
	}
	return ScopeBoth, fmt.Errorf("unknown group scope %q", s)
}

func (s Scope) String() string {
	switch s {
	case ScopePrimary:
		return "primary"
	case ScopeSecondary:
		return "secondary"
	}
	return "both"
}

// UsersOf returns the members of groupID within scope
func UsersOf(ctx context.Context, r Resolver, groupID string, scope Scope) []string {
	switch scope {
	case ScopePrimary:
		return r.UsersOfGroupPrimary(ctx, groupID)
	case ScopeSecondary:
		return r.UsersOfGroupSecondary(ctx, groupID)
	}
	return r.UsersOfGroup(ctx, groupID)
}
