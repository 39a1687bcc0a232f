package groups

import (
	"context"
	"strings"

	"github.com/platinummonkey/communitybridge/pkg/ids"
)

// JunctionTableResolver reads secondary groups stored one membership per row.
// Used for the "junction" and "multiple" storage methods.
type JunctionTableResolver struct {
	base
}

// SecondaryGroupsOf returns the group of every membership row for userID.
// Errors are returned as *storage.Error.
func (r *JunctionTableResolver) SecondaryGroupsOf(ctx context.Context, userID string) ([]string, error) {
	groupIDs := make([]string, 0)
	userID = strings.TrimSpace(userID)
	if !r.secondary.Enabled || userID == "" {
		return groupIDs, nil
	}

	where, args := r.secondaryWhere(r.secondary.UserIDColumn, userID)
	query := r.store.Dialect().Select(r.secondary.Table, []string{r.secondary.GroupIDColumn}, where...)

	const op = "secondary_groups_of"
	values, err := r.store.QueryStrings(ctx, op, query, args...)
	if err != nil {
		r.logFailure(op, r.secondary.Table, "user_id", userID, err)
		return groupIDs, err
	}
	for _, value := range values {
		groupIDs = ids.AppendClean(groupIDs, value)
	}
	return groupIDs, nil
}

// UsersOfGroupSecondary returns the users with a membership row for groupID
func (r *JunctionTableResolver) UsersOfGroupSecondary(ctx context.Context, groupID string) []string {
	users := make([]string, 0)
	groupID = strings.TrimSpace(groupID)
	if !r.secondary.Enabled || groupID == "" {
		return users
	}

	const op = "users_of_group_secondary"
	where, args := r.secondaryWhere(r.secondary.GroupIDColumn, groupID)
	query := r.store.Dialect().Select(r.secondary.Table, []string{r.secondary.UserIDColumn}, where...)

	values, err := r.store.QueryStrings(ctx, op, query, args...)
	if err != nil {
		r.logFailure(op, r.secondary.Table, "group_id", groupID, err)
		return users
	}
	for _, value := range values {
		users = ids.AppendClean(users, value)
	}
	return users
}

// UsersOfGroup returns primary members followed by secondary members
func (r *JunctionTableResolver) UsersOfGroup(ctx context.Context, groupID string) []string {
	return r.usersOfGroup(ctx, groupID, r.UsersOfGroupSecondary)
}
