package groups

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/communitybridge/pkg/ids"
	"github.com/platinummonkey/communitybridge/pkg/storage"
)

// New returns the resolver matching the secondary storage method. When
// secondary groups are disabled the method is ignored.
func New(store *storage.Store, primary PrimaryConfig, secondary SecondaryConfig, log *logrus.Logger) Resolver {
	b := newBase(store, primary, secondary, log)
	if secondary.Enabled && !secondary.StorageMethod.Delimited() {
		return &JunctionTableResolver{base: b}
	}
	return &DelimitedColumnResolver{base: b}
}

// base holds the queries shared by every schema variant
type base struct {
	store     *storage.Store
	primary   PrimaryConfig
	secondary SecondaryConfig
	log       *logrus.Logger
}

func newBase(store *storage.Store, primary PrimaryConfig, secondary SecondaryConfig, log *logrus.Logger) base {
	if log == nil {
		log = logrus.New()
	}
	return base{
		store:     store,
		primary:   primary,
		secondary: secondary,
		log:       log,
	}
}

// PrimaryGroupOf returns the primary group of userID, or "".
func (b *base) PrimaryGroupOf(ctx context.Context, userID string) string {
	userID = strings.TrimSpace(userID)
	if !b.primary.Enabled || userID == "" {
		return ""
	}

	const op = "primary_group_of"
	where := []string{b.primary.UserIDColumn}
	args := []any{userID}
	if b.primary.UsesKey {
		where = append(where, b.primary.KeyColumn)
		args = append(args, b.primary.KeyName)
	}
	query := b.store.Dialect().Select(b.primary.Table, []string{b.primary.GroupIDColumn}, where...)

	groupID, err := b.store.QueryFirstString(ctx, op, query, args...)
	if err != nil {
		b.logFailure(op, b.primary.Table, "user_id", userID, err)
		return ""
	}
	groupID, _ = ids.CleanID(groupID)
	return groupID
}

// UsersOfGroupPrimary returns the users whose primary group is groupID
func (b *base) UsersOfGroupPrimary(ctx context.Context, groupID string) []string {
	users := make([]string, 0)
	groupID = strings.TrimSpace(groupID)
	if !b.primary.Enabled || groupID == "" {
		return users
	}

	const op = "users_of_group_primary"
	where := []string{b.primary.GroupIDColumn}
	args := []any{groupID}
	if b.primary.UsesKey {
		where = append(where, b.primary.KeyColumn)
		args = append(args, b.primary.KeyName)
	}
	query := b.store.Dialect().Select(b.primary.Table, []string{b.primary.UserIDColumn}, where...)

	values, err := b.store.QueryStrings(ctx, op, query, args...)
	if err != nil {
		b.logFailure(op, b.primary.Table, "group_id", groupID, err)
		return users
	}
	for _, value := range values {
		users = ids.AppendClean(users, value)
	}
	return users
}

// secondaryWhere filters the secondary table on column, and on the key
// column when the storage method is keyed.
func (b *base) secondaryWhere(column, value string) ([]string, []any) {
	where := []string{column}
	args := []any{value}
	if b.secondary.StorageMethod.Keyed() {
		where = append(where, b.secondary.KeyColumn)
		args = append(args, b.secondary.KeyName)
	}
	return where, args
}

// usersOfGroup runs the primary and secondary member queries concurrently and
// returns primary members followed by secondary members. Users in both lists
// appear twice.
func (b *base) usersOfGroup(ctx context.Context, groupID string, secondary func(context.Context, string) []string) []string {
	var primaryUsers, secondaryUsers []string

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		primaryUsers = b.UsersOfGroupPrimary(egCtx, groupID)
		return nil
	})
	eg.Go(func() error {
		secondaryUsers = secondary(egCtx, groupID)
		return nil
	})
	_ = eg.Wait()

	users := make([]string, 0, len(primaryUsers)+len(secondaryUsers))
	users = append(users, primaryUsers...)
	return append(users, secondaryUsers...)
}

func (b *base) logFailure(op, table, field, value string, err error) {
	kind, _ := storage.KindOf(err)
	b.log.WithFields(logrus.Fields{
		"op":    op,
		"kind":  kind.String(),
		"table": table,
		field:   value,
	}).WithError(err).Error("Group lookup failed")
}
