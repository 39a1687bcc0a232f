package groups

import (
	"context"
	"database/sql"
	"strings"

	"github.com/platinummonkey/communitybridge/pkg/ids"
)

// DelimitedColumnResolver reads secondary groups packed into one column,
// e.g. "4,7,9" in a users table. Used for the "single" and "key" storage
// methods.
type DelimitedColumnResolver struct {
	base
}

// SecondaryGroupsOf splits the group column of every row for userID. Errors
// are returned as *storage.Error.
func (r *DelimitedColumnResolver) SecondaryGroupsOf(ctx context.Context, userID string) ([]string, error) {
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
		groupIDs = append(groupIDs, ids.SplitDelimited(value, r.secondary.Delimiter)...)
	}
	return groupIDs, nil
}

// UsersOfGroupSecondary scans every membership row and keeps the users whose
// group list contains groupID. The scan reads the whole table.
func (r *DelimitedColumnResolver) UsersOfGroupSecondary(ctx context.Context, groupID string) []string {
	users := make([]string, 0)
	groupID = strings.TrimSpace(groupID)
	if !r.secondary.Enabled || groupID == "" {
		return users
	}

	const op = "users_of_group_secondary"
	var where []string
	var args []any
	if r.secondary.StorageMethod.Keyed() {
		where = []string{r.secondary.KeyColumn}
		args = []any{r.secondary.KeyName}
	}
	query := r.store.Dialect().Select(r.secondary.Table,
		[]string{r.secondary.UserIDColumn, r.secondary.GroupIDColumn}, where...)

	users, err := r.scanMembers(ctx, op, query, groupID, args...)
	if err != nil {
		r.logFailure(op, r.secondary.Table, "group_id", groupID, err)
		return make([]string, 0)
	}
	return users
}

func (r *DelimitedColumnResolver) scanMembers(ctx context.Context, op, query, groupID string, args ...any) ([]string, error) {
	users := make([]string, 0)
	err := r.store.Query(ctx, op, query, func(rows *sql.Rows) error {
		var userID, groupList sql.NullString
		if err := rows.Scan(&userID, &groupList); err != nil {
			return err
		}
		if ids.Contains(ids.SplitNull(groupList, r.secondary.Delimiter), groupID) {
			if id, ok := ids.CleanNull(userID); ok {
				users = append(users, id)
			}
		}
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UsersOfGroup returns primary members followed by secondary members
func (r *DelimitedColumnResolver) UsersOfGroup(ctx context.Context, groupID string) []string {
	return r.usersOfGroup(ctx, groupID, r.UsersOfGroupSecondary)
}
