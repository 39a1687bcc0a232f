package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/platinummonkey/communitybridge/pkg/ids"
	"github.com/platinummonkey/communitybridge/pkg/storage"
	"github.com/sirupsen/logrus"
)

// TableConfig describes where the web application stores the link between a
// user and an in-game identifier.
//
// Without a key the table has one row per link: IdentifierColumn holds the
// player UUID or name. With UsesKey the table is a key/value store (for
// example custom profile fields): rows whose KeyColumn equals KeyName hold the
// identifier in ValueColumn.
type TableConfig struct {
	Table            string `yaml:"table"`
	UserIDColumn     string `yaml:"user_id_column"`
	IdentifierColumn string `yaml:"identifier_column"`
	UsesKey          bool   `yaml:"uses_key"`
	KeyColumn        string `yaml:"key_column"`
	KeyName          string `yaml:"key_name"`
	ValueColumn      string `yaml:"value_column"`
}

// Resolver looks up web application user ids for in-game identifiers and back.
// It never returns errors: failures are logged and reported as "".
type Resolver struct {
	store *storage.Store
	cfg   TableConfig
	log   *logrus.Logger
}

// NewResolver creates a resolver over store
func NewResolver(store *storage.Store, cfg TableConfig, log *logrus.Logger) *Resolver {
	if log == nil {
		log = logrus.New()
	}
	return &Resolver{
		store: store,
		cfg:   cfg,
		log:   log,
	}
}

// ResolveUserID returns the user id linked to identifier, or "".
func (r *Resolver) ResolveUserID(ctx context.Context, identifier string) string {
	userID, _ := r.resolveUserID(ctx, identifier)
	return userID
}

// resolveUserID is ResolveUserID with the failure kept, so callers that share
// results can tell a failed query from a missing link. Failures are logged.
func (r *Resolver) resolveUserID(ctx context.Context, identifier string) (string, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return "", nil
	}

	const op = "resolve_user_id"
	dialect := r.store.Dialect()

	var query string
	var args []any
	if r.cfg.UsesKey {
		query = dialect.Select(r.cfg.Table, []string{r.cfg.UserIDColumn}, r.cfg.KeyColumn, r.cfg.ValueColumn)
		args = []any{r.cfg.KeyName, identifier}
	} else {
		query = dialect.Select(r.cfg.Table, []string{r.cfg.UserIDColumn}, r.cfg.IdentifierColumn)
		args = []any{identifier}
	}

	values, err := r.store.QueryStrings(ctx, op, query, args...)
	if err != nil {
		r.logFailure(op, "identifier", identifier, err)
		return "", err
	}
	return firstClean(values), nil
}

// ResolveUUID returns the in-game identifier linked to userID, or "". When a
// user has several linked values the first UUID wins, in canonical dashed
// form; otherwise the first non-blank value is returned.
func (r *Resolver) ResolveUUID(ctx context.Context, userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ""
	}

	const op = "resolve_uuid"
	dialect := r.store.Dialect()

	var query string
	var args []any
	if r.cfg.UsesKey {
		query = dialect.Select(r.cfg.Table, []string{r.cfg.ValueColumn}, r.cfg.KeyColumn, r.cfg.UserIDColumn)
		args = []any{r.cfg.KeyName, userID}
	} else {
		query = dialect.Select(r.cfg.Table, []string{r.cfg.IdentifierColumn}, r.cfg.UserIDColumn)
		args = []any{userID}
	}

	values, err := r.store.QueryStrings(ctx, op, query, args...)
	if err != nil {
		r.logFailure(op, "user_id", userID, err)
		return ""
	}

	for _, value := range values {
		if parsed, err := uuid.Parse(strings.TrimSpace(value)); err == nil {
			return parsed.String()
		}
	}
	return firstClean(values)
}

func (r *Resolver) logFailure(op, field, value string, err error) {
	kind, _ := storage.KindOf(err)
	r.log.WithFields(logrus.Fields{
		"op":    op,
		"kind":  kind.String(),
		field:   value,
		"table": r.cfg.Table,
	}).WithError(err).Error("Identity lookup failed")
}

func firstClean(values []string) string {
	for _, value := range values {
		if id, ok := ids.CleanID(value); ok {
			return id
		}
	}
	return ""
}
