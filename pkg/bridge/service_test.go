package bridge

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/communitybridge/pkg/config"
	"github.com/platinummonkey/communitybridge/pkg/groups"
	"github.com/platinummonkey/communitybridge/pkg/identity"
	"github.com/platinummonkey/communitybridge/pkg/observability"
	"github.com/platinummonkey/communitybridge/pkg/storage"
)

var (
	notch = Player{UUID: "069a79f4-44e9-4726-a5be-fca90e38aaf5", Name: "Notch"}
	jeb   = Player{UUID: "853c80ef-3c37-49fd-aa49-938b674adae6", Name: "jeb_"}
	guest = Player{UUID: "00000000-0000-0000-0000-000000000001", Name: "Guest"}
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Dialect = "sqlite3"
	cfg.Database.URL = ":memory:"
	cfg.Linking.Method = "both"
	cfg.Linking.Table = identity.TableConfig{
		Table:            "minecraft_links",
		UserIDColumn:     "user_id",
		IdentifierColumn: "minecraft",
	}
	cfg.PrimaryGroup = groups.PrimaryConfig{
		Enabled:       true,
		Table:         "users",
		UserIDColumn:  "user_id",
		GroupIDColumn: "group_id",
	}
	cfg.SecondaryGroup = groups.SecondaryConfig{
		Enabled:       true,
		StorageMethod: groups.StorageSingle,
		Table:         "users",
		UserIDColumn:  "user_id",
		GroupIDColumn: "other_groups",
		Delimiter:     ",",
	}
	cfg.Cache.WarmWorkers = 2
	return cfg
}

func openForum(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE minecraft_links (user_id INTEGER, minecraft TEXT)`,
		`CREATE TABLE users (user_id INTEGER, group_id TEXT, other_groups TEXT)`,
		`INSERT INTO minecraft_links VALUES (1, '069a79f4-44e9-4726-a5be-fca90e38aaf5')`,
		`INSERT INTO minecraft_links VALUES (2, 'jeb_')`,
		`INSERT INTO users VALUES (1, 'admins', 'builders,moderators')`,
		`INSERT INTO users VALUES (2, 'builders', 'admins, ,')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func TestService_Identity(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	log, _ := test.NewNullLogger()
	svc := New(testConfig(), openForum(t), storage.SQLite, WithMetrics(metrics), WithLogger(log))
	defer svc.Close()
	ctx := context.Background()

	assert.Equal(t, "1", svc.GetUserIDForPlayer(ctx, notch))
	assert.Equal(t, "2", svc.GetUserIDForPlayer(ctx, jeb))
	assert.Equal(t, "", svc.GetUserIDForPlayer(ctx, guest))

	assert.Equal(t, "2", svc.GetUserID(ctx, "jeb_"))
	assert.Equal(t, notch.UUID, svc.GetUUID(ctx, "1"))
	assert.Equal(t, "jeb_", svc.GetUUID(ctx, "2"))
	assert.Equal(t, "", svc.GetUUID(ctx, "99"))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LinkResolutionsTotal.WithLabelValues("uuid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LinkResolutionsTotal.WithLabelValues("name")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LinkResolutionsTotal.WithLabelValues("none")))
	assert.Greater(t, testutil.ToFloat64(metrics.CacheHitsTotal), float64(0))
	assert.Greater(t, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("resolve_user_id", "ok")), float64(0))
}

func TestService_RemoveFromCache(t *testing.T) {
	svc := New(testConfig(), openForum(t), storage.SQLite)
	ctx := context.Background()

	svc.GetUserIDForPlayer(ctx, jeb)
	// uuid miss and name hit are both cached
	require.Equal(t, 2, svc.CacheStats().Entries)

	svc.RemoveFromCache(ctx, jeb.UUID, jeb.Name)
	assert.Equal(t, 0, svc.CacheStats().Entries)

	svc.Close()
	assert.Equal(t, 0, svc.CacheStats().Entries)
}

func TestService_Groups(t *testing.T) {
	svc := New(testConfig(), openForum(t), storage.SQLite)
	ctx := context.Background()

	assert.Equal(t, "admins", svc.PrimaryGroupOf(ctx, "1"))

	secondary, err := svc.SecondaryGroupsOf(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"builders", "moderators"}, secondary)

	assert.Equal(t, []string{"2", "1"}, svc.UsersOfGroup(ctx, "builders", groups.ScopeBoth))
	assert.Equal(t, []string{"2"}, svc.UsersOfGroup(ctx, "builders", groups.ScopePrimary))
	assert.Equal(t, []string{"1"}, svc.UsersOfGroup(ctx, "builders", groups.ScopeSecondary))
	assert.Equal(t, []string{"1", "2"}, svc.UsersOfGroup(ctx, "admins", groups.ScopeBoth))
}

func TestService_SecondaryFailureIsTyped(t *testing.T) {
	cfg := testConfig()
	cfg.SecondaryGroup.Table = "missing_table"
	svc := New(cfg, openForum(t), storage.SQLite)

	_, err := svc.SecondaryGroupsOf(context.Background(), "1")
	assert.True(t, storage.IsKind(err, storage.SchemaMismatch))
}

func TestService_Warm(t *testing.T) {
	svc := New(testConfig(), openForum(t), storage.SQLite)
	dir := newFakeDirectory(notch, jeb, guest)

	assert.Equal(t, 2, svc.Warm(context.Background(), dir))
	stats := svc.CacheStats()
	assert.Equal(t, 5, stats.Entries)
	assert.Equal(t, int64(5), stats.Misses)
}

func TestService_WithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := New(testConfig(), openForum(t), storage.SQLite, WithRedis(client))
	ctx := context.Background()

	assert.Equal(t, "1", svc.GetUserIDForPlayer(ctx, notch))
	assert.True(t, mr.Exists("cb:userid:"+notch.UUID))

	svc.RemoveFromCache(ctx, notch.UUID, notch.Name)
	assert.False(t, mr.Exists("cb:userid:"+notch.UUID))
}
