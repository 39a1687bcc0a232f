package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/communitybridge/pkg/bridge"
	"github.com/platinummonkey/communitybridge/pkg/config"
	"github.com/platinummonkey/communitybridge/pkg/groups"
	"github.com/platinummonkey/communitybridge/pkg/httputil"
	"github.com/platinummonkey/communitybridge/pkg/identity"
	"github.com/platinummonkey/communitybridge/pkg/observability"
	"github.com/platinummonkey/communitybridge/pkg/storage"
)

const notchUUID = "069a79f4-44e9-4726-a5be-fca90e38aaf5"

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Database.Dialect = "sqlite3"
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
		StorageMethod: groups.StorageJunction,
		Table:         "user_groups",
		UserIDColumn:  "user_id",
		GroupIDColumn: "group_id",
	}
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config) *bridge.Service {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE minecraft_links (user_id INTEGER, minecraft TEXT)`,
		`CREATE TABLE users (user_id INTEGER, group_id TEXT)`,
		`CREATE TABLE user_groups (user_id INTEGER, group_id TEXT)`,
		`INSERT INTO minecraft_links VALUES (1, '` + notchUUID + `')`,
		`INSERT INTO minecraft_links VALUES (2, 'jeb_')`,
		`INSERT INTO users VALUES (1, 'admins')`,
		`INSERT INTO users VALUES (2, 'builders')`,
		`INSERT INTO user_groups VALUES (1, 'builders')`,
		`INSERT INTO user_groups VALUES (1, 'moderators')`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return bridge.New(cfg, db, storage.SQLite)
}

func do(t *testing.T, s http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestGetUserID(t *testing.T) {
	s := NewServer(newTestService(t, testConfig()), nil, nil)

	rec := do(t, s, "GET", "/v1/identities/jeb_")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	var resp UserIDResponse
	decode(t, rec, &resp)
	assert.Equal(t, "2", resp.UserID)

	rec = do(t, s, "GET", "/v1/identities/nobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPlayerUserID(t *testing.T) {
	s := NewServer(newTestService(t, testConfig()), nil, nil)

	rec := do(t, s, "GET", "/v1/players/user?uuid="+notchUUID+"&name=Notch")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UserIDResponse
	decode(t, rec, &resp)
	assert.Equal(t, "1", resp.UserID)

	rec = do(t, s, "GET", "/v1/players/user?uuid=00000000-0000-0000-0000-000000000000&name=jeb_")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, "2", resp.UserID)

	rec = do(t, s, "GET", "/v1/players/user?name=Guest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, "GET", "/v1/players/user")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUUID(t *testing.T) {
	s := NewServer(newTestService(t, testConfig()), nil, nil)

	rec := do(t, s, "GET", "/v1/users/1/uuid")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UUIDResponse
	decode(t, rec, &resp)
	assert.Equal(t, UUIDResponse{UserID: "1", UUID: notchUUID}, resp)

	rec = do(t, s, "GET", "/v1/users/42/uuid")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFromCache(t *testing.T) {
	svc := newTestService(t, testConfig())
	s := NewServer(svc, nil, nil)

	do(t, s, "GET", "/v1/identities/jeb_")
	require.Equal(t, 1, svc.CacheStats().Entries)

	rec := do(t, s, "DELETE", "/v1/cache/players?name=jeb_")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, svc.CacheStats().Entries)

	rec = do(t, s, "DELETE", "/v1/cache/players")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheStats(t *testing.T) {
	s := NewServer(newTestService(t, testConfig()), nil, nil)
	do(t, s, "GET", "/v1/identities/jeb_")
	do(t, s, "GET", "/v1/identities/jeb_")

	rec := do(t, s, "GET", "/v1/cache/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CacheStatsResponse
	decode(t, rec, &resp)
	assert.Equal(t, int64(1), resp.Hits)
	assert.Equal(t, int64(1), resp.Misses)
	assert.Equal(t, "both", resp.LinkingMethod)
}

func TestGetUserGroups(t *testing.T) {
	s := NewServer(newTestService(t, testConfig()), nil, nil)

	rec := do(t, s, "GET", "/v1/users/1/groups")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UserGroupsResponse
	decode(t, rec, &resp)
	assert.Equal(t, "admins", resp.Primary)
	assert.ElementsMatch(t, []string{"builders", "moderators"}, resp.Secondary)

	rec = do(t, s, "GET", "/v1/users/2/groups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"2","primary":"builders","secondary":[]}`, rec.Body.String())
}

func TestGetUserGroups_SecondaryFailure(t *testing.T) {
	cfg := testConfig()
	cfg.SecondaryGroup.Table = "missing_groups"
	s := NewServer(newTestService(t, cfg), nil, nil)

	rec := do(t, s, "GET", "/v1/users/1/groups")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var resp httputil.ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, storage.SchemaMismatch.String(), resp.Kind)
	assert.NotEmpty(t, resp.Error)
}

func TestGetGroupUsers(t *testing.T) {
	s := NewServer(newTestService(t, testConfig()), nil, nil)

	rec := do(t, s, "GET", "/v1/groups/builders/users")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp GroupUsersResponse
	decode(t, rec, &resp)
	assert.Equal(t, GroupUsersResponse{GroupID: "builders", Scope: "both", Users: []string{"2", "1"}}, resp)

	rec = do(t, s, "GET", "/v1/groups/builders/users?scope=secondary")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.Equal(t, []string{"1"}, resp.Users)

	rec = do(t, s, "GET", "/v1/groups/nobody/users?scope=primary")
	assert.JSONEq(t, `{"group_id":"nobody","scope":"primary","users":[]}`, rec.Body.String())

	rec = do(t, s, "GET", "/v1/groups/builders/users?scope=everyone")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetService(t *testing.T) {
	first := newTestService(t, testConfig())
	s := NewServer(nil, nil, nil)

	rec := do(t, s, "GET", "/v1/identities/jeb_")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Nil(t, s.SetService(first))
	assert.Same(t, first, s.Service())
	rec = do(t, s, "GET", "/v1/identities/jeb_")
	assert.Equal(t, http.StatusOK, rec.Code)

	second := newTestService(t, testConfig())
	assert.Same(t, first, s.SetService(second))
	assert.Same(t, second, s.Service())
}

func TestMetricsUseRouteTemplates(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := NewServer(newTestService(t, testConfig()), metrics, nil)

	do(t, s, "GET", "/v1/users/1/uuid")
	do(t, s, "GET", "/v1/users/2/uuid")

	assert.Equal(t, float64(2), testutil.ToFloat64(
		metrics.HTTPRequestsTotal.WithLabelValues("GET", "/v1/users/{userID}/uuid", "200")))
}

func TestRequestIDIsPropagated(t *testing.T) {
	s := NewServer(newTestService(t, testConfig()), nil, nil)
	req := httptest.NewRequest("GET", "/v1/identities/jeb_", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
