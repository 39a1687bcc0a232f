package bridge

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/communitybridge/pkg/config"
	"github.com/platinummonkey/communitybridge/pkg/groups"
	"github.com/platinummonkey/communitybridge/pkg/identity"
	"github.com/platinummonkey/communitybridge/pkg/linker"
	"github.com/platinummonkey/communitybridge/pkg/observability"
	"github.com/platinummonkey/communitybridge/pkg/storage"
)

// Player is an in-game player handle
type Player = linker.Player

// PlayerDirectory is the game server side of the bridge
type PlayerDirectory interface {
	OnlinePlayers(ctx context.Context) []Player
	Message(ctx context.Context, player Player, message string) error
	Kick(ctx context.Context, player Player, message string) error
}

// Option configures a Service
type Option func(*Service)

// WithMetrics reports cache, query and linking metrics to m
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRedis shares resolutions with other servers through client
func WithRedis(client *redis.Client) Option {
	return func(s *Service) {
		s.redis = client
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// Service is everything the game server asks of the web application: who a
// player is and which groups they belong to. Empty strings mean "no result".
//
// A Service owns its identity cache. Build a new one to reload configuration
// and Close the old one.
type Service struct {
	cfg      *config.Config
	store    *storage.Store
	cache    *identity.Cache
	resolver *identity.Resolver
	linker   *linker.Linker
	groups   groups.Resolver
	metrics  *observability.Metrics
	redis    *redis.Client
	log      *logrus.Logger
}

// New wires a Service over db. The caller keeps ownership of db.
func New(cfg *config.Config, db storage.Querier, dialect storage.Dialect, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logrus.New()
	}

	var storeOpts []storage.Option
	if s.metrics != nil {
		storeOpts = append(storeOpts, storage.WithObserver(s.metrics))
	}
	s.store = storage.NewStore(db, dialect, storeOpts...)
	s.resolver = identity.NewResolver(s.store, cfg.Linking.Table, s.log)

	var lookup identity.Lookup = s.resolver
	if s.redis != nil {
		var shared identity.SharedObserver
		if s.metrics != nil {
			shared = s.metrics
		}
		lookup = identity.NewRedisLookup(s.redis, s.resolver, cfg.Cache.Redis, shared, s.log)
	}

	var cacheObserver identity.CacheObserver
	var linkObserver linker.LinkObserver
	if s.metrics != nil {
		cacheObserver = s.metrics
		linkObserver = s.metrics
	}
	s.cache = identity.NewCache(cfg.Cache.Capacity, lookup, cacheObserver, s.log)
	s.linker = linker.NewLinker(s.cache, s.resolver, cfg.LinkingMethod(), linkObserver, s.log)
	s.groups = groups.New(s.store, cfg.PrimaryGroup, cfg.SecondaryGroup, s.log)

	s.log.WithFields(logrus.Fields{
		"dialect":          dialect.String(),
		"linking_method":   s.linker.Method().String(),
		"cache_capacity":   s.cache.Capacity(),
		"shared_cache":     s.redis != nil,
		"primary_groups":   cfg.PrimaryGroup.Enabled,
		"secondary_groups": cfg.SecondaryGroup.Enabled,
	}).Info("Bridge service ready")
	return s
}

// GetUserID resolves a single UUID or player name
func (s *Service) GetUserID(ctx context.Context, uuidOrName string) string {
	return s.linker.GetUserIDByIdentifier(ctx, uuidOrName)
}

// GetUserIDForPlayer resolves a player with the configured linking method
func (s *Service) GetUserIDForPlayer(ctx context.Context, player Player) string {
	return s.linker.GetUserID(ctx, player)
}

// GetUUID returns the in-game identifier linked to userID
func (s *Service) GetUUID(ctx context.Context, userID string) string {
	return s.linker.GetUUID(ctx, userID)
}

// RemoveFromCache forgets a player's cached ids, e.g. when they disconnect
func (s *Service) RemoveFromCache(ctx context.Context, uuid, name string) {
	s.linker.RemoveFromCache(ctx, uuid, name)
}

// PrimaryGroupOf returns the primary group of userID
func (s *Service) PrimaryGroupOf(ctx context.Context, userID string) string {
	return s.groups.PrimaryGroupOf(ctx, userID)
}

// SecondaryGroupsOf returns the secondary groups of userID. Failures are
// returned as *storage.Error.
func (s *Service) SecondaryGroupsOf(ctx context.Context, userID string) ([]string, error) {
	return s.groups.SecondaryGroupsOf(ctx, userID)
}

// UsersOfGroup returns the members of groupID within scope
func (s *Service) UsersOfGroup(ctx context.Context, groupID string, scope groups.Scope) []string {
	return groups.UsersOf(ctx, s.groups, groupID, scope)
}

// Warm pre-resolves every online player
func (s *Service) Warm(ctx context.Context, dir PlayerDirectory) int {
	return s.linker.Warm(ctx, dir.OnlinePlayers(ctx), s.cfg.Cache.WarmWorkers)
}

// CacheStats returns the identity cache counters
func (s *Service) CacheStats() identity.CacheStats {
	return s.cache.Stats()
}

// Config returns the configuration the service was built from
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Close drops the identity cache. The database handle and Redis client are
// owned by the caller.
func (s *Service) Close() {
	s.cache.Flush()
	s.log.Info("Bridge service closed")
}
