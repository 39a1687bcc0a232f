package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// DefaultSharedTTL bounds how long a resolution shared through Redis is
// trusted by other servers.
const DefaultSharedTTL = 10 * time.Minute

// SharedObserver receives shared lookup results ("hit", "miss", "error")
type SharedObserver interface {
	SharedLookup(result string)
}

// RedisConfig configures the shared lookup
type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

// failingLookup is implemented by lookups that report failed resolutions
// instead of folding them into "".
type failingLookup interface {
	resolveUserID(ctx context.Context, identifier string) (string, error)
}

// RedisLookup shares resolutions between game servers linked to the same web
// application. Results, negative ones included, are stored under
// <prefix>userid:<identifier> with a TTL. A resolution the wrapped lookup
// reports as failed is not shared. Redis failures fall through to the wrapped
// lookup.
type RedisLookup struct {
	client   *redis.Client
	next     Lookup
	ttl      time.Duration
	prefix   string
	observer SharedObserver
	log      *logrus.Logger
}

// NewRedisClient parses cfg.URL and pings the server
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opts.DB = cfg.DB
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisLookup wraps next with a Redis-backed shared layer
func NewRedisLookup(client *redis.Client, next Lookup, cfg RedisConfig, observer SharedObserver, log *logrus.Logger) *RedisLookup {
	if log == nil {
		log = logrus.New()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSharedTTL
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "cb:"
	}
	return &RedisLookup{
		client:   client,
		next:     next,
		ttl:      ttl,
		prefix:   prefix,
		observer: observer,
		log:      log,
	}
}

func (l *RedisLookup) key(identifier string) string {
	return fmt.Sprintf("%suserid:%s", l.prefix, identifier)
}

// ResolveUserID checks Redis first and falls back to the wrapped lookup
func (l *RedisLookup) ResolveUserID(ctx context.Context, identifier string) string {
	key := l.key(identifier)

	userID, err := l.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		l.record("hit")
		return userID
	case err == redis.Nil:
		l.record("miss")
	default:
		l.record("error")
		l.log.WithError(err).WithField("identifier", identifier).Warn("Shared lookup failed, using database")
		return l.next.ResolveUserID(ctx, identifier)
	}

	userID, err = l.resolveNext(ctx, identifier)
	if err != nil {
		return userID
	}
	if err := l.client.Set(ctx, key, userID, l.ttl).Err(); err != nil {
		l.log.WithError(err).WithField("identifier", identifier).Warn("Failed to share resolved user id")
	}
	return userID
}

func (l *RedisLookup) resolveNext(ctx context.Context, identifier string) (string, error) {
	if next, ok := l.next.(failingLookup); ok {
		return next.resolveUserID(ctx, identifier)
	}
	return l.next.ResolveUserID(ctx, identifier), nil
}

// Invalidate deletes the shared entries for identifiers
func (l *RedisLookup) Invalidate(ctx context.Context, identifiers ...string) {
	keys := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		if identifier != "" {
			keys = append(keys, l.key(identifier))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		l.log.WithError(err).Warn("Failed to invalidate shared user ids")
	}
}

func (l *RedisLookup) record(result string) {
	if l.observer != nil {
		l.observer.SharedLookup(result)
	}
}
