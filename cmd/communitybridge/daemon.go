package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/communitybridge/pkg/api"
	"github.com/platinummonkey/communitybridge/pkg/async"
	"github.com/platinummonkey/communitybridge/pkg/bridge"
	"github.com/platinummonkey/communitybridge/pkg/config"
	"github.com/platinummonkey/communitybridge/pkg/identity"
	"github.com/platinummonkey/communitybridge/pkg/observability"
	"github.com/platinummonkey/communitybridge/pkg/storage"
)

const (
	warmTimeout    = 2 * time.Minute
	reloadDebounce = 500 * time.Millisecond
)

// backend is everything built from one configuration
type backend struct {
	cfg      *config.Config
	conn     *storage.ConnectionManager
	redis    *redis.Client
	service  *bridge.Service
	dir      bridge.PlayerDirectory
	reminder *bridge.Reminder
}

// daemon owns the live backend and swaps it when the configuration changes
type daemon struct {
	configPath string
	metrics    *observability.Metrics
	log        *logrus.Logger
	api        *api.Server
	health     *observability.HealthChecker

	mu      sync.Mutex
	current *backend
}

func newDaemon(configPath string, metrics *observability.Metrics, log *logrus.Logger) *daemon {
	return &daemon{
		configPath: configPath,
		metrics:    metrics,
		log:        log,
		api:        api.NewServer(nil, metrics, log),
		health:     observability.NewHealthChecker(nil, nil),
	}
}

// loadConfig reads the file when one is given and the environment otherwise
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadConfig()
	}
	return config.LoadFile(path)
}

// start brings up the first backend
func (d *daemon) start(ctx context.Context, cfg *config.Config) error {
	b, err := d.open(ctx, cfg)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activate(ctx, b)
	return nil
}

// reload rebuilds the backend from the configuration file. The running
// backend keeps serving when the new configuration is unusable.
func (d *daemon) reload(ctx context.Context) error {
	cfg, err := loadConfig(d.configPath)
	if err != nil {
		return err
	}
	b, err := d.open(ctx, cfg)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.current
	d.activate(ctx, b)
	if old != nil {
		d.close(ctx, old)
	}
	d.log.WithField("config", d.configPath).Info("Configuration reloaded")
	return nil
}

// stop closes the live backend
func (d *daemon) stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil
	}
	d.api.SetService(nil)
	d.health.SetDependencies(nil, nil)
	err := d.close(ctx, d.current)
	d.current = nil
	return err
}

// service returns the live service
func (d *daemon) service() *bridge.Service {
	return d.api.Service()
}

func (d *daemon) open(ctx context.Context, cfg *config.Config) (*backend, error) {
	connCfg, err := cfg.Database.Connection()
	if err != nil {
		return nil, err
	}
	conn, err := storage.NewConnectionManager(connCfg, d.log)
	if err != nil {
		return nil, err
	}

	b := &backend{cfg: cfg, conn: conn}
	opts := []bridge.Option{bridge.WithLogger(d.log)}
	if d.metrics != nil {
		opts = append(opts, bridge.WithMetrics(d.metrics))
	}
	if cfg.Cache.Redis.URL != "" {
		client, err := identity.NewRedisClient(ctx, cfg.Cache.Redis)
		if err != nil {
			// The shared cache is optional; lookups go straight to the database.
			d.log.WithError(err).Warn("Shared Redis cache unavailable, continuing without it")
		} else {
			b.redis = client
			opts = append(opts, bridge.WithRedis(client))
		}
	}

	b.service = bridge.New(cfg, conn.DB(), conn.Dialect(), opts...)
	if cfg.GameServer.URL != "" {
		b.dir = bridge.NewHTTPDirectory(cfg.GameServer.URL, cfg.GameServer.Timeout, d.log)
	} else {
		b.dir = bridge.EmptyDirectory{}
	}

	var observer bridge.ReminderObserver
	if d.metrics != nil {
		observer = d.metrics
	}
	b.reminder = bridge.NewReminder(d.service, b.dir, cfg.Reminder, observer, d.log)
	return b, nil
}

// activate makes b the live backend. d.mu must be held.
func (d *daemon) activate(ctx context.Context, b *backend) {
	d.current = b
	d.api.SetService(b.service)
	d.health.SetDependencies(b.conn.DB(), b.redis)

	if err := b.reminder.Start(); err != nil {
		d.log.WithError(err).Error("Failed to start unregistered player reminder")
	}
	if b.cfg.Cache.WarmOnStart {
		svc, dir := b.service, b.dir
		async.SafeGoNoError(ctx, warmTimeout, "cache warm-up", d.log, func(ctx context.Context) {
			n := svc.Warm(ctx, dir)
			d.log.WithField("linked", n).Info("Identity cache warmed")
		})
	}
}

func (d *daemon) close(ctx context.Context, b *backend) error {
	var errs []error
	if err := b.reminder.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reminder: %w", err))
	}
	b.service.Close()
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := b.conn.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// watch reloads whenever the configuration file changes until ctx is done.
// The directory is watched so editors that replace the file are noticed.
func (d *daemon) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	path := filepath.Clean(d.configPath)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	d.log.WithField("config", path).Info("Watching configuration for changes")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) == path && event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pending = time.After(reloadDebounce)
			}
		case <-pending:
			pending = nil
			if err := d.reload(ctx); err != nil {
				d.log.WithError(err).Error("Configuration reload failed, keeping the running configuration")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.log.WithError(err).Warn("Watcher error")
		}
	}
}
