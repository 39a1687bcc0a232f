package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/communitybridge/pkg/groups"
	"github.com/platinummonkey/communitybridge/pkg/identity"
	"github.com/platinummonkey/communitybridge/pkg/linker"
	"github.com/platinummonkey/communitybridge/pkg/observability"
	"github.com/platinummonkey/communitybridge/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Database       DatabaseConfig         `yaml:"database"`
	Linking        LinkingConfig          `yaml:"linking"`
	PrimaryGroup   groups.PrimaryConfig   `yaml:"primary_group"`
	SecondaryGroup groups.SecondaryConfig `yaml:"secondary_group"`
	Cache          CacheConfig            `yaml:"cache"`
	Reminder       ReminderConfig         `yaml:"reminder"`
	GameServer     GameServerConfig       `yaml:"game_server"`
	Server         ServerConfig           `yaml:"server"`
	Observability  ObservabilityConfig    `yaml:"observability"`
}

// DatabaseConfig locates the web application database
type DatabaseConfig struct {
	Dialect     string        `yaml:"dialect"`
	URL         string        `yaml:"url"`
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
}

// LinkingConfig holds the linking method and the table linking players to
// users
type LinkingConfig struct {
	Method string               `yaml:"method"`
	Table  identity.TableConfig `yaml:",inline"`
}

// CacheConfig sizes the identity cache and optionally shares it through Redis
type CacheConfig struct {
	Capacity    int                  `yaml:"capacity"`
	WarmOnStart bool                 `yaml:"warm_on_start"`
	WarmWorkers int                  `yaml:"warm_workers"`
	Redis       identity.RedisConfig `yaml:"redis"`
}

// ReminderConfig configures the periodic check for unregistered players
type ReminderConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Schedule         string `yaml:"schedule"`
	KickUnregistered bool   `yaml:"kick_unregistered"`
	Message          string `yaml:"message"`
	KickMessage      string `yaml:"kick_message"`
}

// GameServerConfig locates the game server's player API. Without a URL the
// daemon sees no online players, so warm-up and the reminder have nothing to
// do.
type GameServerConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Default returns the configuration used before any file or environment
// variable is applied
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect:     "postgres",
			MaxConns:    10,
			MinConns:    2,
			Timeout:     5 * time.Second,
			MaxLifetime: 30 * time.Minute,
		},
		Linking: LinkingConfig{
			Method: "both",
		},
		SecondaryGroup: groups.SecondaryConfig{
			StorageMethod: groups.StorageSingle,
			Delimiter:     ",",
		},
		Cache: CacheConfig{
			Capacity:    identity.DefaultCacheCapacity,
			WarmOnStart: true,
			WarmWorkers: linker.DefaultWarmWorkers,
			Redis: identity.RedisConfig{
				TTL:    identity.DefaultSharedTTL,
				Prefix: "cb:",
			},
		},
		Reminder: ReminderConfig{
			Schedule:    "@every 5m",
			Message:     "You are not registered on our forum. Please register to unlock your ranks.",
			KickMessage: "You must register on our forum before playing here.",
		},
		GameServer: GameServerConfig{
			Timeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			HealthPort:      "9090",
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "communitybridge",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile reads a YAML configuration file. Environment variables override
// values from the file.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	db := &cfg.Database
	db.Dialect = getEnv("CB_DB_DIALECT", db.Dialect)
	db.URL = getEnv("CB_DB_URL", db.URL)
	db.Username = getEnv("CB_DB_USERNAME", db.Username)
	db.Password = getEnv("CB_DB_PASSWORD", db.Password)
	db.MaxConns = getEnvInt("CB_DB_MAX_CONNS", db.MaxConns)
	db.MinConns = getEnvInt("CB_DB_MIN_CONNS", db.MinConns)
	db.Timeout = getEnvDuration("CB_DB_TIMEOUT", db.Timeout)
	db.MaxLifetime = getEnvDuration("CB_DB_MAX_LIFETIME", db.MaxLifetime)

	link := &cfg.Linking
	link.Method = getEnv("CB_LINKING_METHOD", link.Method)
	link.Table.Table = getEnv("CB_LINK_TABLE", link.Table.Table)
	link.Table.UserIDColumn = getEnv("CB_LINK_USER_ID_COLUMN", link.Table.UserIDColumn)
	link.Table.IdentifierColumn = getEnv("CB_LINK_IDENTIFIER_COLUMN", link.Table.IdentifierColumn)
	link.Table.UsesKey = getEnvBool("CB_LINK_USES_KEY", link.Table.UsesKey)
	link.Table.KeyColumn = getEnv("CB_LINK_KEY_COLUMN", link.Table.KeyColumn)
	link.Table.KeyName = getEnv("CB_LINK_KEY_NAME", link.Table.KeyName)
	link.Table.ValueColumn = getEnv("CB_LINK_VALUE_COLUMN", link.Table.ValueColumn)

	primary := &cfg.PrimaryGroup
	primary.Enabled = getEnvBool("CB_PRIMARY_GROUP_ENABLED", primary.Enabled)
	primary.UsesKey = getEnvBool("CB_PRIMARY_GROUP_USES_KEY", primary.UsesKey)
	primary.Table = getEnv("CB_PRIMARY_GROUP_TABLE", primary.Table)
	primary.UserIDColumn = getEnv("CB_PRIMARY_GROUP_USER_ID_COLUMN", primary.UserIDColumn)
	primary.GroupIDColumn = getEnv("CB_PRIMARY_GROUP_GROUP_ID_COLUMN", primary.GroupIDColumn)
	primary.KeyColumn = getEnv("CB_PRIMARY_GROUP_KEY_COLUMN", primary.KeyColumn)
	primary.KeyName = getEnv("CB_PRIMARY_GROUP_KEY_NAME", primary.KeyName)

	secondary := &cfg.SecondaryGroup
	secondary.Enabled = getEnvBool("CB_SECONDARY_GROUP_ENABLED", secondary.Enabled)
	secondary.StorageMethod = groups.StorageMethod(getEnv("CB_SECONDARY_GROUP_STORAGE_METHOD", string(secondary.StorageMethod)))
	secondary.Table = getEnv("CB_SECONDARY_GROUP_TABLE", secondary.Table)
	secondary.UserIDColumn = getEnv("CB_SECONDARY_GROUP_USER_ID_COLUMN", secondary.UserIDColumn)
	secondary.GroupIDColumn = getEnv("CB_SECONDARY_GROUP_GROUP_ID_COLUMN", secondary.GroupIDColumn)
	secondary.KeyColumn = getEnv("CB_SECONDARY_GROUP_KEY_COLUMN", secondary.KeyColumn)
	secondary.KeyName = getEnv("CB_SECONDARY_GROUP_KEY_NAME", secondary.KeyName)
	secondary.Delimiter = getEnv("CB_SECONDARY_GROUP_DELIMITER", secondary.Delimiter)

	cache := &cfg.Cache
	cache.Capacity = getEnvInt("CB_CACHE_CAPACITY", cache.Capacity)
	cache.WarmOnStart = getEnvBool("CB_CACHE_WARM_ON_START", cache.WarmOnStart)
	cache.WarmWorkers = getEnvInt("CB_CACHE_WARM_WORKERS", cache.WarmWorkers)
	cache.Redis.URL = getEnv("CB_REDIS_URL", cache.Redis.URL)
	cache.Redis.Password = getEnv("CB_REDIS_PASSWORD", cache.Redis.Password)
	cache.Redis.DB = getEnvInt("CB_REDIS_DB", cache.Redis.DB)
	cache.Redis.TTL = getEnvDuration("CB_REDIS_TTL", cache.Redis.TTL)
	cache.Redis.Prefix = getEnv("CB_REDIS_PREFIX", cache.Redis.Prefix)

	reminder := &cfg.Reminder
	reminder.Enabled = getEnvBool("CB_REMINDER_ENABLED", reminder.Enabled)
	reminder.Schedule = getEnv("CB_REMINDER_SCHEDULE", reminder.Schedule)
	reminder.KickUnregistered = getEnvBool("CB_REMINDER_KICK_UNREGISTERED", reminder.KickUnregistered)
	reminder.Message = getEnv("CB_REMINDER_MESSAGE", reminder.Message)
	reminder.KickMessage = getEnv("CB_REMINDER_KICK_MESSAGE", reminder.KickMessage)

	cfg.GameServer.URL = getEnv("CB_GAME_SERVER_URL", cfg.GameServer.URL)
	cfg.GameServer.Timeout = getEnvDuration("CB_GAME_SERVER_TIMEOUT", cfg.GameServer.Timeout)

	server := &cfg.Server
	server.Host = getEnv("CB_HOST", server.Host)
	server.Port = getEnv("CB_PORT", server.Port)
	server.HealthPort = getEnv("CB_HEALTH_PORT", server.HealthPort)
	server.ReadTimeout = getEnvDuration("CB_READ_TIMEOUT", server.ReadTimeout)
	server.WriteTimeout = getEnvDuration("CB_WRITE_TIMEOUT", server.WriteTimeout)
	server.IdleTimeout = getEnvDuration("CB_IDLE_TIMEOUT", server.IdleTimeout)
	server.ShutdownTimeout = getEnvDuration("CB_SHUTDOWN_TIMEOUT", server.ShutdownTimeout)

	obs := &cfg.Observability
	obs.LogLevel = getEnv("CB_LOG_LEVEL", obs.LogLevel)
	obs.MetricsEnabled = getEnvBool("CB_METRICS_ENABLED", obs.MetricsEnabled)
	obs.OTelEnabled = getEnvBool("CB_OTEL_ENABLED", obs.OTelEnabled)
	obs.OTelEndpoint = getEnv("CB_OTEL_ENDPOINT", obs.OTelEndpoint)
	obs.OTelServiceName = getEnv("CB_OTEL_SERVICE_NAME", obs.OTelServiceName)
	obs.OTelServiceVersion = getEnv("CB_OTEL_SERVICE_VERSION", obs.OTelServiceVersion)
	obs.OTelInsecure = getEnvBool("CB_OTEL_INSECURE", obs.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if err := c.Database.validate(); err != nil {
		return err
	}

	if c.Linking.Table.Table == "" || c.Linking.Table.UserIDColumn == "" {
		return fmt.Errorf("linking table and user id column are required")
	}
	if c.Linking.Table.UsesKey {
		if c.Linking.Table.KeyColumn == "" || c.Linking.Table.KeyName == "" || c.Linking.Table.ValueColumn == "" {
			return fmt.Errorf("keyed linking table requires key column, key name and value column")
		}
	} else if c.Linking.Table.IdentifierColumn == "" {
		return fmt.Errorf("linking identifier column is required")
	}
	if linker.ParseMethod(c.Linking.Method) == 0 {
		return fmt.Errorf("invalid linking method: %s (must be uuid, name, or both)", c.Linking.Method)
	}

	if p := c.PrimaryGroup; p.Enabled {
		if p.Table == "" || p.UserIDColumn == "" || p.GroupIDColumn == "" {
			return fmt.Errorf("primary group table, user id column and group id column are required")
		}
		if p.UsesKey && (p.KeyColumn == "" || p.KeyName == "") {
			return fmt.Errorf("primary group key column and key name are required when uses_key is set")
		}
	}

	if s := c.SecondaryGroup; s.Enabled {
		method, err := groups.ParseStorageMethod(string(s.StorageMethod))
		if err != nil {
			return err
		}
		c.SecondaryGroup.StorageMethod = method
		if s.Table == "" || s.UserIDColumn == "" || s.GroupIDColumn == "" {
			return fmt.Errorf("secondary group table, user id column and group id column are required")
		}
		if method.Keyed() && (s.KeyColumn == "" || s.KeyName == "") {
			return fmt.Errorf("secondary group key column and key name are required for storage method %s", method)
		}
	}

	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache capacity must not be negative")
	}
	if c.Cache.Redis.URL != "" {
		if _, err := url.Parse(c.Cache.Redis.URL); err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
	}

	if c.Reminder.Enabled {
		if _, err := cron.ParseStandard(c.Reminder.Schedule); err != nil {
			return fmt.Errorf("invalid reminder schedule %q: %w", c.Reminder.Schedule, err)
		}
	}

	if c.GameServer.URL != "" {
		u, err := url.Parse(c.GameServer.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid game server URL: %s", c.GameServer.URL)
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// ErrPlaceholderCredentials is returned while the database credentials are
// still the values shipped in the sample configuration
var ErrPlaceholderCredentials = errors.New("database credentials are still the sample values, set database.username and database.password")

func (d DatabaseConfig) validate() error {
	if _, err := storage.ParseDialect(d.Dialect); err != nil {
		return err
	}
	if d.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if d.Username == "username" && d.Password == "password" {
		return ErrPlaceholderCredentials
	}
	if d.MaxConns < 0 || d.MinConns < 0 {
		return fmt.Errorf("database connection limits must not be negative")
	}
	return nil
}

// Connection returns the storage settings for the database
func (d DatabaseConfig) Connection() (storage.ConnectionConfig, error) {
	dialect, err := storage.ParseDialect(d.Dialect)
	if err != nil {
		return storage.ConnectionConfig{}, err
	}

	dsn := d.URL
	if dialect == storage.Postgres && d.Username != "" {
		u, err := url.Parse(d.URL)
		if err != nil {
			return storage.ConnectionConfig{}, fmt.Errorf("invalid database URL: %w", err)
		}
		u.User = url.UserPassword(d.Username, d.Password)
		dsn = u.String()
	}

	return storage.ConnectionConfig{
		Dialect:     dialect,
		URL:         dsn,
		MaxConns:    d.MaxConns,
		MinConns:    d.MinConns,
		Timeout:     d.Timeout,
		MaxLifetime: d.MaxLifetime,
	}, nil
}

// LinkingMethod returns the parsed linking method
func (c *Config) LinkingMethod() linker.Method {
	return linker.ParseMethod(c.Linking.Method)
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel returns the tracing settings
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
