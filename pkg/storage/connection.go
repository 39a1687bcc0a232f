package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/sirupsen/logrus"
)

// ConnectionConfig holds database connection configuration
type ConnectionConfig struct {
	Dialect     Dialect
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// ConnectionManager owns the connection pool to the web application
// database. It is opened once at start-up and closed at shutdown or reload.
type ConnectionManager struct {
	db     *sql.DB
	config ConnectionConfig
	log    *logrus.Logger
}

// NewConnectionManager opens and pings the database
func NewConnectionManager(config ConnectionConfig, log *logrus.Logger) (*ConnectionManager, error) {
	if log == nil {
		log = logrus.New()
	}

	db, err := sql.Open(config.Dialect.Driver(), config.URL)
	if err != nil {
		return nil, Classify("open", fmt.Errorf("failed to open connection: %w", err))
	}

	if config.MaxConns > 0 {
		db.SetMaxOpenConns(config.MaxConns)
	}
	if config.MinConns > 0 {
		db.SetMaxIdleConns(config.MinConns)
	}
	db.SetConnMaxLifetime(config.MaxLifetime)
	db.SetConnMaxIdleTime(config.MaxIdleTime)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Classify("ping", fmt.Errorf("failed to ping database: %w", err))
	}

	log.WithFields(logrus.Fields{
		"driver":    config.Dialect.Driver(),
		"max_conns": config.MaxConns,
	}).Info("Database connection established")

	return &ConnectionManager{
		db:     db,
		config: config,
		log:    log,
	}, nil
}

// DB returns the underlying pool
func (cm *ConnectionManager) DB() *sql.DB {
	return cm.db
}

// Dialect returns the configured dialect
func (cm *ConnectionManager) Dialect() Dialect {
	return cm.config.Dialect
}

// HealthCheck pings the database
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.db.PingContext(ctx); err != nil {
		return Classify("health_check", fmt.Errorf("database unhealthy: %w", err))
	}
	return nil
}

// Stats returns connection pool statistics
func (cm *ConnectionManager) Stats() sql.DBStats {
	return cm.db.Stats()
}

// Close closes the pool
func (cm *ConnectionManager) Close() error {
	stats := cm.Stats()
	if err := cm.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	cm.log.WithFields(logrus.Fields{
		"open_connections": stats.OpenConnections,
		"wait_count":       stats.WaitCount,
		"wait_duration":    stats.WaitDuration.String(),
	}).Info("Database connection closed")
	return nil
}
