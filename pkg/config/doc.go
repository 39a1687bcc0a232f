// Package config provides application configuration management from a YAML
// file and environment variables.
//
// # Overview
//
// Defaults come from Default. LoadFile decodes a YAML file on top of them and
// LoadConfig skips the file; both then apply CB_* environment variables and
// validate the result.
//
// # Configuration Structure
//
// Database settings:
//
//	CB_DB_DIALECT="postgres"  # postgres, sqlite3
//	CB_DB_URL="postgres://localhost/forum?sslmode=disable"
//	CB_DB_USERNAME="bridge"
//	CB_DB_PASSWORD="secret"
//	CB_DB_MAX_CONNS="10"
//
// Linking settings:
//
//	CB_LINKING_METHOD="both"  # uuid, name, both
//	CB_LINK_TABLE="minecraft_links"
//	CB_LINK_USER_ID_COLUMN="user_id"
//	CB_LINK_IDENTIFIER_COLUMN="minecraft"
//	CB_LINK_USES_KEY="false"
//
// Group settings:
//
//	CB_PRIMARY_GROUP_ENABLED="true"
//	CB_PRIMARY_GROUP_TABLE="users"
//	CB_SECONDARY_GROUP_ENABLED="true"
//	CB_SECONDARY_GROUP_STORAGE_METHOD="single"  # single, key, junction, multiple
//	CB_SECONDARY_GROUP_DELIMITER=","
//
// Cache settings:
//
//	CB_CACHE_CAPACITY="1000"
//	CB_REDIS_URL="redis://localhost:6379/0"  # optional shared cache
//	CB_REDIS_TTL="10m"
//
// Reminder settings:
//
//	CB_REMINDER_ENABLED="true"
//	CB_REMINDER_SCHEDULE="@every 5m"
//	CB_REMINDER_KICK_UNREGISTERED="false"
//
// Observability settings:
//
//	CB_LOG_LEVEL="info"  # debug, info, warn, error
//	CB_METRICS_ENABLED="true"
//	CB_OTEL_ENABLED="false"
//	CB_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadFile("/etc/communitybridge/config.yml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	conn, err := cfg.Database.Connection()
//
// Validate refuses to start while the database credentials are still the
// sample "username"/"password" pair.
package config
