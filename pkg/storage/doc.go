// Package storage is the query store in front of the web application's
// relational database.
//
// # Overview
//
// The bridge only reads from the web application. Every lookup goes through a
// Store, which adds tracing, query metrics and error classification on top of
// any Querier (*sql.DB in production, go-sqlmock in tests).
//
// # Query Construction
//
// Table and column names come from trusted configuration and are quoted by the
// Dialect. Values supplied by callers (player names, user ids, group ids) are
// always bound arguments:
//
//	query := store.Dialect().Select(cfg.Table, []string{cfg.UserIDColumn}, cfg.IdentifierColumn)
//	userID, err := store.QueryFirstString(ctx, "resolve_user_id", query, playerName)
//
// # Error Classification
//
// Failures come back as *Error with one of three kinds:
//
//	ConnectionFailure - lost connection, timeout, refused login
//	QuerySyntaxError  - the server rejected the generated SQL
//	SchemaMismatch    - configured table/column missing or holding unexpected types
//
// Use KindOf or IsKind to branch on them.
//
// # Connection Lifecycle
//
// ConnectionManager opens and pings the pool at start-up and closes it at
// shutdown or reload. Resolvers never manage connections themselves.
//
// # Supported Databases
//
//   - PostgreSQL via github.com/lib/pq
//   - SQLite via github.com/mattn/go-sqlite3
package storage
