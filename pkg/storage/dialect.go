package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect describes the small amount of SQL text that differs between the
// supported databases: the driver name, bind placeholders and identifier
// quoting.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %q (must be postgres or sqlite3)", name)
	}
}

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite3"
	default:
		return "unknown"
	}
}

// Driver returns the database/sql driver name registered for the dialect.
func (d Dialect) Driver() string {
	return d.String()
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes a table or column name taken from configuration. Dotted
// names are quoted per part so schema-qualified tables keep working.
func (d Dialect) QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// Select builds a SELECT of columns from table where every column in where is
// compared for equality with the next bind argument, in order.
//
// Only trusted configuration may flow into table, columns and where; caller
// supplied values must be passed as bind arguments.
func (d Dialect) Select(table string, columns []string, where ...string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, column := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.QuoteIdent(column))
	}
	b.WriteString(" FROM ")
	b.WriteString(d.QuoteIdent(table))
	for i, column := range where {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(d.QuoteIdent(column))
		b.WriteString(" = ")
		b.WriteString(d.Placeholder(i + 1))
	}
	return b.String()
}
