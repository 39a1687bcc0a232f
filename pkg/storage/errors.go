package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrorKind classifies data-access failures so callers can tell them apart
// without inspecting driver errors.
type ErrorKind int

const (
	// ConnectionFailure covers lost or refused connections, timeouts and
	// anything the driver could not attribute to the query itself.
	ConnectionFailure ErrorKind = iota
	// QuerySyntaxError means the generated SQL was rejected by the server.
	QuerySyntaxError
	// SchemaMismatch means the configured tables or columns do not exist or
	// hold values of an unexpected type.
	SchemaMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case ConnectionFailure:
		return "connection_failure"
	case QuerySyntaxError:
		return "query_syntax_error"
	case SchemaMismatch:
		return "schema_mismatch"
	default:
		return "unknown"
	}
}

// Error is a classified data-access failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a classified error.
func KindOf(err error) (ErrorKind, bool) {
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Classify wraps err in an *Error for op. Errors that are already classified
// are returned unchanged. A nil err stays nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

// ScanError wraps a row decoding failure. A row that does not fit the
// configured projection is a schema problem, not a connection problem.
func ScanError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: SchemaMismatch, Op: op, Err: err}
}

func classify(err error) ErrorKind {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifyPostgres(pqErr)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return classifySQLite(liteErr)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, io.EOF),
		errors.As(err, &netErr):
		return ConnectionFailure
	}

	return ConnectionFailure
}

func classifyPostgres(err *pq.Error) ErrorKind {
	switch err.Code.Class() {
	case "08", "53", "57":
		// connection exception, insufficient resources, operator intervention
		return ConnectionFailure
	case "42":
		if err.Code == "42601" {
			return QuerySyntaxError
		}
		if err.Code == "42501" {
			return ConnectionFailure
		}
		return SchemaMismatch
	case "22":
		return SchemaMismatch
	}
	return ConnectionFailure
}

func classifySQLite(err sqlite3.Error) ErrorKind {
	switch err.Code {
	case sqlite3.ErrMismatch, sqlite3.ErrSchema:
		return SchemaMismatch
	case sqlite3.ErrError:
		msg := err.Error()
		switch {
		case strings.Contains(msg, "syntax error"):
			return QuerySyntaxError
		case strings.Contains(msg, "no such table"), strings.Contains(msg, "no such column"):
			return SchemaMismatch
		}
	}
	return ConnectionFailure
}
