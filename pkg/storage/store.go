package storage

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/platinummonkey/communitybridge/pkg/storage"

// Querier is the read side of a database handle. *sql.DB, *sql.Conn and
// *sql.Tx all satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryObserver receives the outcome of every query issued through a Store.
// status is "ok" or the ErrorKind string of the failure.
type QueryObserver interface {
	ObserveQuery(op, status string, duration time.Duration)
}

// Store issues read queries against the web application database. It never
// opens or closes the underlying connection.
type Store struct {
	db       Querier
	dialect  Dialect
	observer QueryObserver
	tracer   trace.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithObserver reports query outcomes to o.
func WithObserver(o QueryObserver) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = t
	}
}

// NewStore creates a Store over db using dialect for query text.
func NewStore(db Querier, dialect Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Dialect returns the dialect used to build query text.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Query runs query with args and calls scan for every row. op names the
// calling operation in spans, metrics and errors. The span and the recorded
// duration cover the row fetch as well as the round trip. Failures are
// returned as *Error; scan errors are reported as SchemaMismatch.
func (s *Store) Query(ctx context.Context, op, query string, scan func(*sql.Rows) error, args ...any) (err error) {
	ctx, span := s.tracer.Start(ctx, "storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", s.dialect.String()),
			attribute.String("db.operation", op),
		),
	)
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			kind, _ := KindOf(err)
			status = kind.String()
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		s.observe(op, status, start)
		span.End()
	}()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Classify(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return ScanError(op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return Classify(op, err)
	}
	return nil
}

// QueryStrings runs query and collects the first column of every row. NULL
// values are returned as empty strings so callers can clean them uniformly.
func (s *Store) QueryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	values := make([]string, 0)
	err := s.Query(ctx, op, query, func(rows *sql.Rows) error {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return err
		}
		values = append(values, value.String)
		return nil
	}, args...)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// QueryFirstString returns the first column of the first row, or "" with a
// nil error when there are no rows.
func (s *Store) QueryFirstString(ctx context.Context, op, query string, args ...any) (string, error) {
	values, err := s.QueryStrings(ctx, op, query, args...)
	if err != nil || len(values) == 0 {
		return "", err
	}
	return values[0], nil
}

func (s *Store) observe(op, status string, start time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveQuery(op, status, time.Since(start))
}
