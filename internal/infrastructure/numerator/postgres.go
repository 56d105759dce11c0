package numerator

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	corenumerator "docnum/internal/core/numerator"
)

var tracer = otel.Tracer("docnum/numerator")

// Querier interface for database operations.
// Satisfied by *pgxpool.Pool; pass the pool, not a transaction, so that
// allocations survive a rollback of the document that requested them.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps counters in the sys_sequences table.
type PostgresStore struct {
	db Querier
}

// Ensure compile-time interface compliance.
var (
	_ corenumerator.SequenceStore = (*PostgresStore)(nil)
	_ corenumerator.Seeder        = (*PostgresStore)(nil)
	_ corenumerator.Lister        = (*PostgresStore)(nil)
)

// NewPostgresStore creates a store over db.
func NewPostgresStore(db Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (s *PostgresStore) span(ctx context.Context, name string, scope corenumerator.Scope) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("numerator.account", scope.Account),
		attribute.String("numerator.doc_type", string(scope.DocType)),
		attribute.String("numerator.period", scope.PeriodKey),
	))
}

// Allocate implements corenumerator.Allocator.
func (s *PostgresStore) Allocate(ctx context.Context, scope corenumerator.Scope) (int64, error) {
	ctx, span := s.span(ctx, "numerator.allocate", scope)
	defer span.End()

	query, args, err := allocateQuery(s.builder(), scope)
	if err != nil {
		return 0, fmt.Errorf("build allocate query: %w", err)
	}

	var val int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&val); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("allocate: %w", err)
	}
	return val, nil
}

// Peek implements corenumerator.Peeker.
func (s *PostgresStore) Peek(ctx context.Context, scope corenumerator.Scope) (int64, error) {
	ctx, span := s.span(ctx, "numerator.peek", scope)
	defer span.End()

	query, args, err := peekQuery(s.builder(), scope)
	if err != nil {
		return 0, fmt.Errorf("build peek query: %w", err)
	}

	var val int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&val); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		span.RecordError(err)
		return 0, fmt.Errorf("peek: %w", err)
	}
	return val, nil
}

// Advance implements corenumerator.Seeder.
func (s *PostgresStore) Advance(ctx context.Context, scope corenumerator.Scope, value int64) (int64, error) {
	if value < 0 {
		return 0, fmt.Errorf("advance: negative value %d", value)
	}

	ctx, span := s.span(ctx, "numerator.advance", scope)
	defer span.End()

	query, args, err := advanceQuery(s.builder(), "GREATEST", scope, value)
	if err != nil {
		return 0, fmt.Errorf("build advance query: %w", err)
	}

	var val int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&val); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("advance: %w", err)
	}
	return val, nil
}

// Counters implements corenumerator.Lister.
func (s *PostgresStore) Counters(ctx context.Context, account string) ([]corenumerator.Counter, error) {
	query, args, err := countersQuery(s.builder(), account)
	if err != nil {
		return nil, fmt.Errorf("build counters query: %w", err)
	}

	counters := make([]corenumerator.Counter, 0)
	if err := pgxscan.Select(ctx, s.db, &counters, query, args...); err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	return counters, nil
}
