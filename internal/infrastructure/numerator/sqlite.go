package numerator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	corenumerator "docnum/internal/core/numerator"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sys_sequences (
	account_id    TEXT      NOT NULL,
	document_type TEXT      NOT NULL,
	period_key    TEXT      NOT NULL,
	prefix_key    TEXT      NOT NULL DEFAULT '',
	current_val   INTEGER   NOT NULL DEFAULT 0,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (account_id, document_type, period_key, prefix_key)
);`

// SQLiteStore keeps counters in a local SQLite file.
// Intended for the CLI and single-node deployments.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ corenumerator.SequenceStore = (*SQLiteStore)(nil)
	_ corenumerator.Seeder        = (*SQLiteStore)(nil)
	_ corenumerator.Lister        = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (and creates if needed) the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single writer connection serializes the UPSERTs
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// Allocate implements corenumerator.Allocator.
func (s *SQLiteStore) Allocate(ctx context.Context, scope corenumerator.Scope) (int64, error) {
	query, args, err := allocateQuery(s.builder(), scope)
	if err != nil {
		return 0, fmt.Errorf("build allocate query: %w", err)
	}

	var val int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&val); err != nil {
		return 0, fmt.Errorf("allocate: %w", err)
	}
	return val, nil
}

// Peek implements corenumerator.Peeker.
func (s *SQLiteStore) Peek(ctx context.Context, scope corenumerator.Scope) (int64, error) {
	query, args, err := peekQuery(s.builder(), scope)
	if err != nil {
		return 0, fmt.Errorf("build peek query: %w", err)
	}

	var val int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&val); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("peek: %w", err)
	}
	return val, nil
}

// Advance implements corenumerator.Seeder.
func (s *SQLiteStore) Advance(ctx context.Context, scope corenumerator.Scope, value int64) (int64, error) {
	if value < 0 {
		return 0, fmt.Errorf("advance: negative value %d", value)
	}

	query, args, err := advanceQuery(s.builder(), "MAX", scope, value)
	if err != nil {
		return 0, fmt.Errorf("build advance query: %w", err)
	}

	var val int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&val); err != nil {
		return 0, fmt.Errorf("advance: %w", err)
	}
	return val, nil
}

// Counters implements corenumerator.Lister.
func (s *SQLiteStore) Counters(ctx context.Context, account string) ([]corenumerator.Counter, error) {
	query, args, err := countersQuery(s.builder(), account)
	if err != nil {
		return nil, fmt.Errorf("build counters query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()

	counters := make([]corenumerator.Counter, 0)
	for rows.Next() {
		var c corenumerator.Counter
		if err := rows.Scan(&c.DocType, &c.PeriodKey, &c.PrefixKey, &c.Value, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	return counters, nil
}
