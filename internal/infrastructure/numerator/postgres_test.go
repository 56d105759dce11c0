package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "docnum/internal/core/numerator"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences well enough to check statement shape
// and increment semantics.
type mockQuerier struct {
	mu      sync.Mutex
	values  map[string]int64
	queries []string
	args    [][]any
	err     error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (m *mockQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, sql)
	m.args = append(m.args, args)
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	key := ""
	for _, a := range args[:4] {
		key += a.(string) + "|"
	}
	cur, exists := m.values[key]

	switch {
	case strings.HasPrefix(sql, "SELECT"):
		if !exists {
			return &mockRow{err: pgx.ErrNoRows}
		}
		return &mockRow{val: cur}
	case strings.Contains(sql, "GREATEST"):
		if v := args[4].(int64); v > cur || !exists {
			cur = v
		}
	default:
		cur++
	}
	m.values[key] = cur
	return &mockRow{val: cur}
}

func (m *mockQuerier) lastQuery() (string, []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[len(m.queries)-1], m.args[len(m.args)-1]
}

var testScope = corenumerator.Scope{
	Account:   "acct-A",
	DocType:   corenumerator.DocTypeInvoice,
	PeriodKey: "2025",
}

func TestPostgresStore_Allocate(t *testing.T) {
	q := newMockQuerier()
	store := NewPostgresStore(q)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Allocate(ctx, testScope)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	sql, args := q.lastQuery()
	assert.True(t, strings.HasPrefix(sql, "INSERT INTO sys_sequences (account_id,document_type,period_key,prefix_key,current_val) VALUES ($1,$2,$3,$4,$5)"), sql)
	assert.Contains(t, sql, "ON CONFLICT (account_id, document_type, period_key, prefix_key) DO UPDATE SET current_val = sys_sequences.current_val + 1")
	assert.True(t, strings.HasSuffix(sql, "RETURNING current_val"), sql)
	assert.Equal(t, []any{"acct-A", "invoice", "2025", "", 1}, args)

	// another period is another row
	other := testScope
	other.PeriodKey = "2026"
	got, err := store.Allocate(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestPostgresStore_Peek(t *testing.T) {
	q := newMockQuerier()
	store := NewPostgresStore(q)
	ctx := context.Background()

	got, err := store.Peek(ctx, testScope)
	require.NoError(t, err, "missing row reads as zero")
	assert.Zero(t, got)

	sql, args := q.lastQuery()
	assert.Equal(t, "SELECT current_val FROM sys_sequences WHERE account_id = $1 AND document_type = $2 AND period_key = $3 AND prefix_key = $4", sql)
	assert.Equal(t, []any{"acct-A", "invoice", "2025", ""}, args)

	_, err = store.Allocate(ctx, testScope)
	require.NoError(t, err)

	got, err = store.Peek(ctx, testScope)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestPostgresStore_Advance(t *testing.T) {
	q := newMockQuerier()
	store := NewPostgresStore(q)
	ctx := context.Background()

	got, err := store.Advance(ctx, testScope, 120)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)

	sql, _ := q.lastQuery()
	assert.Contains(t, sql, "GREATEST(sys_sequences.current_val, excluded.current_val)")

	got, err = store.Advance(ctx, testScope, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(120), got)

	got, err = store.Allocate(ctx, testScope)
	require.NoError(t, err)
	assert.Equal(t, int64(121), got)

	_, err = store.Advance(ctx, testScope, -1)
	assert.Error(t, err)
}

func TestPostgresStore_Errors(t *testing.T) {
	errDown := errors.New("connection refused")
	q := newMockQuerier()
	q.err = errDown
	store := NewPostgresStore(q)
	ctx := context.Background()

	_, err := store.Allocate(ctx, testScope)
	assert.ErrorIs(t, err, errDown)

	_, err = store.Peek(ctx, testScope)
	assert.ErrorIs(t, err, errDown)

	_, err = store.Advance(ctx, testScope, 5)
	assert.ErrorIs(t, err, errDown)

	_, err = store.Counters(ctx, "acct-A")
	assert.Error(t, err)
}

func TestPostgresStore_WithGenerator(t *testing.T) {
	gen := corenumerator.NewGenerator(NewPostgresStore(newMockQuerier()))
	ctx := context.Background()
	d := testDate(2025, 1, 15)

	num, err := gen.Generate(ctx, "acct-A", corenumerator.DocTypeInvoice, "F{YY}{MM}-{SEQ:3}", d)
	require.NoError(t, err)
	assert.Equal(t, "F2501-001", num)

	preview, err := gen.Preview(ctx, "acct-A", corenumerator.DocTypeInvoice, "F{YY}{MM}-{SEQ:3}", d)
	require.NoError(t, err)
	assert.Equal(t, "F2501-002", preview)
}
