package settings_repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/numerator"
	"docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/storage/postgres"
)

var errDown = errors.New("connection refused")

type downQuerier struct{}

func (downQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errDown
}

func (downQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errDown
}

func (downQuerier) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

// recordingTx counts which kind of transaction each call asked for.
type recordingTx struct {
	readOnly, readWrite int
}

func (r *recordingTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.readWrite++
	return fn(ctx)
}

func (r *recordingTx) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	r.readOnly++
	return fn(ctx)
}

func (r *recordingTx) GetQuerier(context.Context) postgres.Querier { return downQuerier{} }

func TestRepo_TransactionModes(t *testing.T) {
	txm := &recordingTx{}
	repo := &Repo{txManager: txm}
	ctx := context.Background()

	_, found, err := repo.GetPattern(ctx, "acct-A", numerator.DocTypeInvoice)
	require.ErrorIs(t, err, errDown)
	assert.False(t, found)
	assert.Equal(t, 1, txm.readOnly)
	assert.Zero(t, txm.readWrite)

	err = repo.SavePattern(ctx, "acct-A", numerator.DocTypeInvoice, "FA-{SEQ:3}")
	require.ErrorIs(t, err, errDown)
	assert.Equal(t, 1, txm.readOnly)
	assert.Equal(t, 1, txm.readWrite)
}

func TestGetQuery(t *testing.T) {
	sql, args, err := getQuery("acct-A", numerator.DocTypeQuote)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT account_id, document_type, pattern, updated_at, updated_by FROM numbering_settings WHERE account_id = $1 AND document_type = $2",
		sql)
	assert.Equal(t, []any{"acct-A", "quote"}, args)
}

func TestSaveQuery(t *testing.T) {
	user := "user-1"
	now := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	sql, args, err := saveQuery(numbering.Setting{
		AccountID: "acct-A",
		DocType:   numerator.DocTypeInvoice,
		Pattern:   "FA-{SEQ:3}-{YY}",
		UpdatedAt: now,
		UpdatedBy: &user,
	})
	require.NoError(t, err)

	// SetMap orders columns alphabetically
	assert.True(t, strings.HasPrefix(sql,
		"INSERT INTO numbering_settings (account_id,document_type,pattern,updated_at,updated_by) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (account_id, document_type) DO UPDATE SET"), sql)
	assert.Contains(t, sql, "pattern = excluded.pattern")
	require.Len(t, args, 5)
	assert.Equal(t, "acct-A", args[0])
	assert.Equal(t, "invoice", args[1])
	assert.Equal(t, "FA-{SEQ:3}-{YY}", args[2])
	assert.Equal(t, now, args[3])
	assert.Equal(t, &user, args[4])
}
