// Package settings_repo provides the PostgreSQL numbering settings repository.
package settings_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	appctx "docnum/internal/core/context"
	"docnum/internal/core/numerator"
	"docnum/internal/core/tx"
	"docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/storage/postgres"
)

const tableName = "numbering_settings"

var selectCols = postgres.ExtractDBColumns[numbering.Setting]()

// txRunner is the part of postgres.TxManager the repository uses.
type txRunner interface {
	tx.ReadOnlyManager
	GetQuerier(ctx context.Context) postgres.Querier
}

// Repo stores one pattern per (account, document type).
type Repo struct {
	txManager txRunner
}

var _ numbering.SettingsRepository = (*Repo)(nil)

// New creates a settings repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{txManager: txManager}
}

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func getQuery(account string, docType numerator.DocType) (string, []any, error) {
	return builder().
		Select(selectCols...).
		From(tableName).
		Where(squirrel.Eq{"account_id": account, "document_type": string(docType)}).
		ToSql()
}

func saveQuery(s numbering.Setting) (string, []any, error) {
	data := postgres.StructToMap(s)
	data["document_type"] = string(s.DocType)

	return builder().
		Insert(tableName).
		SetMap(data).
		Suffix("ON CONFLICT (account_id, document_type) DO UPDATE SET " +
			"pattern = excluded.pattern, updated_at = excluded.updated_at, updated_by = excluded.updated_by").
		ToSql()
}

// GetPattern implements numbering.SettingsRepository.
func (r *Repo) GetPattern(ctx context.Context, account string, docType numerator.DocType) (string, bool, error) {
	sql, args, err := getQuery(account, docType)
	if err != nil {
		return "", false, fmt.Errorf("build select: %w", err)
	}

	var (
		s     numbering.Setting
		found bool
	)
	err = r.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, sql, args...); err != nil {
			if pgxscan.NotFound(err) {
				return nil
			}
			return fmt.Errorf("select %s: %w", tableName, err)
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return "", false, err
	}
	return s.Pattern, true, nil
}

// SavePattern implements numbering.SettingsRepository.
func (r *Repo) SavePattern(ctx context.Context, account string, docType numerator.DocType, pattern string) error {
	s := numbering.Setting{
		AccountID: account,
		DocType:   docType,
		Pattern:   pattern,
		UpdatedAt: time.Now().UTC(),
	}
	if userID := appctx.GetUserID(ctx); userID != "" {
		s.UpdatedBy = &userID
	}

	sql, args, err := saveQuery(s)
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("upsert %s: %w", tableName, err)
		}
		return nil
	})
}
