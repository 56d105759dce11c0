// Package numerator provides SQL-backed sequence stores for document numbering.
// Every allocation is a single UPSERT ... RETURNING statement, so the database
// row lock is the only serialization point and nothing is cached in process.
package numerator

import (
	"github.com/Masterminds/squirrel"

	corenumerator "docnum/internal/core/numerator"
)

const (
	sequencesTable = "sys_sequences"
	conflictTarget = "ON CONFLICT (account_id, document_type, period_key, prefix_key)"
)

var counterColumns = []string{"document_type", "period_key", "prefix_key", "current_val", "updated_at"}

func scopeEq(scope corenumerator.Scope) squirrel.Eq {
	return squirrel.Eq{
		"account_id":    scope.Account,
		"document_type": string(scope.DocType),
		"period_key":    scope.PeriodKey,
		"prefix_key":    scope.PrefixKey,
	}
}

// allocateQuery inserts the first value of a scope or increments an existing one.
func allocateQuery(b squirrel.StatementBuilderType, scope corenumerator.Scope) (string, []any, error) {
	return b.Insert(sequencesTable).
		Columns("account_id", "document_type", "period_key", "prefix_key", "current_val").
		Values(scope.Account, string(scope.DocType), scope.PeriodKey, scope.PrefixKey, 1).
		Suffix(conflictTarget + " DO UPDATE SET current_val = " + sequencesTable + ".current_val + 1, updated_at = CURRENT_TIMESTAMP RETURNING current_val").
		ToSql()
}

// advanceQuery raises a counter to value; max is the dialect's two-argument maximum.
func advanceQuery(b squirrel.StatementBuilderType, max string, scope corenumerator.Scope, value int64) (string, []any, error) {
	return b.Insert(sequencesTable).
		Columns("account_id", "document_type", "period_key", "prefix_key", "current_val").
		Values(scope.Account, string(scope.DocType), scope.PeriodKey, scope.PrefixKey, value).
		Suffix(conflictTarget + " DO UPDATE SET current_val = " + max + "(" + sequencesTable + ".current_val, excluded.current_val), updated_at = CURRENT_TIMESTAMP RETURNING current_val").
		ToSql()
}

func peekQuery(b squirrel.StatementBuilderType, scope corenumerator.Scope) (string, []any, error) {
	return b.Select("current_val").
		From(sequencesTable).
		Where(scopeEq(scope)).
		ToSql()
}

func countersQuery(b squirrel.StatementBuilderType, account string) (string, []any, error) {
	return b.Select(counterColumns...).
		From(sequencesTable).
		Where(squirrel.Eq{"account_id": account}).
		OrderBy("document_type", "period_key", "prefix_key").
		ToSql()
}
