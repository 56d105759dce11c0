package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type audited struct {
	UpdatedAt time.Time `db:"updated_at"`
	UpdatedBy *string   `db:"updated_by"`
}

type testRow struct {
	audited
	AccountID string `db:"account_id"`
	Pattern   string `db:"pattern" json:"pattern"`
	Scratch   string `db:"-"`
	Note      string
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[testRow]()

	assert.ElementsMatch(t, []string{"account_id", "pattern", "updated_at", "updated_by"}, cols)
	assert.NotContains(t, cols, "-")

	// pointers resolve to the same columns
	assert.ElementsMatch(t, cols, ExtractDBColumns[*testRow]())
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	user := "user-1"
	row := testRow{
		audited:   audited{UpdatedAt: now, UpdatedBy: &user},
		AccountID: "acct-A",
		Pattern:   "FA-{SEQ:3}-{YY}",
		Scratch:   "ignored",
		Note:      "ignored",
	}

	m := StructToMap(&row)

	assert.Len(t, m, 4)
	assert.Equal(t, "acct-A", m["account_id"])
	assert.Equal(t, "FA-{SEQ:3}-{YY}", m["pattern"])
	assert.Equal(t, now, m["updated_at"])
	assert.Equal(t, &user, m["updated_by"])

	assert.Nil(t, StructToMap("not a struct"))
}
