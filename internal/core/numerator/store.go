package numerator

import (
	"context"
	"time"
)

// Scope identifies one independent counter.
type Scope struct {
	Account   string
	DocType   DocType
	PeriodKey string
	// PrefixKey is reserved for multi-series numbering and is always empty today.
	PrefixKey string
}

// Allocator hands out counter values.
type Allocator interface {
	// Allocate atomically increments the counter of scope and returns the new value.
	// A scope that was never allocated starts at 0, so its first value is 1.
	// Implementations must do this in one atomic operation, not read-then-write.
	Allocate(ctx context.Context, scope Scope) (int64, error)
}

// Peeker reads counters without side effects.
type Peeker interface {
	// Peek returns the last allocated value of scope, or 0 if it was never allocated.
	Peek(ctx context.Context, scope Scope) (int64, error)
}

// SequenceStore is what the Generator needs from persistence.
type SequenceStore interface {
	Allocator
	Peeker
}

// Seeder raises a counter, e.g. after importing documents numbered elsewhere.
// It never lowers a counter.
type Seeder interface {
	Advance(ctx context.Context, scope Scope, value int64) (int64, error)
}

// Counter is a stored counter as listed for an account.
type Counter struct {
	DocType   DocType   `db:"document_type" json:"docType"`
	PeriodKey string    `db:"period_key" json:"periodKey"`
	PrefixKey string    `db:"prefix_key" json:"prefixKey"`
	Value     int64     `db:"current_val" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Lister lists the counters of an account.
type Lister interface {
	Counters(ctx context.Context, account string) ([]Counter, error)
}
