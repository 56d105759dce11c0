// Package tx defines the transaction boundary used by domain services.
// Implementations live in infrastructure/storage.
package tx

import (
	"context"
)

// Manager runs a unit of work atomically.
//
// Counter allocation deliberately stays outside of it: a number handed out
// inside a rolled-back transaction is still consumed.
type Manager interface {
	// RunInTransaction executes fn within a transaction.
	// An error from fn rolls back; nested calls join the outer transaction.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
