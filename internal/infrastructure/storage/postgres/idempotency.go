package postgres

import (
	"context"
	"fmt"
	"time"

	"docnum/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent request.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
)

// stalePending is how long a pending key blocks retries before it is reclaimed.
const stalePending = time.Minute

// IdempotencyRecord is a row of sys_idempotency.
type IdempotencyRecord struct {
	AccountID   string            `db:"account_id"`
	Key         string            `db:"idempotency_key"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"` // SHA256 of request body
	Response    []byte            `db:"response"`
	StatusCode  int               `db:"response_status"`
	ContentType string            `db:"response_content_type"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
}

// IdempotencyReplay is a stored HTTP response to send again.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore remembers responses to number allocations so a client
// can retry a request without consuming a second number.
// Keys are scoped to the account.
type IdempotencyStore struct {
	q   Querier
	ttl time.Duration
	now func() time.Time
}

// NewIdempotencyStore creates a store on q. Bookkeeping runs outside request
// transactions, so pass the pool.
func NewIdempotencyStore(q Querier, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{q: q, ttl: ttl, now: time.Now}
}

// AcquireKey claims key for the request.
// Returns:
//   - (nil, nil) if the key was claimed and the request should run
//   - (replay, nil) if the request already completed
//   - (nil, error) if the key is in flight or belongs to another request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, account, key, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now().UTC()

	var (
		rec      IdempotencyRecord
		inserted bool
	)
	err := s.q.QueryRow(ctx, `
		INSERT INTO sys_idempotency (account_id, idempotency_key, operation, status, request_hash, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (account_id, idempotency_key) DO UPDATE SET
			expires_at = GREATEST(sys_idempotency.expires_at, excluded.expires_at)
		RETURNING operation, status, request_hash, response, response_status, response_content_type, updated_at, (xmax = 0)
	`, account, key, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl)).Scan(
		&rec.Operation, &rec.Status, &rec.RequestHash, &rec.Response,
		&rec.StatusCode, &rec.ContentType, &rec.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if inserted {
		return nil, nil
	}

	if rec.Operation != operation || rec.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}

	switch rec.Status {
	case IdempotencyStatusSuccess:
		return &IdempotencyReplay{
			StatusCode:  normalizeReplayStatus(rec.StatusCode),
			ContentType: normalizeReplayContentType(rec.ContentType),
			Body:        rec.Response,
		}, nil

	default:
		if now.Sub(rec.UpdatedAt) <= stalePending {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		// The previous attempt died without releasing the key.
		tag, err := s.q.Exec(ctx, `
			UPDATE sys_idempotency SET updated_at = $1
			WHERE account_id = $2 AND idempotency_key = $3 AND status = $4 AND updated_at = $5
		`, now, account, key, IdempotencyStatusPending, rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("reclaim stale idempotency key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, nil
	}
}

// CompleteKey stores the response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, account, key string, statusCode int, contentType string, body []byte) error {
	_, err := s.q.Exec(ctx, `
		UPDATE sys_idempotency
		SET status = $1,
		    response = $2,
		    response_status = $3,
		    response_content_type = $4,
		    updated_at = $5
		WHERE account_id = $6 AND idempotency_key = $7
	`, IdempotencyStatusSuccess, body, statusCode, contentType, s.now().UTC(), account, key)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// ReleaseKey forgets a pending key so the next attempt runs again.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, account, key string) error {
	_, err := s.q.Exec(ctx, `
		DELETE FROM sys_idempotency
		WHERE account_id = $1 AND idempotency_key = $2 AND status = $3
	`, account, key, IdempotencyStatusPending)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM sys_idempotency WHERE expires_at < $1`, s.now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func normalizeReplayStatus(status int) int {
	if status == 0 {
		return 200
	}
	return status
}

func normalizeReplayContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}
