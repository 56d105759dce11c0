package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"docnum/internal/core/apperror"
	appctx "docnum/internal/core/context"
	"docnum/internal/infrastructure/storage/postgres"
	"docnum/pkg/logger"
)

const HeaderIdempotencyKey = "Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

// IdempotencyStore records responses by account and key.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, account, key, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, account, key string, statusCode int, contentType string, body []byte) error
	ReleaseKey(ctx context.Context, account, key string) error
}

// capturingWriter keeps a copy of the response body.
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when a request carries a key it has
// already seen. Only successful responses are stored; after an error the key
// is released and a retry runs again. Requests without a key pass through.
// Must run after Auth.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		account := appctx.GetAccountID(ctx)

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, err := io.ReadAll(limited)
		if err != nil {
			_ = c.Error(apperror.NewValidation("failed to read request body").WithCause(err))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)
		requestHash := hex.EncodeToString(hash[:])

		// The document type is part of the path, so the operation is too.
		operation := c.Request.Method + " " + c.Request.URL.Path

		replay, err := store.AcquireKey(ctx, account, key, operation, requestHash)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
			} else {
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			}
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			c.Abort()
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		status := w.Status()
		if len(c.Errors) == 0 && status >= 200 && status < 300 {
			if err := store.CompleteKey(ctx, account, key, status, w.Header().Get("Content-Type"), w.body.Bytes()); err != nil {
				logger.Warn(ctx, "failed to store idempotent response", "key", key, "error", err)
			}
			return
		}

		// context.Background: the request context may already be cancelled.
		if err := store.ReleaseKey(context.Background(), account, key); err != nil {
			logger.Warn(ctx, "failed to release idempotency key", "key", key, "error", err)
		}
	}
}
