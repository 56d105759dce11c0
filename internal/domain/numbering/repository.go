// Package numbering holds per-account numbering settings and the service
// that turns them into document numbers.
package numbering

import (
	"context"
	"sync"
	"time"

	"docnum/internal/core/numerator"
)

// Setting is the stored pattern for one (account, document type).
type Setting struct {
	AccountID string            `db:"account_id"`
	DocType   numerator.DocType `db:"document_type"`
	Pattern   string            `db:"pattern"`
	UpdatedAt time.Time         `db:"updated_at"`
	UpdatedBy *string           `db:"updated_by"`
}

// SettingsRepository persists numbering patterns.
type SettingsRepository interface {
	// GetPattern returns the stored pattern; found is false when none was saved.
	GetPattern(ctx context.Context, account string, docType numerator.DocType) (pattern string, found bool, err error)

	// SavePattern stores the pattern, replacing any previous one.
	// Callers validate first; the repository stores what it is given.
	SavePattern(ctx context.Context, account string, docType numerator.DocType, pattern string) error
}

type settingsKey struct {
	account string
	docType numerator.DocType
}

// MemorySettingsRepository is an in-process SettingsRepository.
type MemorySettingsRepository struct {
	mu       sync.RWMutex
	patterns map[settingsKey]string
}

// NewMemorySettingsRepository creates an empty repository.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{patterns: make(map[settingsKey]string)}
}

// GetPattern implements SettingsRepository.
func (r *MemorySettingsRepository) GetPattern(_ context.Context, account string, docType numerator.DocType) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patterns[settingsKey{account, docType}]
	return p, ok, nil
}

// SavePattern implements SettingsRepository.
func (r *MemorySettingsRepository) SavePattern(_ context.Context, account string, docType numerator.DocType, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.patterns[settingsKey{account, docType}] = pattern
	return nil
}

var _ SettingsRepository = (*MemorySettingsRepository)(nil)
