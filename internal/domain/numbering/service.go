package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docnum/internal/core/apperror"
	"docnum/internal/core/numerator"
	"docnum/pkg/logger"
)

// Service manages numbering patterns and hands out document numbers.
// All returned errors are *apperror.AppError.
type Service struct {
	repo      SettingsRepository
	generator *numerator.Generator
	lister    numerator.Lister
}

// ServiceConfig configures the numbering service.
type ServiceConfig struct {
	Repo  SettingsRepository
	Store numerator.SequenceStore

	// Options are passed to the generator (e.g. numerator.WithClock).
	Options []numerator.Option
}

// NewService creates a numbering service.
// Counters is available only when Store also implements numerator.Lister.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		generator: numerator.NewGenerator(cfg.Store, cfg.Options...),
	}
	if l, ok := cfg.Store.(numerator.Lister); ok {
		s.lister = l
	}
	return s
}

// Validate checks a candidate pattern. It never fails; the result carries the verdict.
func (s *Service) Validate(pattern string) numerator.ValidationResult {
	return numerator.Validate(pattern)
}

// Pattern returns the account's pattern for docType, or the built-in default.
func (s *Service) Pattern(ctx context.Context, account string, docType numerator.DocType) (pattern string, isDefault bool, err error) {
	if err := checkArgs(account, docType); err != nil {
		return "", false, err
	}

	pattern, found, err := s.repo.GetPattern(ctx, account, docType)
	if err != nil {
		return "", false, apperror.NewInternal(fmt.Errorf("get pattern: %w", err))
	}
	if !found {
		return docType.DefaultPattern(), true, nil
	}
	return pattern, false, nil
}

// SavePattern stores a new pattern. Invalid patterns are rejected and nothing is saved.
// Existing counters are untouched: a pattern with a different period granularity
// simply starts using other scopes.
func (s *Service) SavePattern(ctx context.Context, account string, docType numerator.DocType, pattern string) error {
	if err := checkArgs(account, docType); err != nil {
		return err
	}

	if res := s.Validate(pattern); !res.Valid {
		pe, _ := numerator.AsPatternError(res.Err())
		return apperror.FromPatternError(pe)
	}

	if err := s.repo.SavePattern(ctx, account, docType, pattern); err != nil {
		return apperror.NewInternal(fmt.Errorf("save pattern: %w", err))
	}

	logger.Info(ctx, "numbering pattern saved",
		"account_id", account,
		"document_type", string(docType),
		"pattern", pattern,
	)
	return nil
}

// Preview shows the next number for candidate, or for the stored pattern when
// candidate is empty. The result is advisory and consumes nothing.
func (s *Service) Preview(ctx context.Context, account string, docType numerator.DocType, candidate string, date time.Time) (numerator.Number, error) {
	if err := checkArgs(account, docType); err != nil {
		return numerator.Number{}, err
	}

	pattern := candidate
	if pattern == "" {
		var err error
		if pattern, _, err = s.Pattern(ctx, account, docType); err != nil {
			return numerator.Number{}, err
		}
	}

	n, err := s.generator.PreviewNumber(ctx, account, docType, pattern, date)
	if err != nil {
		return numerator.Number{}, mapError(err)
	}
	return n, nil
}

// Next allocates the number for a document being persisted now, or at date when given.
// A stored pattern that no longer validates is reported, never replaced by the default.
func (s *Service) Next(ctx context.Context, account string, docType numerator.DocType, date time.Time) (numerator.Number, error) {
	pattern, _, err := s.Pattern(ctx, account, docType)
	if err != nil {
		return numerator.Number{}, err
	}

	n, err := s.generator.GenerateNumber(ctx, account, docType, pattern, date)
	if err != nil {
		if _, ok := numerator.AsPatternError(err); ok {
			logger.Warn(ctx, "stored numbering pattern is invalid",
				"account_id", account,
				"document_type", string(docType),
				"error", err,
			)
		} else {
			logger.Error(ctx, "number allocation failed",
				"account_id", account,
				"document_type", string(docType),
				"error", err,
			)
		}
		return numerator.Number{}, mapError(err)
	}

	logger.Debug(ctx, "number allocated",
		"account_id", account,
		"document_type", string(docType),
		"period", n.Scope.PeriodKey,
		"sequence", n.Sequence,
	)
	return n, nil
}

// Counters lists the account's counters.
func (s *Service) Counters(ctx context.Context, account string) ([]numerator.Counter, error) {
	if account == "" {
		return nil, apperror.NewValidation(numerator.ErrMissingAccount.Error())
	}
	if s.lister == nil {
		return nil, apperror.NewInternal(errors.New("sequence store does not list counters"))
	}

	counters, err := s.lister.Counters(ctx, account)
	if err != nil {
		return nil, apperror.NewSequenceStore(err)
	}
	return counters, nil
}

func checkArgs(account string, docType numerator.DocType) error {
	if account == "" {
		return apperror.NewValidation(numerator.ErrMissingAccount.Error())
	}
	if !docType.Valid() {
		return apperror.NewUnknownDocType(string(docType))
	}
	return nil
}

// mapError converts generator errors to application errors.
func mapError(err error) error {
	if pe, ok := numerator.AsPatternError(err); ok {
		return apperror.FromPatternError(pe)
	}
	if errors.Is(err, numerator.ErrMissingAccount) || errors.Is(err, numerator.ErrUnknownDocType) {
		return apperror.NewValidation(err.Error()).WithCause(err)
	}
	return apperror.NewSequenceStore(err)
}
