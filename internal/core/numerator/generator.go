package numerator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMissingAccount is returned when no account is given.
var ErrMissingAccount = errors.New("account is required")

// Number is a rendered document number together with the counter it came from.
type Number struct {
	Formatted string
	Sequence  int64
	Scope     Scope
	Date      time.Time
}

// Option configures a Previewer or Generator.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used when no date is given.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Previewer shows what the next number would look like.
// It only holds a Peeker, so it cannot consume counter values.
type Previewer struct {
	peeker Peeker
	now    func() time.Time
}

// NewPreviewer creates a read-only previewer.
func NewPreviewer(peeker Peeker, opts ...Option) *Previewer {
	o := buildOptions(opts)
	return &Previewer{peeker: peeker, now: o.now}
}

// Preview returns the number the next Generate call would produce for the same inputs.
// The value is advisory: a concurrent Generate may take it first.
func (p *Previewer) Preview(ctx context.Context, account string, docType DocType, pattern string, date time.Time) (string, error) {
	n, err := p.PreviewNumber(ctx, account, docType, pattern, date)
	if err != nil {
		return "", err
	}
	return n.Formatted, nil
}

// PreviewNumber is Preview with the counter details.
func (p *Previewer) PreviewNumber(ctx context.Context, account string, docType DocType, pattern string, date time.Time) (Number, error) {
	if p == nil || p.peeker == nil {
		return Number{}, fmt.Errorf("numerator previewer is not initialized")
	}

	res, scope, date, err := prepare(account, docType, pattern, date, p.now)
	if err != nil {
		return Number{}, err
	}

	last, err := p.peeker.Peek(ctx, scope)
	if err != nil {
		return Number{}, fmt.Errorf("peek %s/%s/%s: %w", scope.Account, scope.DocType, scope.PeriodKey, err)
	}

	seq := last + 1
	return Number{
		Formatted: Substitute(pattern, date, seq, res.Padding),
		Sequence:  seq,
		Scope:     scope,
		Date:      date,
	}, nil
}

// Generator allocates document numbers. Call Generate once per document,
// when the document is persisted. Allocated values are never given back.
type Generator struct {
	*Previewer
	allocator Allocator
}

// NewGenerator creates a generator backed by store.
func NewGenerator(store SequenceStore, opts ...Option) *Generator {
	return &Generator{
		Previewer: NewPreviewer(store, opts...),
		allocator: store,
	}
}

// Generate allocates the next counter value for the pattern's scope and renders it.
// A zero date means now. Pattern errors are returned as *PatternError;
// store errors are returned wrapped and must not be retried blindly.
func (g *Generator) Generate(ctx context.Context, account string, docType DocType, pattern string, date time.Time) (string, error) {
	n, err := g.GenerateNumber(ctx, account, docType, pattern, date)
	if err != nil {
		return "", err
	}
	return n.Formatted, nil
}

// Next generates a number dated now.
func (g *Generator) Next(ctx context.Context, account string, docType DocType, pattern string) (string, error) {
	return g.Generate(ctx, account, docType, pattern, time.Time{})
}

// GenerateNumber is Generate with the counter details.
func (g *Generator) GenerateNumber(ctx context.Context, account string, docType DocType, pattern string, date time.Time) (Number, error) {
	if g == nil || g.allocator == nil || g.Previewer == nil {
		return Number{}, fmt.Errorf("numerator generator is not initialized")
	}

	res, scope, date, err := prepare(account, docType, pattern, date, g.now)
	if err != nil {
		return Number{}, err
	}

	seq, err := g.allocator.Allocate(ctx, scope)
	if err != nil {
		return Number{}, fmt.Errorf("allocate %s/%s/%s: %w", scope.Account, scope.DocType, scope.PeriodKey, err)
	}

	return Number{
		Formatted: Substitute(pattern, date, seq, res.Padding),
		Sequence:  seq,
		Scope:     scope,
		Date:      date,
	}, nil
}

// prepare validates inputs and derives the counter scope. It runs on every call:
// a stored pattern is never trusted to still be valid.
func prepare(account string, docType DocType, pattern string, date time.Time, now func() time.Time) (ValidationResult, Scope, time.Time, error) {
	if account == "" {
		return ValidationResult{}, Scope{}, date, ErrMissingAccount
	}
	if !docType.Valid() {
		return ValidationResult{}, Scope{}, date, fmt.Errorf("%w: %q", ErrUnknownDocType, string(docType))
	}

	res := Validate(pattern)
	if !res.Valid {
		return res, Scope{}, date, res.Err()
	}

	if date.IsZero() {
		date = now()
	}

	scope := Scope{
		Account:   account,
		DocType:   docType,
		PeriodKey: PeriodKey(res.HasYear, res.HasMonth, date),
	}
	return res, scope, date, nil
}
