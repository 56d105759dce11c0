package dto

import (
	"time"

	"docnum/internal/core/numerator"
)

// --- Requests ---

// ValidatePatternRequest is the body of POST /numbering/validate.
type ValidatePatternRequest struct {
	Pattern string `json:"pattern"`
}

// SavePatternRequest is the body of PUT /numbering/:docType/pattern.
type SavePatternRequest struct {
	Pattern string `json:"pattern"`
}

// PreviewRequest is the body of POST /numbering/:docType/preview.
// An empty pattern previews the stored one.
type PreviewRequest struct {
	Pattern string `json:"pattern,omitempty"`
	Date    string `json:"date,omitempty"`
}

// NextNumberRequest is the body of POST /numbering/:docType/next.
type NextNumberRequest struct {
	Date string `json:"date,omitempty"`
}

// --- Responses ---

// ValidationResponse reports whether a pattern is usable.
type ValidationResponse struct {
	Valid      bool     `json:"valid"`
	Error      string   `json:"error,omitempty"`
	Rule       string   `json:"rule,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Padding    int      `json:"padding,omitempty"`
	Period     string   `json:"period,omitempty"`
}

// FromValidationResult converts the grammar verdict.
func FromValidationResult(res numerator.ValidationResult) ValidationResponse {
	if pe, ok := numerator.AsPatternError(res.Err()); ok {
		return ValidationResponse{Error: pe.Message, Rule: pe.Kind.String(), Characters: pe.Characters()}
	}
	return ValidationResponse{Valid: true, Padding: res.Padding, Period: res.Period()}
}

// PatternResponse is the current pattern of a document type.
type PatternResponse struct {
	DocumentType string `json:"documentType"`
	Pattern      string `json:"pattern"`
	IsDefault    bool   `json:"isDefault"`
}

// NumberResponse is a generated or previewed number.
type NumberResponse struct {
	Number       string `json:"number"`
	Sequence     int64  `json:"sequence"`
	DocumentType string `json:"documentType"`
	Period       string `json:"period"`
	Date         string `json:"date"`
	Advisory     bool   `json:"advisory,omitempty"`
}

// FromNumber converts a numerator.Number.
func FromNumber(n numerator.Number, advisory bool) NumberResponse {
	return NumberResponse{
		Number:       n.Formatted,
		Sequence:     n.Sequence,
		DocumentType: string(n.Scope.DocType),
		Period:       n.Scope.PeriodKey,
		Date:         n.Date.Format(DateLayout),
		Advisory:     advisory,
	}
}

// CounterResponse is one counter of the account.
type CounterResponse struct {
	DocumentType string    `json:"documentType"`
	Period       string    `json:"period"`
	Value        int64     `json:"value"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FromCounters converts store counters.
func FromCounters(cs []numerator.Counter) []CounterResponse {
	out := make([]CounterResponse, len(cs))
	for i, c := range cs {
		out[i] = CounterResponse{
			DocumentType: string(c.DocType),
			Period:       c.PeriodKey,
			Value:        c.Value,
			UpdatedAt:    c.UpdatedAt,
		}
	}
	return out
}
