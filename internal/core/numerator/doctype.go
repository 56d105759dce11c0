package numerator

import (
	"fmt"
	"strings"
)

// DocType distinguishes numbering series. Each type has its own counters.
type DocType string

const (
	DocTypeInvoice DocType = "invoice"
	DocTypeQuote   DocType = "quote"
)

// Default patterns for first-time setup.
const (
	DefaultInvoicePattern = "FA-{SEQ:3}-{YY}"
	DefaultQuotePattern   = "DEV-{SEQ:3}-{YY}"
)

// DocTypes lists supported document types.
func DocTypes() []DocType {
	return []DocType{DocTypeInvoice, DocTypeQuote}
}

// Valid reports whether t is a supported document type.
func (t DocType) Valid() bool {
	return t == DocTypeInvoice || t == DocTypeQuote
}

// DefaultPattern returns the pattern used until the account configures its own.
func (t DocType) DefaultPattern() string {
	switch t {
	case DocTypeInvoice:
		return DefaultInvoicePattern
	case DocTypeQuote:
		return DefaultQuotePattern
	default:
		return ""
	}
}

// ParseDocType parses a document type name (case-insensitive).
func ParseDocType(s string) (DocType, error) {
	t := DocType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDocType, s)
	}
	return t, nil
}
