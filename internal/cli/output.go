package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"docnum/internal/core/numerator"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // invalid pattern, number mismatch
	ExitCommandError = 2 // store unavailable, bad flags
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status" yaml:"status"`
	Data   any       `json:"data,omitempty" yaml:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIError is the error part of CLIResponse.
type CLIError struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
	Details any    `json:"details,omitempty" yaml:"details,omitempty"`
}

// OutputFormatter handles text, JSON and YAML output.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// encode writes resp in a structured format; false for text.
func (f *OutputFormatter) encode(resp CLIResponse) (bool, error) {
	switch f.Format {
	case "json":
		return true, json.NewEncoder(f.Writer).Encode(resp)
	case "yaml":
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

// Success writes data; text is used for the text format.
func (f *OutputFormatter) Success(data any, text string) error {
	if ok, err := f.encode(CLIResponse{Status: "ok", Data: data}); ok {
		return err
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error writes a failure.
func (f *OutputFormatter) Error(code, message string, details any) error {
	resp := CLIResponse{
		Status: "error",
		Error:  &CLIError{Code: code, Message: message, Details: details},
	}
	if ok, err := f.encode(resp); ok {
		return err
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

// patternFailure reports an invalid pattern and returns the matching ExitError.
func (f *OutputFormatter) patternFailure(pe *numerator.PatternError) error {
	var details any
	if chars := pe.Characters(); len(chars) > 0 {
		details = map[string]any{"characters": chars}
	}
	if err := f.Error(pe.Kind.String(), pe.Message, details); err != nil {
		return err
	}
	return &ExitError{Code: ExitFailure, Message: "invalid pattern", Err: pe}
}

func counterData(cs []numerator.Counter) []map[string]any {
	data := make([]map[string]any, 0, len(cs))
	for _, c := range cs {
		data = append(data, map[string]any{
			"documentType": string(c.DocType),
			"period":       c.PeriodKey,
			"value":        c.Value,
			"updatedAt":    c.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return data
}

func describeCounters(cs []numerator.Counter) string {
	if len(cs) == 0 {
		return "no counters"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-10s %10s  %s", "TYPE", "PERIOD", "LAST", "UPDATED")
	for _, c := range cs {
		fmt.Fprintf(&b, "\n%-10s %-10s %10d  %s", c.DocType, c.PeriodKey, c.Value, c.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
