package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docnum/internal/core/numerator"
	"docnum/internal/infrastructure/storage/postgres"
	"docnum/pkg/logger"
)

const dateLayout = "2006-01-02"

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ExitError{Code: ExitCommandError, Message: "date must be YYYY-MM-DD", Err: err}
	}
	return d, nil
}

func requireAccount(cfg Config) error {
	if cfg.Account == "" {
		return &ExitError{Code: ExitCommandError, Message: "--account is required"}
	}
	return nil
}

// numberArgs are shared by preview, generate and seed.
type numberArgs struct {
	docType string
	pattern string
	date    string
}

func (a *numberArgs) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&a.docType, "type", "t", string(numerator.DocTypeInvoice), "document type (invoice|quote)")
	cmd.Flags().StringVarP(&a.pattern, "pattern", "p", "", "pattern (default: configured or built-in)")
	cmd.Flags().StringVar(&a.date, "date", "", "document date YYYY-MM-DD (default: today)")
}

func (a *numberArgs) resolve(cfg Config) (numerator.DocType, string, time.Time, error) {
	dt, err := numerator.ParseDocType(a.docType)
	if err != nil {
		return "", "", time.Time{}, &ExitError{Code: ExitCommandError, Message: "invalid --type", Err: err}
	}
	date, err := parseDate(a.date)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return dt, cfg.patternFor(dt, a.pattern), date, nil
}

// handleNumberError renders pattern errors; store errors propagate unchanged.
func handleNumberError(f *OutputFormatter, err error) error {
	if pe, ok := numerator.AsPatternError(err); ok {
		return f.patternFailure(pe)
	}
	if ferr := f.Error("store_error", err.Error(), nil); ferr != nil {
		return ferr
	}
	return &ExitError{Code: ExitCommandError, Message: "sequence store failed", Err: err}
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate <pattern>",
		Short:         "Check a numbering pattern",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := formatter(opts, cmd)
			res := numerator.Validate(args[0])
			if !res.Valid {
				pe, _ := numerator.AsPatternError(res.Err())
				return f.patternFailure(pe)
			}

			data := map[string]any{"valid": true, "padding": res.Padding, "period": res.Period()}
			return f.Success(data, fmt.Sprintf("✓ valid: counter width %d, resets %s", res.Padding, res.Period()))
		},
	}
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(opts *RootOptions) *cobra.Command {
	args := &numberArgs{}
	cmd := &cobra.Command{
		Use:           "preview",
		Short:         "Show the next number without consuming it",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := formatter(opts, cmd)
			if err := requireAccount(opts.config); err != nil {
				return err
			}
			dt, pattern, date, err := args.resolve(opts.config)
			if err != nil {
				return err
			}

			store, release, err := openStore(cmd.Context(), opts.config)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "open store", Err: err}
			}
			defer release()

			n, err := numerator.NewPreviewer(store).PreviewNumber(cmd.Context(), opts.config.Account, dt, pattern, date)
			if err != nil {
				return handleNumberError(f, err)
			}
			return f.Success(numberData(n, true), n.Formatted+" (preview)")
		},
	}
	args.bind(cmd)
	return cmd
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(opts *RootOptions) *cobra.Command {
	args := &numberArgs{}
	var count int
	cmd := &cobra.Command{
		Use:           "generate",
		Short:         "Allocate document numbers",
		Long:          "Allocate document numbers. Allocated numbers are never reused, even if the document is discarded.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := formatter(opts, cmd)
			if err := requireAccount(opts.config); err != nil {
				return err
			}
			if count < 1 {
				return &ExitError{Code: ExitCommandError, Message: "--count must be at least 1"}
			}
			dt, pattern, date, err := args.resolve(opts.config)
			if err != nil {
				return err
			}

			store, release, err := openStore(cmd.Context(), opts.config)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "open store", Err: err}
			}
			defer release()

			gen := numerator.NewGenerator(store)
			data := make([]map[string]any, 0, count)
			var text string
			for i := 0; i < count; i++ {
				n, err := gen.GenerateNumber(cmd.Context(), opts.config.Account, dt, pattern, date)
				if err != nil {
					return handleNumberError(f, err)
				}
				logger.Debug(cmd.Context(), "number allocated", "number", n.Formatted, "sequence", n.Sequence)
				data = append(data, numberData(n, false))
				if i > 0 {
					text += "\n"
				}
				text += n.Formatted
			}
			return f.Success(data, text)
		},
	}
	args.bind(cmd)
	cmd.Flags().IntVarP(&count, "count", "n", 1, "how many numbers to allocate")
	return cmd
}

// NewCountersCommand creates the counters command.
func NewCountersCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "counters",
		Short:         "List the account's counters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := formatter(opts, cmd)
			if err := requireAccount(opts.config); err != nil {
				return err
			}

			store, release, err := openStore(cmd.Context(), opts.config)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "open store", Err: err}
			}
			defer release()

			counters, err := store.Counters(cmd.Context(), opts.config.Account)
			if err != nil {
				return handleNumberError(f, err)
			}
			return f.Success(counterData(counters), describeCounters(counters))
		},
	}
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	args := &numberArgs{}
	var (
		value      int64
		fromNumber string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Continue numbering from an existing sequence",
		Long: `Raise a counter so that the next generated number follows an existing one,
e.g. when migrating from another invoicing tool. Counters are never lowered.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := formatter(opts, cmd)
			if err := requireAccount(opts.config); err != nil {
				return err
			}
			if (value > 0) == (fromNumber != "") {
				return &ExitError{Code: ExitCommandError, Message: "exactly one of --value or --from-number is required"}
			}
			dt, pattern, date, err := args.resolve(opts.config)
			if err != nil {
				return err
			}

			res := numerator.Validate(pattern)
			if !res.Valid {
				pe, _ := numerator.AsPatternError(res.Err())
				return f.patternFailure(pe)
			}

			if fromNumber != "" {
				value, err = numerator.Parse(pattern, fromNumber)
				if err != nil {
					if errors.Is(err, numerator.ErrNumberMismatch) {
						if ferr := f.Error("number_mismatch", err.Error(), nil); ferr != nil {
							return ferr
						}
						return &ExitError{Code: ExitFailure, Message: "cannot seed", Err: err}
					}
					return handleNumberError(f, err)
				}
			}
			if date.IsZero() {
				date = time.Now()
			}

			store, release, err := openStore(cmd.Context(), opts.config)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "open store", Err: err}
			}
			defer release()

			scope := numerator.Scope{
				Account:   opts.config.Account,
				DocType:   dt,
				PeriodKey: numerator.PeriodKey(res.HasYear, res.HasMonth, date),
			}
			current, err := store.Advance(cmd.Context(), scope, value)
			if err != nil {
				return handleNumberError(f, err)
			}

			next := numerator.Substitute(pattern, date, current+1, res.Padding)
			data := map[string]any{"documentType": dt, "period": scope.PeriodKey, "value": current, "next": next}
			return f.Success(data, fmt.Sprintf("%s %s counter at %d, next number %s", dt, scope.PeriodKey, current, next))
		},
	}
	args.bind(cmd)
	cmd.Flags().Int64Var(&value, "value", 0, "last number already used")
	cmd.Flags().StringVar(&fromNumber, "from-number", "", "last formatted number already used, e.g. FA-041-25")
	return cmd
}

// NewMigrateCommand creates the migrate command (postgres driver only).
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply PostgreSQL schema migrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := formatter(opts, cmd)
			if opts.config.Driver != DriverPostgres {
				return &ExitError{Code: ExitCommandError, Message: "migrate requires --driver postgres"}
			}
			if err := postgres.RunMigrations(cmd.Context(), opts.config.DSN); err != nil {
				return &ExitError{Code: ExitCommandError, Message: "migrate", Err: err}
			}
			return f.Success(map[string]any{"migrated": true}, "✓ migrations applied")
		},
	}
}

func numberData(n numerator.Number, advisory bool) map[string]any {
	data := map[string]any{
		"number":       n.Formatted,
		"sequence":     n.Sequence,
		"documentType": n.Scope.DocType,
		"period":       n.Scope.PeriodKey,
		"date":         n.Date.Format(dateLayout),
	}
	if advisory {
		data["advisory"] = true
	}
	return data
}
