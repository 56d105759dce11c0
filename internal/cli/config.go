package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docnum/internal/core/numerator"
)

// Config is the resolved CLI configuration.
//
// Sources, in order of precedence:
//  1. command line flags
//  2. environment variables (NUMBERING_DRIVER, NUMBERING_DSN, NUMBERING_ACCOUNT)
//  3. the YAML file given by --config or NUMBERING_CONFIG
//  4. defaults
//
// Example file:
//
//	driver: sqlite
//	dsn: ./numbering.db
//	account: acct-A
//	patterns:
//	  invoice: "INV-{YYYY}-{MM}-{SEQ:4}"
type Config struct {
	Driver   string
	DSN      string
	Account  string
	Patterns map[string]string
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultSQLitePath = "numbering.db"

	envPrefix = "NUMBERING"
)

// newViper binds the root persistent flags and the environment.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("driver", DriverSQLite)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// postgres only; never used as a SQLite path
	if err := v.BindEnv("database_url", "DATABASE_URL"); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// resolveConfig layers flags, environment and config file, then checks the result.
func resolveConfig(cmd *cobra.Command) (Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Driver:   v.GetString("driver"),
		DSN:      v.GetString("dsn"),
		Account:  v.GetString("account"),
		Patterns: v.GetStringMapString("patterns"),
	}

	switch cfg.Driver {
	case DriverMemory:
	case DriverSQLite:
		if cfg.DSN == "" {
			cfg.DSN = defaultSQLitePath
		}
	case DriverPostgres:
		if cfg.DSN == "" {
			cfg.DSN = v.GetString("database_url")
		}
		if cfg.DSN == "" {
			return Config{}, fmt.Errorf("postgres driver needs --dsn or DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown driver %q: must be memory, sqlite or postgres", cfg.Driver)
	}

	for docType, pattern := range cfg.Patterns {
		if _, err := numerator.ParseDocType(docType); err != nil {
			return Config{}, fmt.Errorf("config patterns: %w", err)
		}
		if res := numerator.Validate(pattern); !res.Valid {
			return Config{}, fmt.Errorf("config pattern for %s: %s", docType, res.Error)
		}
	}
	return cfg, nil
}

// patternFor picks the explicit pattern, then the configured one, then the default.
func (c Config) patternFor(docType numerator.DocType, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p, ok := c.Patterns[string(docType)]; ok {
		return p
	}
	return docType.DefaultPattern()
}
