package cli

import (
	"context"
	"fmt"

	"docnum/internal/core/numerator"
	infranumerator "docnum/internal/infrastructure/numerator"
	"docnum/internal/infrastructure/storage/postgres"
	"docnum/pkg/logger"
)

// Store is what the commands need from a counter backend.
type Store interface {
	numerator.SequenceStore
	numerator.Seeder
	numerator.Lister
}

// openStore opens the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg Config) (Store, func(), error) {
	logger.Debug(ctx, "opening counter store", "driver", cfg.Driver)

	switch cfg.Driver {
	case DriverMemory:
		return numerator.NewMemoryStore(), func() {}, nil

	case DriverSQLite:
		s, err := infranumerator.NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.DSN)
		poolCfg.MaxConns = 2
		poolCfg.MinConns = 0
		poolCfg.ApplicationName = "docnum-cli"
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, nil, err
		}
		return infranumerator.NewPostgresStore(pool.Pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}
