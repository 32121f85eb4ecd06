package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/audit"
	"github.com/halosight/presence-cli/internal/cost"
	"github.com/halosight/presence-cli/internal/resilience"
	"github.com/halosight/presence-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "presence.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// buildExecutor wires the platform registry, cost calculator, and store
// into an audit executor. Callers that want failed queries dead-lettered
// pass dlqOption(st).
func buildExecutor(st store.Store, opts ...audit.Option) *audit.Executor {
	breakers := resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	registry := audit.BuildRegistry(cfg, breakers)
	calc := cost.NewCalculator(audit.RatesFromConfig(cfg.Pricing))
	return audit.NewExecutor(st, registry, calc, cfg.Audit, opts...)
}

// dlqOption returns the dead-letter option when the store supports it.
func dlqOption(st store.Store) []audit.Option {
	if dlq, ok := st.(store.DLQStore); ok {
		return []audit.Option{audit.WithDLQ(dlq)}
	}
	return nil
}

// analyzerOptions loads scoring-table overrides when
// analytics.tables_path is set. The lexicon command shares them.
func analyzerOptions() ([]analytics.Option, error) {
	if cfg.Analytics.TablesPath == "" {
		return nil, nil
	}
	tables, err := analytics.LoadTables(cfg.Analytics.TablesPath)
	if err != nil {
		return nil, eris.Wrap(err, "load scoring tables")
	}
	return []analytics.Option{analytics.WithTables(tables)}, nil
}

func initAnalyzer() (*analytics.Analyzer, error) {
	opts, err := analyzerOptions()
	if err != nil {
		return nil, err
	}
	return analytics.New(opts...), nil
}
