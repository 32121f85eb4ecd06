package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/cache"
	"github.com/halosight/presence-cli/internal/metrics"
	"github.com/halosight/presence-cli/internal/monitoring"
	"github.com/halosight/presence-cli/internal/queue"
	"github.com/halosight/presence-cli/internal/server"
	"github.com/halosight/presence-cli/internal/store"
)

var (
	servePort   int
	serveInline bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the audit HTTP API",
	Long: `Serves the REST API: entity and audit CRUD, audit enqueueing, and
cache-aware analytics reads. Audits are handed to the Temporal worker by
default; --inline runs them on in-process goroutines instead (platform
API keys required).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		metrics.Init()

		analyzer, err := initAnalyzer()
		if err != nil {
			return err
		}

		opts := []server.Option{
			server.WithAnalyzer(analyzer),
			server.WithCORS(cfg.Server.CORSOrigins),
		}

		if serveInline {
			if err := cfg.Validate("audit"); err != nil {
				return err
			}
			opts = append(opts, server.WithEnqueuer(server.NewInlineEnqueuer(buildExecutor(st, dlqOption(st)...))))
			zap.L().Info("running audits inline")
		} else {
			q, err := queue.NewEnqueuer(cfg.Temporal)
			if err != nil {
				return eris.Wrap(err, "connect temporal")
			}
			defer q.Close()
			opts = append(opts, server.WithEnqueuer(q))
		}

		if cfg.Cache.Enabled {
			c, err := cache.New(cfg.Cache)
			if err != nil {
				zap.L().Warn("cache unavailable, serving without it", zap.Error(err))
			} else {
				defer c.Close()
				opts = append(opts, server.WithCache(c))
			}
		}

		if cfg.Monitoring.WebhookURL != "" {
			dlq, _ := st.(store.DLQStore)
			checker := monitoring.NewChecker(
				monitoring.NewCollector(st, dlq),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		return server.New(st, cfg.Audit, opts...).Start(ctx, port)
	},
}

func init() {
	f := serveCmd.Flags()
	f.IntVar(&servePort, "port", 0, "server port (default from config)")
	f.BoolVar(&serveInline, "inline", false, "run audits in-process instead of via Temporal")
	rootCmd.AddCommand(serveCmd)
}
