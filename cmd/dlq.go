package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/metrics"
	"github.com/halosight/presence-cli/internal/resilience"
	"github.com/halosight/presence-cli/internal/store"
)

// dlqRetryBase doubles per prior attempt when re-scheduling a failed
// retry.
const dlqRetryBase = 5 * time.Minute

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and retry dead-lettered platform queries",
}

var (
	dlqPlatform  string
	dlqErrorType string
	dlqLimit     int
)

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queries due for retry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		dlq, st, err := initDLQ(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := dlq.DequeueDLQ(ctx, resilience.DLQFilter{
			Platform:  dlqPlatform,
			ErrorType: dlqErrorType,
			Limit:     dlqLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list dead letter queue")
		}

		total, err := dlq.CountDLQ(ctx)
		if err != nil {
			return eris.Wrap(err, "count dead letter queue")
		}

		zap.L().Info("dead letter queue",
			zap.Int("due", len(entries)),
			zap.Int("total", total))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-run dead-lettered queries",
	Long: `Re-executes every query that is due for retry. Recovered queries
leave the dead letter queue and their audit's analytics snapshot is
recomputed; queries that fail again are re-scheduled with a doubled
delay until their retry budget runs out.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("audit"); err != nil {
			return err
		}

		dlq, st, err := initDLQ(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := dlq.DequeueDLQ(ctx, resilience.DLQFilter{
			Platform:  dlqPlatform,
			ErrorType: dlqErrorType,
			Limit:     dlqLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list dead letter queue")
		}
		if len(entries) == 0 {
			zap.L().Info("no dead letter entries due")
			return nil
		}

		metrics.Init()

		// No DLQ option here: the executor would re-enqueue each failure
		// with a reset retry count, losing the budget this command
		// enforces.
		exec := buildExecutor(st)

		var recovered, requeued int
		touched := make(map[string]bool)
		for i := range entries {
			entry := &entries[i]
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "dlq retry interrupted")
			}

			rec := entry.Record
			if err := exec.ExecuteQuery(ctx, &rec); err != nil {
				requeued++
				next := time.Now().UTC().Add(dlqRetryBase << uint(entry.RetryCount))
				if ierr := dlq.IncrementDLQRetry(ctx, entry.ID, next, err.Error()); ierr != nil {
					zap.L().Warn("failed to re-schedule dead letter entry",
						zap.String("query_id", entry.ID), zap.Error(ierr))
				}
				continue
			}

			recovered++
			touched[rec.AuditID] = true
			if rerr := dlq.RemoveDLQ(ctx, entry.ID); rerr != nil {
				zap.L().Warn("failed to remove recovered dead letter entry",
					zap.String("query_id", entry.ID), zap.Error(rerr))
			}
		}

		// Recovered responses change the record set, so the stored
		// snapshots are stale until refreshed.
		for auditID := range touched {
			if err := exec.Finalize(ctx, auditID); err != nil {
				zap.L().Warn("failed to refresh analytics",
					zap.String("audit_id", auditID), zap.Error(err))
			}
		}

		zap.L().Info("dead letter retry complete",
			zap.Int("recovered", recovered),
			zap.Int("requeued", requeued),
			zap.Int("audits_refreshed", len(touched)))
		return nil
	},
}

// initDLQ opens the store and asserts its dead-letter side.
func initDLQ(ctx context.Context) (store.DLQStore, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}
	dlq, ok := st.(store.DLQStore)
	if !ok {
		_ = st.Close()
		return nil, nil, eris.Errorf("store driver %s has no dead letter queue", cfg.Store.Driver)
	}
	return dlq, st, nil
}

func init() {
	for _, c := range []*cobra.Command{dlqListCmd, dlqRetryCmd} {
		f := c.Flags()
		f.StringVar(&dlqPlatform, "platform", "", "filter by platform")
		f.StringVar(&dlqErrorType, "error-type", "", "filter by error type: transient or permanent")
		f.IntVar(&dlqLimit, "limit", 50, "max entries to process")
	}

	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}
