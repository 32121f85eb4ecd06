package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/metrics"
	"github.com/halosight/presence-cli/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal audit worker",
	Long: `Polls the Temporal task queue and executes audit workflows: one
activity per platform query, so a worker crash resumes an audit instead
of re-running finished queries.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("worker"); err != nil {
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

		exec := buildExecutor(st, dlqOption(st)...)
		w, err := queue.NewWorker(cfg.Temporal, queue.NewActivities(exec))
		if err != nil {
			return eris.Wrap(err, "create worker")
		}

		zap.L().Info("worker starting",
			zap.String("host_port", cfg.Temporal.HostPort),
			zap.String("task_queue", cfg.Temporal.TaskQueue))
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
