package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/audit"
	"github.com/halosight/presence-cli/internal/metrics"
	"github.com/halosight/presence-cli/internal/queue"
)

var (
	auditEntityID  string
	auditResumeID  string
	auditPlatforms string
	auditEnqueue   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run an AI presence audit for an entity",
	Long: `Creates an audit, fans its questions out across the configured
platforms, and persists the scored result.

Examples:
  # Audit an entity on the configured platforms
  presence-cli audit --entity 3f6f2a0e

  # Audit on two platforms only, without search variants
  presence-cli audit --entity 3f6f2a0e --platforms chatgpt,claude

  # Resume an interrupted audit
  presence-cli audit --audit 9b41c7d2

  # Hand the audit to the Temporal worker instead of running inline
  presence-cli audit --entity 3f6f2a0e --enqueue`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if (auditEntityID == "") == (auditResumeID == "") {
			return eris.New("exactly one of --entity or --audit is required")
		}

		mode := "audit"
		if auditEnqueue {
			// The worker holds the platform keys; enqueueing only needs
			// the store. Temporal connection errors surface on dial.
			mode = "analyze"
		}
		if err := cfg.Validate(mode); err != nil {
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

		auditID := auditResumeID
		if auditID == "" {
			platforms := cfg.Audit.Platforms
			includeSearch := cfg.Audit.IncludeSearchVariants
			if auditPlatforms != "" {
				platforms = strings.Split(auditPlatforms, ",")
				includeSearch = false
			}

			aud, err := st.CreateAudit(ctx, auditEntityID, audit.ExpandPlatforms(platforms, includeSearch))
			if err != nil {
				return eris.Wrap(err, "create audit")
			}
			auditID = aud.ID
			zap.L().Info("audit created",
				zap.String("audit_id", auditID),
				zap.String("entity_id", auditEntityID),
				zap.Strings("platforms", aud.Platforms))
		}

		if auditEnqueue {
			q, err := queue.NewEnqueuer(cfg.Temporal)
			if err != nil {
				return eris.Wrap(err, "connect temporal")
			}
			defer q.Close()

			if _, err := q.Enqueue(ctx, auditID); err != nil {
				return eris.Wrap(err, "enqueue audit")
			}
			return nil
		}

		metrics.Init()
		exec := buildExecutor(st, dlqOption(st)...)
		if err := exec.Run(ctx, auditID); err != nil {
			return eris.Wrapf(err, "run audit %s", auditID)
		}

		result, err := st.GetAnalytics(ctx, auditID)
		if err != nil {
			return eris.Wrap(err, "load analytics")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&auditEntityID, "entity", "", "entity ID to audit")
	f.StringVar(&auditResumeID, "audit", "", "existing audit ID to resume")
	f.StringVar(&auditPlatforms, "platforms", "", "comma-separated platform override (disables search variants)")
	f.BoolVar(&auditEnqueue, "enqueue", false, "enqueue on Temporal instead of running inline")
	rootCmd.AddCommand(auditCmd)
}
