package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/cache"
)

var analyzeAuditID string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Recompute analytics for a stored audit",
	Long: `Re-runs the scoring pipeline over an audit's stored query records
and replaces the persisted snapshot. Useful after a scoring-table
override (analytics.tables_path) or a dead-letter retry.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
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

		aud, err := st.GetAudit(ctx, analyzeAuditID)
		if err != nil {
			return eris.Wrap(err, "load audit")
		}
		entity, err := st.GetEntity(ctx, aud.EntityID)
		if err != nil {
			return eris.Wrap(err, "load entity")
		}
		records, err := st.ListQueryRecords(ctx, analyzeAuditID)
		if err != nil {
			return eris.Wrap(err, "load query records")
		}

		analyzer, err := initAnalyzer()
		if err != nil {
			return err
		}

		result := analyzer.Analyze(records, entity.Kind, entity.Industry)
		if err := st.SaveAnalytics(ctx, analyzeAuditID, result); err != nil {
			return eris.Wrap(err, "save analytics")
		}

		// The records didn't change, so the cache key still points at the
		// old snapshot. Drop it.
		if cfg.Cache.Enabled {
			if c, cerr := cache.New(cfg.Cache); cerr != nil {
				zap.L().Warn("cache unavailable, skipping invalidation", zap.Error(cerr))
			} else {
				if cerr := c.Invalidate(ctx, analyzeAuditID); cerr != nil {
					zap.L().Warn("cache invalidation failed", zap.Error(cerr))
				}
				_ = c.Close()
			}
		}

		zap.L().Info("analytics recomputed",
			zap.String("audit_id", analyzeAuditID),
			zap.String("entity", entity.Name),
			zap.Float64("overall_score", result.OverallScore),
			zap.String("table_version", result.TableVersion))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeAuditID, "audit", "", "audit ID (required)")
	_ = analyzeCmd.MarkFlagRequired("audit")
	rootCmd.AddCommand(analyzeCmd)
}
