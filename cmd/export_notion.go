package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/store"
	"github.com/halosight/presence-cli/pkg/notion"
)

var (
	exportNotionAuditID string
	exportNotionAll     bool
)

var exportNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Mirror audits into the Notion audit database",
	Long: `Creates or refreshes one Notion page per audit, keyed by the Audit ID
column. --all refreshes every completed audit in one pass.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if (exportNotionAuditID != "") == exportNotionAll {
			return eris.New("exactly one of --audit or --all is required")
		}
		if cfg.Notion.Token == "" {
			return eris.New("notion token is required (PRESENCE_NOTION_TOKEN)")
		}
		if cfg.Notion.AuditDB == "" {
			return eris.New("notion audit DB ID is required (PRESENCE_NOTION_AUDIT_DB)")
		}

		if err := cfg.Validate("export"); err != nil {
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

		client := notion.NewClient(cfg.Notion.Token)

		if !exportNotionAll {
			entity, aud, result, err := loadAuditExport(ctx, st, exportNotionAuditID)
			if err != nil {
				return err
			}

			pageID, created, err := notion.ExportAudit(ctx, client, cfg.Notion.AuditDB, entity, aud, result)
			if err != nil {
				return err
			}
			zap.L().Info("audit exported to notion",
				zap.String("audit_id", aud.ID),
				zap.String("page_id", pageID),
				zap.Bool("created", created))
			return nil
		}

		audits, err := st.ListAudits(ctx, store.AuditFilter{Status: model.AuditStatusComplete, Limit: 1000})
		if err != nil {
			return eris.Wrap(err, "list audits")
		}
		if len(audits) == 0 {
			zap.L().Info("no completed audits to export")
			return nil
		}

		// One paginated scan resolves every existing page up front.
		pages, err := notion.ExistingAuditPages(ctx, client, cfg.Notion.AuditDB)
		if err != nil {
			return err
		}

		var created, refreshed, skipped int
		for i := range audits {
			aud := &audits[i]
			entity, _, result, err := loadAuditExport(ctx, st, aud.ID)
			if err != nil {
				zap.L().Warn("skipping audit",
					zap.String("audit_id", aud.ID), zap.Error(err))
				skipped++
				continue
			}
			if result == nil {
				zap.L().Warn("skipping audit without analytics",
					zap.String("audit_id", aud.ID))
				skipped++
				continue
			}

			_, wasCreated, err := notion.ExportAuditAt(ctx, client, cfg.Notion.AuditDB, pages[aud.ID], entity, aud, result)
			if err != nil {
				return err
			}
			if wasCreated {
				created++
			} else {
				refreshed++
			}
		}

		zap.L().Info("notion export complete",
			zap.Int("created", created),
			zap.Int("refreshed", refreshed),
			zap.Int("skipped", skipped))
		return nil
	},
}

func init() {
	f := exportNotionCmd.Flags()
	f.StringVar(&exportNotionAuditID, "audit", "", "audit ID to export")
	f.BoolVar(&exportNotionAll, "all", false, "export every completed audit")
	exportCmd.AddCommand(exportNotionCmd)
}
