package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/halosight/presence-cli/internal/analytics"
	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Push audit results to external tools",
	Long:  "Mirror completed audits into a Notion database or write overall scores back to Salesforce accounts.",
}

// loadAuditExport gathers the entity, audit, and analytics snapshot an
// export needs. The result is nil when the audit was never analyzed.
func loadAuditExport(ctx context.Context, st store.Store, auditID string) (*model.Entity, *model.Audit, *analytics.Result, error) {
	aud, err := st.GetAudit(ctx, auditID)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "load audit")
	}
	entity, err := st.GetEntity(ctx, aud.EntityID)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "load entity")
	}
	result, err := st.GetAnalytics(ctx, auditID)
	if err != nil {
		return nil, nil, nil, eris.Wrap(err, "load analytics")
	}
	return entity, aud, result, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
