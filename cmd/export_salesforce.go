package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/model"
	"github.com/halosight/presence-cli/internal/store"
	sfpkg "github.com/halosight/presence-cli/pkg/salesforce"
)

var (
	exportSFAuditID   string
	exportSFAccountID string
	exportSFAll       bool
)

var exportSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Write audit scores back to Salesforce accounts",
	Long: `Updates the AI presence fields on Account records with each audit's
overall score and grade. Accounts are matched by entity website, falling
back to exact name; --account pins the target record explicitly.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if (exportSFAuditID != "") == exportSFAll {
			return eris.New("exactly one of --audit or --all is required")
		}
		if exportSFAccountID != "" && exportSFAll {
			return eris.New("--account only applies to a single --audit export")
		}

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		client, err := initSalesforce()
		if err != nil {
			return err
		}

		if err := sfpkg.VerifyScoreFields(ctx, client); err != nil {
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

		if !exportSFAll {
			entity, aud, result, err := loadAuditExport(ctx, st, exportSFAuditID)
			if err != nil {
				return err
			}
			if result == nil {
				return eris.Errorf("audit %s has no analytics to export", exportSFAuditID)
			}

			accountID := exportSFAccountID
			if accountID == "" {
				account, err := resolveAccount(ctx, client, *entity)
				if err != nil {
					return err
				}
				accountID = account.ID
			}

			if err := sfpkg.UpdateAccountScores(ctx, client, accountID, result, aud.UpdatedAt); err != nil {
				return err
			}
			zap.L().Info("scores written to salesforce",
				zap.String("audit_id", aud.ID),
				zap.String("account_id", accountID),
				zap.Float64("overall_score", result.OverallScore))
			return nil
		}

		audits, err := st.ListAudits(ctx, store.AuditFilter{Status: model.AuditStatusComplete, Limit: 1000})
		if err != nil {
			return eris.Wrap(err, "list audits")
		}

		// Latest audit per entity wins; ListAudits returns newest first.
		seen := make(map[string]bool)
		var updates []sfpkg.ScoreUpdate
		var skipped int
		for i := range audits {
			aud := &audits[i]
			if seen[aud.EntityID] {
				continue
			}
			seen[aud.EntityID] = true

			entity, _, result, err := loadAuditExport(ctx, st, aud.ID)
			if err != nil {
				zap.L().Warn("skipping audit",
					zap.String("audit_id", aud.ID), zap.Error(err))
				skipped++
				continue
			}
			if result == nil {
				skipped++
				continue
			}

			account, err := resolveAccount(ctx, client, *entity)
			if err != nil {
				zap.L().Warn("no account match",
					zap.String("entity", entity.Name), zap.Error(err))
				skipped++
				continue
			}

			updates = append(updates, sfpkg.ScoreUpdate{
				AccountID: account.ID,
				Result:    result,
				AuditedAt: aud.UpdatedAt,
			})
		}

		results, err := sfpkg.BulkUpdateScores(ctx, client, updates)
		if err != nil {
			return err
		}

		var failed int
		for _, r := range results {
			if !r.Success {
				failed++
				zap.L().Warn("account update rejected",
					zap.String("account_id", r.ID),
					zap.Strings("errors", r.Errors))
			}
		}

		zap.L().Info("salesforce export complete",
			zap.Int("updated", len(results)-failed),
			zap.Int("failed", failed),
			zap.Int("skipped", skipped))
		return nil
	},
}

// resolveAccount matches an entity to its Account: each website in
// order, then the exact name.
func resolveAccount(ctx context.Context, client sfpkg.Client, entity model.Entity) (*sfpkg.Account, error) {
	for _, site := range entity.Websites {
		account, err := sfpkg.FindAccountByWebsite(ctx, client, site)
		if err != nil {
			return nil, err
		}
		if account != nil {
			return account, nil
		}
	}

	account, err := sfpkg.FindAccountByName(ctx, client, entity.Name)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, eris.Errorf("no salesforce account matches entity %q", entity.Name)
	}
	return account, nil
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (PRESENCE_SALESFORCE_CLIENT_ID)")
	}
	if cfg.Salesforce.Username == "" {
		return nil, eris.New("salesforce username is required (PRESENCE_SALESFORCE_USERNAME)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}

func init() {
	f := exportSalesforceCmd.Flags()
	f.StringVar(&exportSFAuditID, "audit", "", "audit ID to export")
	f.StringVar(&exportSFAccountID, "account", "", "Salesforce account ID (skips website/name matching)")
	f.BoolVar(&exportSFAll, "all", false, "export the latest audit of every entity")
	exportCmd.AddCommand(exportSalesforceCmd)
}
