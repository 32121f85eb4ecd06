package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/model"
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Manage monitored entities",
	Long:  "Create, list, and bulk-import the people and companies whose AI presence gets audited.",
}

var (
	entityCreateKind     string
	entityCreateName     string
	entityCreateIndustry string
	entityCreateWebsites []string
	entityCreateAliases  []string
)

var entityCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new entity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		kind := model.EntityKind(entityCreateKind)
		if !kind.Valid() {
			return eris.Errorf("entity kind must be person or company, got %q", entityCreateKind)
		}

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

		entity, err := st.CreateEntity(ctx, model.Entity{
			Kind:     kind,
			Name:     entityCreateName,
			Industry: entityCreateIndustry,
			Websites: entityCreateWebsites,
			Aliases:  entityCreateAliases,
		})
		if err != nil {
			return eris.Wrap(err, "create entity")
		}

		zap.L().Info("entity created",
			zap.String("entity_id", entity.ID),
			zap.String("name", entity.Name),
			zap.String("kind", string(entity.Kind)))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entity)
	},
}

var (
	entityListKind   string
	entityListLimit  int
	entityListOffset int
)

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered entities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		kind := model.EntityKind(entityListKind)
		if entityListKind != "" && !kind.Valid() {
			return eris.Errorf("entity kind must be person or company, got %q", entityListKind)
		}

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

		entities, err := st.ListEntities(ctx, kind, entityListLimit, entityListOffset)
		if err != nil {
			return eris.Wrap(err, "list entities")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entities)
	},
}

func init() {
	f := entityCreateCmd.Flags()
	f.StringVar(&entityCreateKind, "kind", "company", "entity kind: person or company")
	f.StringVar(&entityCreateName, "name", "", "entity name (required)")
	f.StringVar(&entityCreateIndustry, "industry", "", "industry for benchmark lookup")
	f.StringSliceVar(&entityCreateWebsites, "website", nil, "owned website (repeatable)")
	f.StringSliceVar(&entityCreateAliases, "alias", nil, "alternate name (repeatable)")
	_ = entityCreateCmd.MarkFlagRequired("name")

	lf := entityListCmd.Flags()
	lf.StringVar(&entityListKind, "kind", "", "filter by kind: person or company")
	lf.IntVar(&entityListLimit, "limit", 50, "max entities to return")
	lf.IntVar(&entityListOffset, "offset", 0, "pagination offset")

	entityCmd.AddCommand(entityCreateCmd)
	entityCmd.AddCommand(entityListCmd)
	rootCmd.AddCommand(entityCmd)
}
