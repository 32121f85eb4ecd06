package main

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/model"
)

var entityImportCSV string

var entityImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import entities from CSV",
	Long: `Imports entities from a CSV with a header row.

Required columns: kind (person|company), name. Optional: industry,
websites, aliases — multiple values separated by ";". Re-importing a row
updates the existing entity (matched on kind+name).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		entities, err := parseEntityCSV(entityImportCSV)
		if err != nil {
			return eris.Wrap(err, "import entities")
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

		imported, err := st.ImportEntities(ctx, entities)
		if err != nil {
			return eris.Wrap(err, "import entities")
		}

		zap.L().Info("import complete",
			zap.Int("imported", imported),
			zap.Int("rows", len(entities)),
			zap.String("csv", entityImportCSV))
		return nil
	},
}

func parseEntityCSV(csvPath string) ([]model.Entity, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, eris.Wrap(err, "open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "read csv")
	}

	if len(records) < 2 {
		return nil, eris.New("csv has no data rows")
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range []string{"kind", "name"} {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("missing required column %q", col)
		}
	}

	seen := make(map[string]bool)
	var entities []model.Entity

	for _, row := range records[1:] {
		kind := model.EntityKind(strings.ToLower(getCol(row, colIdx, "kind")))
		name := getCol(row, colIdx, "name")
		if name == "" {
			continue
		}
		if !kind.Valid() {
			return nil, eris.Errorf("invalid kind %q for entity %q", kind, name)
		}

		// Deduplicate on the upsert key.
		key := string(kind) + "|" + strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		entities = append(entities, model.Entity{
			Kind:     kind,
			Name:     name,
			Industry: strings.ToLower(getCol(row, colIdx, "industry")),
			Websites: splitMulti(getCol(row, colIdx, "websites")),
			Aliases:  splitMulti(getCol(row, colIdx, "aliases")),
		})
	}

	if len(entities) == 0 {
		return nil, eris.New("csv has no importable rows")
	}
	return entities, nil
}

func getCol(row []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// splitMulti splits a ";"-separated cell into trimmed values.
func splitMulti(cell string) []string {
	if cell == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(cell, ";") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func init() {
	entityImportCmd.Flags().StringVar(&entityImportCSV, "csv", "", "path to CSV file (required)")
	_ = entityImportCmd.MarkFlagRequired("csv")
	entityCmd.AddCommand(entityImportCmd)
}
