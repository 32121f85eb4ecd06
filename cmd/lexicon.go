package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/halosight/presence-cli/internal/lexicon"
)

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "QA tools for the sentiment keyword tables",
}

var (
	lexiconCheckAuditID string
	lexiconCheckJSON    bool
)

var lexiconCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Cross-check keyword sentiment against VADER",
	Long: `Classifies every completed response in an audit under both the
keyword tables and the VADER model, and reports where they disagree.
A rising disagreement rate after a table edit means the edit drifted
from how the responses actually read. Scoring itself is untouched.`,
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

		records, err := st.ListQueryRecords(ctx, lexiconCheckAuditID)
		if err != nil {
			return eris.Wrap(err, "load query records")
		}
		if len(records) == 0 {
			return eris.Errorf("audit %s has no query records", lexiconCheckAuditID)
		}

		opts, err := analyzerOptions()
		if err != nil {
			return err
		}

		rep := lexicon.NewChecker(opts...).CheckRecords(records)

		if lexiconCheckJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		fmt.Print(lexicon.Format(rep))
		return nil
	},
}

func init() {
	f := lexiconCheckCmd.Flags()
	f.StringVar(&lexiconCheckAuditID, "audit", "", "audit ID (required)")
	f.BoolVar(&lexiconCheckJSON, "json", false, "emit the report as JSON")
	_ = lexiconCheckCmd.MarkFlagRequired("audit")

	lexiconCmd.AddCommand(lexiconCheckCmd)
	rootCmd.AddCommand(lexiconCmd)
}
