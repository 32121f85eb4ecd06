package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/halosight/presence-cli/internal/report"
)

var (
	reportAuditID string
	reportFormat  string
	reportOutput  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an audit into a shareable file",
	Long: `Renders a completed audit's analytics as markdown, a one-row
summary CSV, or an XLSX workbook.

Examples:
  # Markdown to the configured output directory
  presence-cli report --audit 9b41c7d2

  # Markdown to stdout
  presence-cli report --audit 9b41c7d2 --output -

  # Workbook for a spreadsheet-first audience
  presence-cli report --audit 9b41c7d2 --format xlsx`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		format := reportFormat
		if format == "" {
			format = cfg.Report.Format
		}
		switch format {
		case "markdown", "csv", "xlsx":
		default:
			return eris.Errorf("unsupported report format: %s", format)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		aud, err := st.GetAudit(ctx, reportAuditID)
		if err != nil {
			return eris.Wrap(err, "load audit")
		}
		entity, err := st.GetEntity(ctx, aud.EntityID)
		if err != nil {
			return eris.Wrap(err, "load entity")
		}
		result, err := st.GetAnalytics(ctx, reportAuditID)
		if err != nil {
			return eris.Wrap(err, "load analytics")
		}
		if result == nil {
			return eris.Errorf("audit %s has no analytics yet (status %s)", reportAuditID, aud.Status)
		}
		records, err := st.ListQueryRecords(ctx, reportAuditID)
		if err != nil {
			return eris.Wrap(err, "load query records")
		}

		data := report.Data{Entity: *entity, Audit: *aud, Result: result, Records: records}

		ext := map[string]string{"markdown": "md", "csv": "csv", "xlsx": "xlsx"}[format]
		out := reportOutput
		if out == "" {
			out = filepath.Join(cfg.Report.OutputDir, report.Filename(entity.Name, aud.ID, ext))
		}

		if out == "-" {
			if format == "xlsx" {
				return eris.New("xlsx cannot be written to stdout")
			}
			return writeReport(os.Stdout, format, data)
		}

		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrap(err, "create output directory")
			}
		}

		if format == "xlsx" {
			if err := report.WriteXLSX(out, data); err != nil {
				return err
			}
		} else {
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrap(err, "create report file")
			}
			if err := writeReport(f, format, data); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return eris.Wrap(err, "close report file")
			}
		}

		zap.L().Info("report written",
			zap.String("audit_id", reportAuditID),
			zap.String("format", format),
			zap.String("path", out))
		fmt.Println(out)
		return nil
	},
}

func writeReport(w io.Writer, format string, data report.Data) error {
	switch format {
	case "markdown":
		if _, err := io.WriteString(w, report.Markdown(data)); err != nil {
			return eris.Wrap(err, "write markdown report")
		}
		return nil
	case "csv":
		return report.WriteSummaryCSV(w, data)
	default:
		return eris.Errorf("unsupported report format: %s", format)
	}
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportAuditID, "audit", "", "audit ID (required)")
	f.StringVar(&reportFormat, "format", "", "markdown, csv, or xlsx (default from config)")
	f.StringVar(&reportOutput, "output", "", `output path ("-" for stdout; default <report.output_dir>/<entity>-<audit>.<ext>)`)
	_ = reportCmd.MarkFlagRequired("audit")
	rootCmd.AddCommand(reportCmd)
}
