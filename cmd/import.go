package cmd

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/theirongolddev/quitc/internal/cli"
	"github.com/theirongolddev/quitc/internal/importer"
	"github.com/theirongolddev/quitc/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagImportOverwrite bool
	flagImportDryRun    bool
	flagExportFormat    string
	flagExportOutput    string
)

var importCmd = &cobra.Command{
	Use:   "import PATH...",
	Short: "Merge days from .json, .jsonl or .csv files into the ledger",
	Long: "Import reads ledger exports ({\"2024-01-02\": \"CLEAN\"}), JSON lines " +
		"({\"date\": ..., \"status\": ...}, including captured daemon events) and " +
		"date,status CSV. Directories are searched recursively.",
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every logged day as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	importCmd.Flags().BoolVar(&flagImportOverwrite, "overwrite", false, "Replace days that are already logged with a different status")
	importCmd.Flags().BoolVar(&flagImportDryRun, "dry-run", false, "Parse and report without changing the ledger")
	exportCmd.Flags().StringVarP(&flagExportFormat, "format", "f", "json", "Output format: json or csv")
	exportCmd.Flags().StringVarP(&flagExportOutput, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := importer.Discover(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no .json, .jsonl or .csv files found")
	}

	progressf("  Reading %d files...\n", len(files))
	loaded := importer.Load(files, func(current, total int) {
		if current%50 == 0 || current == total {
			progressf("\r  Parsing [%d/%d]", current, total)
		}
	})
	progressf("\n")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  Found %s in %d files", cli.FormatDays(len(loaded.Days)), loaded.ParsedFiles)
	if loaded.ParseErrors > 0 {
		fmt.Fprintf(out, " (%d malformed entries skipped)", loaded.ParseErrors)
	}
	fmt.Fprintln(out)
	if loaded.FileErrors > 0 {
		fmt.Fprintf(out, "  %d files could not be read\n", loaded.FileErrors)
	}
	if loaded.Conflicts > 0 {
		fmt.Fprintf(out, "  %d days disagreed between files; later files won\n", loaded.Conflicts)
	}
	if flagImportDryRun {
		return nil
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	res, err := importer.Apply(cmd.Context(), s.ledger, loaded.Days, s.clock.Today(), flagImportOverwrite)
	if err != nil {
		return err
	}

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Result", "Days"},
		Rows: [][]string{
			{"Imported", cli.FormatNumber(int64(res.Applied))},
			{"Already logged", cli.FormatNumber(int64(res.Unchanged))},
			{"Kept existing", cli.FormatNumber(int64(res.Skipped))},
			{"No tokens left", cli.FormatNumber(int64(len(res.Rejected)))},
			{"In the future", cli.FormatNumber(int64(res.Future))},
		},
	}))
	for _, d := range res.Rejected {
		fmt.Fprintf(out, "  %s: all %d tokens of %s already spent\n", d, model.MaxTokensPerMonth, d.MonthOf().Title())
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	if flagExportFormat != "json" && flagExportFormat != "csv" {
		return fmt.Errorf("unknown format %q (expected json|csv)", flagExportFormat)
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	var w io.Writer = cmd.OutOrStdout()
	if flagExportOutput != "" {
		f, err := os.OpenFile(flagExportOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // output path is chosen by the local user
		if err != nil {
			return fmt.Errorf("creating %s: %w", flagExportOutput, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	days := s.ledger.Snapshot()
	if flagExportFormat == "csv" {
		err = writeCSV(w, days)
	} else {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(days)
	}
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if flagExportOutput != "" {
		progressf("  Wrote %s to %s\n", cli.FormatDays(len(days)), flagExportOutput)
	}
	return nil
}

func writeCSV(w io.Writer, days model.Days) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "status"}); err != nil {
		return err
	}
	for _, d := range days.SortedDates() {
		if err := cw.Write([]string{d.String(), days[d].String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
