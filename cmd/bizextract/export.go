package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/egemenmermer/business-extractor/internal/engine/gateway"
	"github.com/egemenmermer/business-extractor/internal/engine/storage"
	"github.com/egemenmermer/business-extractor/internal/export"
)

var exportFlags struct {
	format string
	dir    string
	db     string
	output string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download a server-side export, or convert a snapshot to CSV",
	Example: `  bizextract export --format xlsx --dir ./exports
  bizextract export --db snapshot.db --output results.csv`,
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.format, "format", gateway.FormatCSV, "Server export format: csv or xlsx")
	f.StringVar(&exportFlags.dir, "dir", ".", "Directory for the downloaded export")
	f.StringVar(&exportFlags.db, "db", "", "Convert this snapshot locally instead of asking the server")
	f.StringVar(&exportFlags.output, "output", "", "CSV path for --db (default: next to the snapshot)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	if exportFlags.db != "" {
		return exportSnapshot(cmd)
	}

	engine, cleanup, err := newEngine(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	path, err := engine.Export(cmd.Context(), exportFlags.format, exportFlags.dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Export written to %s\n", path)
	return nil
}

func exportSnapshot(cmd *cobra.Command) error {
	if _, err := os.Stat(exportFlags.db); err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	store, err := storage.NewStore(exportFlags.db)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer store.Close()

	businesses, err := store.AllBusinesses(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if len(businesses) == 0 {
		return fmt.Errorf("no businesses found in %s", exportFlags.db)
	}

	out := exportFlags.output
	if out == "" {
		dir := filepath.Dir(exportFlags.db)
		base := strings.TrimSuffix(filepath.Base(exportFlags.db), ".db")
		out = filepath.Join(dir, base+".csv")
	}
	if err := export.WriteCSVFile(out, businesses); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d businesses to %s\n", len(businesses), out)
	return nil
}
