package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/egemenmermer/business-extractor/internal/engine/catalog"
	"github.com/egemenmermer/business-extractor/internal/engine/storage"
	"github.com/egemenmermer/business-extractor/internal/export"
)

var browseFlags struct {
	category string
	city     string
	country  string
	hasEmail bool
	pages    int
	search   string
	sort     string
	db       string
	tasks    bool
	csv      string
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "List stored businesses, from the server or a saved snapshot",
	Example: `  bizextract browse --city Paris --pages 3
  bizextract browse --has-email --sort city:desc
  bizextract browse --db snapshot.db --search café --csv cafes.csv`,
	RunE: runBrowse,
}

func init() {
	f := browseCmd.Flags()
	f.StringVar(&browseFlags.category, "category", "", "Only businesses in this category")
	f.StringVar(&browseFlags.city, "city", "", "Only businesses in this city")
	f.StringVar(&browseFlags.country, "country", "", "Only businesses in this country")
	f.BoolVar(&browseFlags.hasEmail, "has-email", false, "Only businesses with (true) or without (false) an email")
	f.IntVar(&browseFlags.pages, "pages", 1, "Pages to load; 0 loads until the last page")
	f.StringVar(&browseFlags.search, "search", "", "Case-insensitive search within the loaded rows")
	f.StringVar(&browseFlags.sort, "sort", catalog.DefaultSort.String(), "Sort as column[:asc|desc]")
	f.StringVar(&browseFlags.db, "db", "", "Browse a saved snapshot instead of the server")
	f.BoolVar(&browseFlags.tasks, "tasks", false, "With --db, also list the tasks saved in the snapshot")
	f.StringVar(&browseFlags.csv, "csv", "", "Also write the listed rows to this CSV file")
	browseCmd.MarkFlagsMutuallyExclusive("category", "city", "country", "has-email")

	rootCmd.AddCommand(browseCmd)
}

func browseFilter(cmd *cobra.Command) catalog.Filter {
	switch {
	case cmd.Flags().Changed("category"):
		return catalog.Category(browseFlags.category)
	case cmd.Flags().Changed("city"):
		return catalog.City(browseFlags.city)
	case cmd.Flags().Changed("country"):
		return catalog.Country(browseFlags.country)
	case cmd.Flags().Changed("has-email"):
		return catalog.Email(browseFlags.hasEmail)
	default:
		return catalog.NoFilter{}
	}
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	sort, err := catalog.ParseSort(browseFlags.sort)
	if err != nil {
		return err
	}
	if browseFlags.pages < 0 {
		return fmt.Errorf("--pages must be >= 0")
	}

	engine, cleanup, err := newEngine(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	loader := engine.Catalog()
	if browseFlags.db != "" {
		loader, _, err = engine.OpenSnapshot(browseFlags.db)
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	f := browseFilter(cmd)
	if err := loader.LoadFirstPage(ctx, f); err != nil {
		return err
	}
	for loaded := 1; browseFlags.pages == 0 || loaded < browseFlags.pages; loaded++ {
		if snap := loader.Snapshot(); !snap.HasMore || snap.LastError != nil {
			break
		}
		if _, err := loader.LoadNextPage(ctx); err != nil {
			return err
		}
	}

	snap := loader.Snapshot()
	if snap.LastError != nil && len(snap.Items) == 0 {
		return snap.LastError
	}
	if snap.LastError != nil {
		fmt.Fprintf(os.Stderr, "warning: stopped after page %d: %v\n", snap.Page, snap.LastError)
	}

	rows := catalog.View(snap.Items, browseFlags.search, sort)
	renderBusinesses(cmd.OutOrStdout(), rows)

	more := ""
	if snap.HasMore {
		more = ", more available"
	}
	fmt.Fprintf(os.Stderr, "filter %s, %d pages of %d%s\n", snap.Filter, snap.Page+1, loader.PageSize(), more)

	if browseFlags.tasks && browseFlags.db != "" {
		if err := printSnapshotTasks(cmd, browseFlags.db); err != nil {
			return err
		}
	}

	if browseFlags.csv != "" {
		if err := export.WriteCSVFile(browseFlags.csv, rows); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d businesses to %s\n", len(rows), browseFlags.csv)
	}
	return nil
}

func printSnapshotTasks(cmd *cobra.Command, path string) error {
	store, err := storage.NewStore(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer store.Close()

	meta, err := store.LoadMeta(cmd.Context())
	if err != nil {
		return err
	}
	tasks, err := store.Tasks(cmd.Context(), meta.JobID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nJob %s, saved %s\n", meta.JobID, meta.SavedAt.Format("2006-01-02 15:04"))
	renderTasks(cmd.OutOrStdout(), tasks)
	return nil
}
