package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/egemenmermer/business-extractor/internal/engine/gateway"
	"github.com/egemenmermer/business-extractor/internal/engine/poller"
	"github.com/egemenmermer/business-extractor/internal/model"
)

var searchFlags struct {
	categories []string
	locations  []string
	save       string
	noSave     bool
	quiet      bool
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Submit a search and wait for every task to finish",
	Example: `  bizextract search --category cafe --category bar --location Paris
  bizextract search -c restaurant -l "Lyon,Marseille" --save lyon.db`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringSliceVarP(&searchFlags.categories, "category", "c", nil, "Category to scrape (repeatable or comma-separated)")
	f.StringSliceVarP(&searchFlags.locations, "location", "l", nil, "Location to scrape (repeatable or comma-separated)")
	f.StringVar(&searchFlags.save, "save", "", "Snapshot path (default <data-dir>/snapshots/snapshot_<time>.db)")
	f.BoolVar(&searchFlags.noSave, "no-save", false, "Do not write a snapshot")
	f.BoolVarP(&searchFlags.quiet, "quiet", "q", false, "Do not print progress")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	engine, cleanup, err := newEngine(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sel := engine.Selection()
	for _, c := range searchFlags.categories {
		sel.AddCategory(c)
		sel.SelectCategory(c, true)
	}
	for _, l := range searchFlags.locations {
		sel.AddLocation(l)
		sel.SelectLocation(l, true)
	}

	changed := make(chan struct{}, 1)
	engine.OnUpdate(func(poller.Snapshot) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	start := time.Now()
	id, err := engine.StartSearch(ctx)
	if err != nil {
		var ve *poller.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("at least one --%s is required", ve.Field)
		}
		return err
	}
	req := sel.Request()
	fmt.Fprintf(os.Stderr, "Job %s: %d categories x %d locations = %d tasks\n",
		id, len(req.Categories), len(req.Locations), req.Pairs())

	snap, err := waitForJob(ctx, engine.Poller(), changed, searchFlags.quiet)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderTasks(out, snap.Tasks)

	counts := model.CountByStatus(snap.Tasks)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	if snap.State == poller.StateStopped {
		fmt.Fprintf(os.Stderr, "  Search complete\n")
	} else {
		fmt.Fprintf(os.Stderr, "  Search interrupted\n")
	}
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Job:        %s\n", id)
	fmt.Fprintf(os.Stderr, "  Completed:  %d\n", counts[model.TaskCompleted])
	fmt.Fprintf(os.Stderr, "  Failed:     %d\n", counts[model.TaskFailed])
	fmt.Fprintf(os.Stderr, "  Businesses: %d\n", len(snap.Businesses))
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", time.Since(start).Truncate(time.Second))

	if searchFlags.noSave {
		return nil
	}
	path := searchFlags.save
	if path == "" {
		path = engine.DefaultSnapshotPath(time.Now())
	}
	// The run context may already be cancelled by an interrupt; still save
	// what was collected.
	n, err := engine.Save(context.WithoutCancel(ctx), path)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	fmt.Fprintf(os.Stderr, "  Snapshot:   %s (%d businesses)\n", path, n)
	engine.Logger().Info("search done", zap.String("job_id", id), zap.String("snapshot", path))
	return nil
}

// waitForJob blocks until the poller leaves Polling or ctx is cancelled. An interrupt stops polling and returns the
// partial snapshot.
func waitForJob(ctx context.Context, p *poller.Poller, changed <-chan struct{}, quiet bool) (poller.Snapshot, error) {
	var last time.Time
	for {
		snap := p.Snapshot()
		if !quiet && !snap.UpdatedAt.Equal(last) {
			last = snap.UpdatedAt
			printProgress(snap)
		}
		if !snap.Polling() {
			if gateway.IsAuth(snap.LastError) {
				return snap, fmt.Errorf("session rejected: %w", snap.LastError)
			}
			return snap, nil
		}

		select {
		case <-ctx.Done():
			p.Stop()
			fmt.Fprintln(os.Stderr, "\nInterrupted, polling stopped")
			return p.Snapshot(), nil
		case <-changed:
		}
	}
}

func printProgress(s poller.Snapshot) {
	counts := model.CountByStatus(s.Tasks)
	line := fmt.Sprintf("[%s] tasks %d/%d done, %d running, %d failed, %d businesses",
		time.Now().Format("15:04:05"),
		counts[model.TaskCompleted]+counts[model.TaskFailed], len(s.Tasks),
		counts[model.TaskProcessing], counts[model.TaskFailed], len(s.Businesses))
	if s.LastError != nil {
		line += " (last poll failed: " + s.LastError.Error() + ")"
	}
	fmt.Fprintln(os.Stderr, line)
}
