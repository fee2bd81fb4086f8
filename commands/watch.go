package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/analyzer"
	"github.com/penwyp/go-timeline-chat/internal/data/watcher"
	"github.com/penwyp/go-timeline-chat/internal/presentation/formatter"
	"github.com/penwyp/go-timeline-chat/internal/util"
	"github.com/spf13/cobra"
)

var (
	watchDebounce time.Duration
	watchOutput   string

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-run the analysis whenever the export changes",
		Long: `Load and print the export, then keep watching the data directory. Whenever JSON files
are created, written or removed the whole export is loaded again and printed.

Changes are batched: a reload happens once the directory has been quiet for --debounce.

Examples:
  go-timeline-chat watch
  go-timeline-chat watch --debounce 5s --output table`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce,
		"Quiet period before reloading")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "summary",
		"Output format (table, csv, json, summary)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	f, err := formatter.New(watchOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, ds, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := printDataset(out, f, a, ds); err != nil {
		return err
	}

	return watchDataset(cmd.Context(), cfg.DataDir, watchDebounce, a, func(ds *analyzer.Dataset) {
		fmt.Fprintf(out, "\n--- reloaded at %s ---\n", ds.LoadedAt.Format(time.TimeOnly))
		if err := printDataset(out, f, a, ds); err != nil {
			util.LogErrorf("Failed to print dataset: %v", err)
		}
	})
}

func printDataset(w io.Writer, f formatter.Formatter, a *analyzer.Analyzer, ds *analyzer.Dataset) error {
	in, err := a.Select(ds)
	if err != nil {
		return err
	}
	return f.Format(w, in)
}

// watchDataset reloads the dataset after each batch of changes under dir and hands it to
// onReload. A failed reload is logged and the previous dataset stays in use.
// It returns when ctx is cancelled.
func watchDataset(ctx context.Context, dir string, debounce time.Duration, a *analyzer.Analyzer, onReload func(*analyzer.Dataset)) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() && !strings.EqualFold(filepath.Ext(dir), ".json") {
		return fmt.Errorf("cannot watch %s: only directories and .json files can be watched", dir)
	}

	fw, err := watcher.NewFileWatcher([]string{dir}, debounce)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	defer fw.Close()

	util.LogInfof("Watching %s for changes", dir)
	for batch := range fw.Changes(ctx) {
		util.LogDebug(fmt.Sprintf("Detected %d file changes, first: %s %s",
			len(batch), batch[0].Operation, batch[0].Path))

		start := time.Now()
		ds, err := a.Load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			util.LogErrorf("Reload failed, keeping previous data: %v", err)
			continue
		}
		util.LogInfof("Reloaded %d visits and %d journeys in %v", len(ds.Visits), len(ds.Journeys), time.Since(start))
		onReload(ds)
	}
	return nil
}
