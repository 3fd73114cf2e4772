package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/stitch/internal/config"
	"github.com/conneroisu/stitch/internal/errors"
	"github.com/conneroisu/stitch/internal/source"
	"github.com/conneroisu/stitch/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild all variants whenever a fragment changes",
	Long: `Run a build, then watch the shared fragment directories and the variants
directory and run a complete build again after every burst of changes.

Every rebuild is a full build; nothing is cached between runs.

Examples:
  stitch watch                    # Watch with the default debounce
  stitch watch --debounce 500ms   # Wait longer for editors that save in bursts`,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 200*time.Millisecond, "Quiet period before rebuilding")
	watchCmd.Flags().BoolVar(&buildKeepGoing, "keep-going", false, "Continue with remaining variants after a failure")
	watchCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output directory (default from config: dist)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	applyBuildFlags()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := source.OS()
	out := cmd.OutOrStdout()

	// Configuration and manifest problems will not fix themselves; stop early.
	if _, err := buildOnce(ctx, cfg, fs, logger, out); err != nil && errors.IsConfigError(err) {
		return err
	}

	fileWatcher, err := watcher.NewFileWatcher(watchDebounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.ExtensionFilter(cfg.Extension))
	fileWatcher.AddFilter(watcher.NoEditorTempFilter)
	fileWatcher.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, e := range events {
			logger.Debug(ctx, "Fragment changed", "path", e.Path, "event", e.Type.String())
		}
		fmt.Fprintf(out, "\n🔄 %d file(s) changed, rebuilding...\n", len(events))
		_, err := buildOnce(ctx, cfg, fs, logger, out)
		return err
	})

	watched := 0
	for _, dir := range cfg.WatchDirs() {
		if err := fileWatcher.AddPath(dir); err != nil {
			logger.Warn(ctx, err, "Not watching directory", "dir", dir)
			continue
		}
		watched++
		fmt.Fprintf(out, "   - Watching: %s\n", dir)
	}
	if watched == 0 {
		return fmt.Errorf("no directories to watch")
	}

	fileWatcher.Start(ctx)
	fmt.Fprintln(out, "👀 Watching for changes... (Press Ctrl+C to stop)")

	<-ctx.Done()
	fmt.Fprintln(out, "\n🛑 Stopping file watcher...")
	return nil
}
