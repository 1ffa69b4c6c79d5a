package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/watcher"
)

var watchVerbose bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check generated files as they are edited",
	Long: `Watch the generated files and the guidance rule file and re-run the
guidance check whenever they change.

Changes to a generated file re-check that file. Changes to the rule file
re-check every traced file.

Examples:
  cae watch --rules rules.yml   # Watch the configured paths
  cae watch --verbose           # Print every change event`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
	watchCmd.Flags().String("rules", "", "Guidance rule file (JSON or YAML)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if rules, _ := cmd.Flags().GetString("rules"); rules != "" {
		cfg.Guidance.RulesFile = rules
	}
	c, err := newChecker(cfg, logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, watcher.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.IgnoreFilter(cfg.Watch.Ignore...))
	fileWatcher.AddFilter(watcher.NoTempFilter)

	outputDir, err := filepath.Abs(cfg.Generation.OutputDir)
	if err != nil {
		return err
	}
	rulesFile, err := filepath.Abs(c.rulesFile)
	if err != nil {
		return err
	}

	fileWatcher.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		if watchVerbose {
			for _, event := range events {
				fmt.Fprintf(out, "%s %s\n", mutedColor.Sprint(event.Type), event.Path)
			}
		}
		traced, err := c.store.Files()
		if err != nil {
			return err
		}
		files, all := changedFiles(outputDir, rulesFile, traced, events)
		if !all && len(files) == 0 {
			return nil
		}
		// a nil file list re-checks every traced file
		return runCheckOnce(ctx, c, out, files)
	})

	fmt.Fprintln(out, "Setting up file watching...")
	for _, path := range cfg.Watch.Paths {
		if err := fileWatcher.AddRecursive(path); err != nil {
			logger.Warn(cmd.Context(), err, "failed to watch path", "path", path)
			continue
		}
		fmt.Fprintf(out, "   - Watching: %s\n", path)
	}
	if err := fileWatcher.AddPath(filepath.Dir(rulesFile)); err != nil {
		logger.Warn(cmd.Context(), err, "failed to watch rule file", "path", rulesFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runCheckOnce(ctx, c, out, nil); err != nil {
		logger.Warn(ctx, err, "initial check failed")
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	fmt.Fprintln(out, "Watching for changes... (Press Ctrl+C to stop)")

	<-ctx.Done()
	fmt.Fprintln(out, "\nStopping file watcher...")
	return nil
}

// runCheckOnce checks files and reports them. Violations are printed, not
// returned, so that watching continues.
func runCheckOnce(ctx context.Context, c *checker, out io.Writer, files []string) error {
	results, err := c.check(ctx, files)
	if err != nil {
		return err
	}
	if err := reportCheck(out, results, "text"); err != nil && !errors.Is(err, errViolations) {
		return err
	}
	return nil
}

// changedFiles maps change events to the traced files to re-check. all is
// set when the rule file changed.
func changedFiles(outputDir, rulesFile string, traced []string, events []watcher.ChangeEvent) (files []string, all bool) {
	for _, event := range events {
		if filepath.Clean(event.Path) == filepath.Clean(rulesFile) {
			return nil, true
		}
		if event.Type == watcher.EventTypeDeleted {
			continue
		}
		rel, err := filepath.Rel(outputDir, event.Path)
		if err != nil {
			continue
		}
		name := filepath.ToSlash(rel)
		if slices.Contains(traced, name) && !slices.Contains(files, name) {
			files = append(files, name)
		}
	}
	return files, false
}
