package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/config"
	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/guidance"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/store"
)

// errViolations makes check exit non-zero when a rule matched.
var errViolations = errors.New("guidance violations found")

var checkFormat string

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Check free-edit regions against guidance rules",
	Long: `Check the free-edit regions of generated files against guidance rules.

Each rule applies to the segments traced to model elements of one type.
Every match is reported with the segments it touches and the byte range
inside each of them.

Without arguments every file with trace metadata in the output directory
is checked. The command exits non-zero when a rule matched.

Examples:
  cae check --rules rules.yml              # Check all generated files
  cae check --rules rules.yml src/Main.java
  cae check --format json                  # Feedback keyed by file`,
	RunE: runCheckCommand,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("rules", "", "Guidance rule file (JSON or YAML)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text, json)")
	bindFlag(checkCmd.Flags(), "guidance.rules_file", "rules")
}

func runCheckCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	c, err := newChecker(cfg, logger)
	if err != nil {
		return err
	}
	results, err := c.check(cmd.Context(), args)
	if err != nil {
		return err
	}
	return reportCheck(cmd.OutOrStdout(), results, checkFormat)
}

// checker ties a guidance.Checker to the store and the rule file of a
// configuration. It is reused across watch batches so that unchanged rule
// files are compiled once.
type checker struct {
	rulesFile string
	store     *store.Store
	guidance  *guidance.Checker
	logger    logging.Logger
}

func newChecker(cfg *config.Config, logger logging.Logger) (*checker, error) {
	if cfg.Guidance.RulesFile == "" {
		return nil, fmt.Errorf("no rule file: pass --rules or set guidance.rules_file")
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	g, err := guidance.NewChecker(cfg.Guidance.CacheSize,
		guidance.WithWorkers(cfg.Guidance.Workers),
		guidance.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &checker{rulesFile: cfg.Guidance.RulesFile, store: st, guidance: g, logger: logger}, nil
}

// check checks files, or every traced file when files is empty.
func (c *checker) check(ctx context.Context, files []string) ([]guidance.FileResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rules, err := os.ReadFile(c.rulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file: %w", err)
	}
	if len(files) == 0 {
		if files, err = c.store.Files(); err != nil {
			return nil, err
		}
	}

	// files that cannot be read keep their slot with the error
	results := make([]guidance.FileResult, len(files))
	inputs := make([]guidance.FileInput, 0, len(files))
	slots := make([]int, 0, len(files))
	for i, name := range files {
		results[i].File = name
		input, err := c.readInput(name)
		if err != nil {
			c.logger.Warn(ctx, err, "file skipped", "file", name)
			results[i].Err = err
			continue
		}
		inputs = append(inputs, input)
		slots = append(slots, i)
	}

	checked, err := c.guidance.Check(ctx, rules, inputs)
	if err != nil {
		return nil, err
	}
	for i, r := range checked {
		results[slots[i]] = r
	}
	return results, nil
}

func (c *checker) readInput(name string) (guidance.FileInput, error) {
	content, err := c.store.ReadContent(name)
	if err != nil {
		return guidance.FileInput{}, err
	}
	traceData, err := c.store.TraceJSON(name)
	if err != nil {
		return guidance.FileInput{}, err
	}
	return guidance.FileInput{Name: name, Content: content, Trace: traceData}, nil
}

// reportCheck writes results. It returns the joined per-file errors when a
// file could not be checked, and errViolations when any file has feedback.
func reportCheck(out io.Writer, results []guidance.FileResult, format string) error {
	failed := false
	collector := caeerrors.NewErrorCollector()
	for _, r := range results {
		collector.Add(r.File, r.Err)
		if len(r.Feedback) > 0 {
			failed = true
		}
	}

	switch format {
	case "json":
		byFile := make(map[string][]guidance.Feedback, len(results))
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			feedback := r.Feedback
			if feedback == nil {
				feedback = []guidance.Feedback{}
			}
			byFile[r.File] = feedback
		}
		if err := writeJSON(out, byFile); err != nil {
			return err
		}
	case "text":
		for _, r := range results {
			switch {
			case r.Err != nil:
				fmt.Fprintf(out, "%s %s: %v\n", errorColor.Sprint("✗"), r.File, r.Err)
			case len(r.Feedback) == 0:
				fmt.Fprintf(out, "%s %s\n", successColor.Sprint("✓"), r.File)
			default:
				fmt.Fprintf(out, "%s %s\n", warnColor.Sprint("!"), r.File)
				for _, fb := range r.Feedback {
					fmt.Fprintf(out, "  %s\n", fb.Message)
					for _, loc := range fb.Segments {
						fmt.Fprintf(out, "    %s %s\n", idColor.Sprint(loc.SegmentID),
							mutedColor.Sprintf("[%d:%d]", loc.Start, loc.End))
					}
				}
			}
		}
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", format)
	}

	if collector.HasErrors() {
		return collector.Err()
	}
	if failed {
		return errViolations
	}
	return nil
}
