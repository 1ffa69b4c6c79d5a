package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/store"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/trace"
)

const previewWidth = 40

var inspectJSON bool

// inspectCmd represents the inspect command.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the segment tree and traces of a generated file",
	Long: `Rebuild the segment tree of a generated file from its trace metadata
and the current file content, then print it together with the model
elements traced to it.

Rebuilding fails when the content no longer matches the metadata, which
makes inspect a quick way to validate a hand-edited file.

Examples:
  cae inspect src/Main.java          # Print the tree
  cae inspect src/Main.java --json   # Print the trace metadata as JSON`,
	Args: cobra.ExactArgs(1),
	RunE: runInspectCommand,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the trace metadata as JSON")
}

func runInspectCommand(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	return inspect(cmd.OutOrStdout(), st, args[0], inspectJSON)
}

func inspect(out io.Writer, st *store.Store, fileName string, asJSON bool) error {
	f, found, err := st.LoadModel(fileName)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no trace metadata for %s", fileName)
	}
	if asJSON {
		return writeJSON(out, f.FileTrace())
	}

	fmt.Fprintf(out, "%s (%d bytes)\n", f.FileName(), len(f.Content()))
	for _, s := range f.Segments() {
		printSegment(out, s, 1)
	}

	models := f.ModelIDs()
	if len(models) == 0 {
		return nil
	}
	fmt.Fprintln(out, "traces:")
	for _, modelID := range models {
		info, _ := f.Element(modelID)
		fmt.Fprintf(out, "  %s %s\n", idColor.Sprint(modelID), mutedColor.Sprint(describeElement(info)))
		for _, s := range f.Traces(modelID) {
			fmt.Fprintf(out, "    %s\n", s.ID())
		}
	}
	return nil
}

func printSegment(out io.Writer, s segment.Segment, depth int) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s%s %s", indent, idColor.Sprint(s.ID()), kindLabel(s.Kind()))
	if c, ok := s.(segment.Container); ok {
		fmt.Fprintf(out, "%s %s\n", line, mutedColor.Sprintf("len=%d", s.Len()))
		for _, child := range c.Children() {
			printSegment(out, child, depth+1)
		}
		return
	}
	fmt.Fprintf(out, "%s %s\n", line, mutedColor.Sprint(preview(s.Content())))
}

func kindLabel(k segment.Kind) string {
	switch k {
	case segment.KindUnprotected:
		return successColor.Sprint(string(k))
	case segment.KindProtected:
		return warnColor.Sprint(string(k))
	default:
		return string(k)
	}
}

func describeElement(info trace.ElementInfo) string {
	switch {
	case info.Type != "" && info.Name != "":
		return info.Type + " " + info.Name
	case info.Type != "":
		return info.Type
	default:
		return info.Name
	}
}

// preview quotes the first previewWidth bytes of content.
func preview(content string) string {
	if len(content) <= previewWidth {
		return strconv.Quote(content)
	}
	return strconv.Quote(content[:previewWidth]) + "..."
}
