package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for cae including:

- Semantic version number
- Git commit hash
- Build timestamp
- Go version used for compilation
- Target platform (OS/architecture)

Examples:
  cae version                 # Show version details
  cae version --short         # Show version and commit only
  cae version --format json   # Output as JSON`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	return printVersion(cmd.OutOrStdout(), version.Get(), versionFormat, versionShort)
}

func printVersion(out io.Writer, info *version.Info, format string, short bool) error {
	switch format {
	case "json":
		return writeJSON(out, info)
	case "text":
		if short {
			fmt.Fprintln(out, info.Short())
			return nil
		}
		fmt.Fprintf(out, "%s %s\n", successColor.Sprint("cae"), info.Short())
		fmt.Fprintln(out, info.String())
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", format)
	}
}
