package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/config"
)

const defaultConfigFile = ".cae.yml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage cae configuration",
	Long: `Manage cae configuration files and settings.

This command provides subcommands for:
- Writing a configuration file with the default values
- Validating existing configuration files
- Showing current configuration values

Examples:
  cae config init                       # Write .cae.yml
  cae config validate                   # Validate .cae.yml
  cae config show --format json         # Show the resolved configuration`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the configuration after loading the configuration file,
applying environment variable overrides and command-line flags and filling
in default values.`,
	RunE: runConfigShow,
}

var (
	configOutput string
	configForce  bool
	configFile   string
	configFormat string
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", defaultConfigFile, "Output configuration file")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configValidateCmd.Flags().StringVarP(&configFile, "file", "f", "", "Configuration file to validate (default: .cae.yml)")

	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := writeDefaultConfig(configOutput, configForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration saved to: %s\n", successColor.Sprint("✓"), configOutput)
	return nil
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
	}
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	target := configFile
	if target == "" {
		target = defaultConfigFile
	}
	if _, err := validateConfigFile(target); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration %s is valid\n", successColor.Sprint("✓"), target)
	return nil
}

func validateConfigFile(path string) (*config.Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("configuration file %s does not exist", path)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return config.LoadFrom(v)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return showConfig(cmd.OutOrStdout(), cfg, configFormat)
}

func showConfig(out io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		return writeJSON(out, cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", format)
	}
}
