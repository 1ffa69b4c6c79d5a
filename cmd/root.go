// Package cmd provides the command-line interface of the code generator.
//
// Configuration System:
//
//	Settings are resolved from several sources with clear precedence:
//	1. Command-line flags (--config, --strategy, --log-level, etc.) - highest priority
//	2. CAE_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (CAE_GENERATION_STRATEGY, etc.)
//	4. Configuration files (.cae.yml) - lowest priority
//
// Environment Variables:
//
//	CAE_CONFIG_FILE: Path to custom configuration file
//	CAE_GENERATION_OUTPUT_DIR: Override the output directory
//	CAE_STORAGE_TRACE_FORMAT: json or msgpack
//	And every other key following the CAE_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/config"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cae",
	Short: "Regenerative code generation with trace-based synchronization",
	Long: `cae renders source files from templates and keeps a trace of which
template and which model element produced every part of the output.

Regenerating a file reuses the previous trace: free-edit regions keep the
edits made by hand while the generated parts follow the new model.

Quick Start:
  cae config init                 Write a default .cae.yml
  cae generate recipe.yml         Generate files described by a recipe
  cae inspect src/Main.java       Show the segment tree of a generated file
  cae check --rules rules.yml     Check free-edit regions against rules
  cae watch                       Re-check files as they are edited`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .cae.yml, can also use CAE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("output-dir", config.DefaultOutputDir, "directory generated files are written to")
	bindFlag(rootCmd.PersistentFlags(), "logging.level", "log-level")
	bindFlag(rootCmd.PersistentFlags(), "generation.output_dir", "output-dir")
}

// bindFlag binds the flag called name in fs to a configuration key so
// that an explicitly set flag overrides files and environment.
func bindFlag(fs *pflag.FlagSet, key, name string) {
	if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding --%s to %s: %v", name, key, err))
	}
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. CAE_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .cae.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cae")
	}

	config.BindEnv(viper.GetViper())

	// A missing file falls back to defaults and environment overrides.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setup loads the configuration and builds the logger shared by a command.
func setup(cmd *cobra.Command) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	lc := cfg.LoggerConfig()
	lc.Output = cmd.ErrOrStderr()
	return cfg, logging.NewLogger(lc), nil
}

// openStore opens the trace store configured in cfg.
func openStore(cfg *config.Config, logger logging.Logger) (*store.Store, error) {
	codec, err := store.CodecFor(cfg.Storage.TraceFormat)
	if err != nil {
		return nil, err
	}
	return store.New(cfg.Generation.OutputDir, cfg.Generation.TraceDir,
		store.WithCodec(codec),
		store.WithLogger(logger))
}
