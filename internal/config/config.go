// Package config provides configuration management for the generator using
// Viper for loading from files, environment variables and command-line
// flags.
//
// The configuration file is YAML (.cae.yml by default). Every key can be
// overridden through an environment variable with the CAE_ prefix, for
// example CAE_GENERATION_STRATEGY=unordered.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/logging"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/validation"
)

// Defaults.
const (
	DefaultStrategy    = "ordered"
	DefaultOutputDir   = "./out"
	DefaultTraceDir    = ".traces"
	DefaultTraceFormat = "json"
	DefaultCacheSize   = 64
	DefaultWorkers     = 4
	DefaultDebounce    = 300 * time.Millisecond
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "CAE"

var envKeyReplacer = strings.NewReplacer(".", "_")

// BindEnv enables CAE_ environment overrides on v. Scalar keys are
// registered with their defaults so that an override applies even when no
// configuration file mentions the key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	v.SetDefault("generation.strategy", DefaultStrategy)
	v.SetDefault("generation.output_dir", DefaultOutputDir)
	v.SetDefault("generation.trace_dir", DefaultTraceDir)
	v.SetDefault("storage.trace_format", DefaultTraceFormat)
	v.SetDefault("guidance.rules_file", "")
	v.SetDefault("guidance.cache_size", DefaultCacheSize)
	v.SetDefault("guidance.workers", DefaultWorkers)
	v.SetDefault("watch.debounce", DefaultDebounce)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

type Config struct {
	Generation GenerationConfig `mapstructure:"generation" yaml:"generation"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Guidance   GuidanceConfig   `mapstructure:"guidance" yaml:"guidance"`
	Watch      WatchConfig      `mapstructure:"watch" yaml:"watch"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

type GenerationConfig struct {
	Strategy  string   `mapstructure:"strategy" yaml:"strategy"`
	OutputDir string   `mapstructure:"output_dir" yaml:"output_dir"`
	TraceDir  string   `mapstructure:"trace_dir" yaml:"trace_dir"`
	Recipes   []string `mapstructure:"recipes" yaml:"recipes,omitempty"`
}

type StorageConfig struct {
	TraceFormat string `mapstructure:"trace_format" yaml:"trace_format"`
}

type GuidanceConfig struct {
	RulesFile string `mapstructure:"rules_file" yaml:"rules_file,omitempty"`
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size"`
	Workers   int    `mapstructure:"workers" yaml:"workers"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Paths    []string      `mapstructure:"paths" yaml:"paths,omitempty"`
	Ignore   []string      `mapstructure:"ignore" yaml:"ignore,omitempty"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads, completes and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, caeerrors.NewConfigError(caeerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("cannot decode configuration: %v", err))
	}

	// Handle slices set via viper flags or env as a single string
	if v.IsSet("watch.paths") && len(config.Watch.Paths) == 0 {
		config.Watch.Paths = v.GetStringSlice("watch.paths")
	}
	if v.IsSet("watch.ignore") && len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = v.GetStringSlice("watch.ignore")
	}
	if v.IsSet("generation.recipes") && len(config.Generation.Recipes) == 0 {
		config.Generation.Recipes = v.GetStringSlice("generation.recipes")
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Generation.Strategy == "" {
		config.Generation.Strategy = DefaultStrategy
	}
	if config.Generation.OutputDir == "" {
		config.Generation.OutputDir = DefaultOutputDir
	}
	if config.Generation.TraceDir == "" {
		config.Generation.TraceDir = DefaultTraceDir
	}
	if config.Storage.TraceFormat == "" {
		config.Storage.TraceFormat = DefaultTraceFormat
	}
	if config.Guidance.CacheSize == 0 {
		config.Guidance.CacheSize = DefaultCacheSize
	}
	if config.Guidance.Workers == 0 {
		config.Guidance.Workers = DefaultWorkers
	}
	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = DefaultDebounce
	}
	if len(config.Watch.Paths) == 0 {
		config.Watch.Paths = []string{config.Generation.OutputDir}
	}
	if len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = []string{".git", config.Generation.TraceDir}
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	switch strings.ToLower(config.Generation.Strategy) {
	case "ordered", "unordered":
	default:
		return caeerrors.ConfigurationError("generation.strategy",
			"must be ordered or unordered", config.Generation.Strategy)
	}

	if err := validation.ValidatePath(config.Generation.OutputDir); err != nil {
		return caeerrors.ConfigurationError("generation.output_dir", err.Error(), config.Generation.OutputDir)
	}
	if err := validation.ValidatePath(config.Generation.TraceDir); err != nil {
		return caeerrors.ConfigurationError("generation.trace_dir", err.Error(), config.Generation.TraceDir)
	}
	for _, recipe := range config.Generation.Recipes {
		if err := validation.ValidatePath(recipe); err != nil {
			return caeerrors.ConfigurationError("generation.recipes", err.Error(), recipe)
		}
		if err := validation.ValidateFileExtension(recipe, ".yml", ".yaml"); err != nil {
			return caeerrors.ConfigurationError("generation.recipes", err.Error(), recipe)
		}
	}

	switch strings.ToLower(config.Storage.TraceFormat) {
	case "json", "msgpack":
	default:
		return caeerrors.ConfigurationError("storage.trace_format",
			"must be json or msgpack", config.Storage.TraceFormat)
	}

	if config.Guidance.RulesFile != "" {
		if err := validation.ValidatePath(config.Guidance.RulesFile); err != nil {
			return caeerrors.ConfigurationError("guidance.rules_file", err.Error(), config.Guidance.RulesFile)
		}
		if err := validation.ValidateFileExtension(config.Guidance.RulesFile, ".json", ".yml", ".yaml"); err != nil {
			return caeerrors.ConfigurationError("guidance.rules_file", err.Error(), config.Guidance.RulesFile)
		}
	}
	if config.Guidance.CacheSize < 0 {
		return caeerrors.ConfigurationError("guidance.cache_size", "must not be negative", config.Guidance.CacheSize)
	}
	if config.Guidance.Workers < 0 {
		return caeerrors.ConfigurationError("guidance.workers", "must not be negative", config.Guidance.Workers)
	}

	if config.Watch.Debounce < 0 {
		return caeerrors.ConfigurationError("watch.debounce", "must not be negative", config.Watch.Debounce)
	}
	for _, path := range config.Watch.Paths {
		if err := validation.ValidatePath(path); err != nil {
			return caeerrors.ConfigurationError("watch.paths", err.Error(), path)
		}
	}

	if _, err := logging.ParseLevel(config.Logging.Level); err != nil {
		return caeerrors.ConfigurationError("logging.level", err.Error(), config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "text", "json":
	default:
		return caeerrors.ConfigurationError("logging.format", "must be text or json", config.Logging.Format)
	}

	return nil
}

// LoggerConfig converts the logging section for the logging package.
func (c *Config) LoggerConfig() *logging.LoggerConfig {
	lc := logging.DefaultConfig()
	if level, err := logging.ParseLevel(c.Logging.Level); err == nil {
		lc.Level = level
	}
	lc.Format = strings.ToLower(c.Logging.Format)
	return lc
}
