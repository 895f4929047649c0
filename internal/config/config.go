// Package config defines the run configuration consumed by the core and its
// loading order: defaults, then a config file, then PROMPTPACK_* environment
// variables, then flag overrides bound by the CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full configuration surface consumed by the core.
type Config struct {
	Model            string `mapstructure:"model"`
	TokenizerFile    string `mapstructure:"tokenizer_file"`
	MaxTokensPerFile int    `mapstructure:"max_tokens_per_file"`
	ContextCeiling   int    `mapstructure:"context_ceiling"`
	OverflowPolicy   string `mapstructure:"overflow_policy"`

	MaxFileSizeBytes int64 `mapstructure:"max_file_size"`
	Workers          int   `mapstructure:"workers"`

	Format          string `mapstructure:"format"`
	IncludeMetadata bool   `mapstructure:"include_metadata"`
	Output          string `mapstructure:"output"`
	Clipboard       bool   `mapstructure:"clipboard"`

	IgnoreFile   string `mapstructure:"ignore_file"`
	BypassIgnore bool   `mapstructure:"no_ignore"`

	StripComments bool `mapstructure:"strip_comments"`
	MaxBlankLines int  `mapstructure:"max_blank_lines"`

	LogLevel string `mapstructure:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Model:            "gpt-4o",
		MaxTokensPerFile: 0,
		OverflowPolicy:   "warn",
		MaxFileSizeBytes: 1 << 20,
		Workers:          0, // 0 means runtime.NumCPU()
		Format:           "markdown",
		IncludeMetadata:  true,
		Output:           "-",
		MaxBlankLines:    2,
		LogLevel:         "info",
	}
}

var validFormats = map[string]bool{"markdown": true, "md": true, "json": true, "yaml": true, "yml": true, "pdf": true}
var validPolicies = map[string]bool{"warn": true, "drop": true, "stop": true}

// Validate checks cross-field constraints. Errors here are setup errors: the
// run aborts before any work starts.
func (c Config) Validate() error {
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format %q (want markdown, json, yaml or pdf)", c.Format)
	}
	if !validPolicies[c.OverflowPolicy] {
		return fmt.Errorf("invalid overflow policy %q (want warn, drop or stop)", c.OverflowPolicy)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.MaxTokensPerFile < 0 {
		return fmt.Errorf("max tokens per file must be >= 0, got %d", c.MaxTokensPerFile)
	}
	if c.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max file size must be > 0, got %d", c.MaxFileSizeBytes)
	}
	return nil
}

// EffectiveWorkers resolves the worker count, defaulting to the available
// parallelism.
func (c Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// InitViper registers defaults, config file search paths and the environment
// prefix on the global viper instance. Called once from the CLI before flag
// parsing completes.
func InitViper() {
	def := Default()
	viper.SetDefault("model", def.Model)
	viper.SetDefault("max_tokens_per_file", def.MaxTokensPerFile)
	viper.SetDefault("overflow_policy", def.OverflowPolicy)
	viper.SetDefault("max_file_size", def.MaxFileSizeBytes)
	viper.SetDefault("workers", def.Workers)
	viper.SetDefault("format", def.Format)
	viper.SetDefault("include_metadata", def.IncludeMetadata)
	viper.SetDefault("output", def.Output)
	viper.SetDefault("max_blank_lines", def.MaxBlankLines)
	viper.SetDefault("log_level", def.LogLevel)

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "promptpack"))
	}
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	viper.SetEnvPrefix("PROMPTPACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// Load reads the config file (if any) and unmarshals the merged settings.
func Load() (Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing configuration: %w", err)
	}
	return cfg, nil
}
