// Command promptpack converts a source tree into a single token-budgeted
// document suitable for a large-language-model prompt.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"promptpack/internal/config"
	"promptpack/internal/format"
	"promptpack/internal/ignore"
	"promptpack/internal/language"
	"promptpack/internal/pipeline"
	"promptpack/internal/report"
	"promptpack/internal/sanitize"
	"promptpack/internal/source"
	"promptpack/internal/token"
	"promptpack/internal/walker"
)

// version is set via ldflags.
var version = "dev"

var (
	flagModel          string
	flagTokenizerFile  string
	flagMaxTokens      int
	flagContextCeiling int
	flagOverflow       string
	flagMaxFileSize    int64
	flagWorkers        int
	flagFormat         string
	flagMetadata       bool
	flagOutput         string
	flagClipboard      bool
	flagIgnoreFile     string
	flagNoIgnore       bool
	flagStripComments  bool
	flagMaxBlankLines  int
	flagLogLevel       string
	flagURLs           []string
)

var rootCmd = &cobra.Command{
	Use:   "promptpack [PATH]",
	Short: "Pack a codebase into one LLM-ready document",
	Long: `promptpack walks a source tree (or a remote git repository), filters it
through gitignore-style rules, decodes and sanitizes every text file, counts
tokens against a per-file and per-model budget, and renders the result as a
single markdown, JSON, YAML or PDF document.`,
	Version:       version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	cobra.OnInitialize(config.InitViper)

	f := rootCmd.Flags()
	f.StringVarP(&flagModel, "model", "m", "gpt-4o", "Target model; selects the token encoding and context ceiling")
	f.StringVar(&flagTokenizerFile, "tokenizer-file", "", "Path to a local tokenizer.json (HuggingFace) instead of tiktoken")
	f.IntVar(&flagMaxTokens, "max-tokens-per-file", 0, "Per-file token budget (0 for no limit)")
	f.IntVar(&flagContextCeiling, "context-ceiling", 0, "Override the model context ceiling in tokens")
	f.StringVar(&flagOverflow, "overflow", "warn", "Policy once the ceiling is crossed: warn, drop or stop")
	f.Int64VarP(&flagMaxFileSize, "max-file-size", "s", 1<<20, "Files larger than this are skipped as binary")
	f.IntVarP(&flagWorkers, "workers", "w", 0, "Worker pool size (0 for available cores)")
	f.StringVarP(&flagFormat, "format", "f", "markdown", "Output format: markdown, json, yaml or pdf")
	f.BoolVar(&flagMetadata, "metadata", true, "Include language/encoding/size/token metadata per file")
	f.StringVarP(&flagOutput, "output", "o", "-", "Output path ('-' for stdout)")
	f.BoolVarP(&flagClipboard, "clipboard", "c", false, "Also copy the document to the clipboard")
	f.StringVar(&flagIgnoreFile, "ignore-file", "", "Supplemental ignore-rules file")
	f.BoolVar(&flagNoIgnore, "no-ignore", false, "Bypass all ignore rules")
	f.BoolVar(&flagStripComments, "strip-comments", false, "Strip whole-line comments per language")
	f.IntVar(&flagMaxBlankLines, "max-blank-lines", 2, "Cap on consecutive blank lines")
	f.StringVar(&flagLogLevel, "log-level", "info", "Log verbosity: debug, info, warn or error")
	f.StringArrayVar(&flagURLs, "url", nil, "Web pages to fetch and append as markdown documents")

	bindings := map[string]string{
		"model":               "model",
		"tokenizer_file":      "tokenizer-file",
		"max_tokens_per_file": "max-tokens-per-file",
		"context_ceiling":     "context-ceiling",
		"overflow_policy":     "overflow",
		"max_file_size":       "max-file-size",
		"workers":             "workers",
		"format":              "format",
		"include_metadata":    "metadata",
		"output":              "output",
		"clipboard":           "clipboard",
		"ignore_file":         "ignore-file",
		"no_ignore":           "no-ignore",
		"strip_comments":      "strip-comments",
		"max_blank_lines":     "max-blank-lines",
		"log_level":           "log-level",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	input := "."
	if len(args) == 1 {
		input = args[0]
	}

	root := input
	if source.IsGitURL(input) {
		dir, cleanup, err := source.CloneRepo(input, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		root = dir
	}

	rules, err := compileRules(root, cfg, logger)
	if err != nil {
		return err
	}

	counter, err := token.NewCounter(cfg.Model, cfg.TokenizerFile, logger)
	if err != nil {
		return err
	}
	defer counter.Close()

	classifier := language.NewClassifier()
	loadLanguageOverrides(classifier, logger)

	proc := pipeline.NewProcessor(counter, classifier, pipeline.ProcessorOptions{
		MaxFileSize:      cfg.MaxFileSizeBytes,
		MaxTokensPerFile: cfg.MaxTokensPerFile,
		Sanitize: sanitize.Options{
			MaxBlankLines: cfg.MaxBlankLines,
			StripComments: cfg.StripComments,
		},
	}, logger)

	extras := fetchExtras(flagURLs, logger)

	orch := pipeline.NewOrchestrator(pipeline.Config{
		Model:          cfg.Model,
		Workers:        cfg.EffectiveWorkers(),
		ContextCeiling: cfg.ContextCeiling,
		OverflowPolicy: pipeline.OverflowPolicy(cfg.OverflowPolicy),
	}, walker.New(rules, logger), proc, logger)

	summary, records, failures, err := orch.Run(cmd.Context(), root, extras)
	if err != nil {
		if errors.Is(err, pipeline.ErrAllFailed) {
			fmt.Fprint(os.Stderr, report.Summarize(summary))
		}
		return err
	}

	fmt.Fprint(os.Stderr, report.Summarize(summary))

	if summary.Processed == 0 {
		logger.Info("no processable files found, no document written",
			zap.String("root", root))
		return nil
	}

	renderer, err := format.New(cfg.Format)
	if err != nil {
		return err
	}
	opts := format.Options{IncludeMetadata: cfg.IncludeMetadata}
	render := func(w io.Writer) error {
		return renderer.Render(w, records, failures, summary, opts)
	}

	if cfg.Output == "-" {
		if err := render(os.Stdout); err != nil {
			return err
		}
	} else {
		if err := format.WriteDocument(cfg.Output, render); err != nil {
			return err
		}
		logger.Info("document written", zap.String("path", cfg.Output))
	}

	if cfg.Clipboard && cfg.Format != "pdf" {
		var buf bytes.Buffer
		if err := render(&buf); err != nil {
			return err
		}
		if err := clipboard.WriteAll(buf.String()); err != nil {
			logger.Warn("copying to clipboard failed", zap.Error(err))
		} else {
			logger.Info("document copied to clipboard")
		}
	}

	return nil
}

// compileRules layers the built-in defaults, the project's own ignore files
// at the root, and the supplemental rules file from configuration.
func compileRules(root string, cfg config.Config, logger *zap.Logger) (*ignore.RuleSet, error) {
	if cfg.BypassIgnore {
		return ignore.Compile(nil, nil, true), nil
	}

	var supplemental []string
	for _, name := range []string{".gitignore", ".promptpackignore"} {
		path := filepath.Join(root, name)
		rules, err := ignore.LoadRuleFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Warn("could not read ignore file", zap.String("path", path), zap.Error(err))
			}
			continue
		}
		supplemental = append(supplemental, rules...)
	}

	if cfg.IgnoreFile != "" {
		rules, err := ignore.LoadRuleFile(cfg.IgnoreFile)
		if err != nil {
			return nil, err
		}
		supplemental = append(supplemental, rules...)
	}

	return ignore.Compile(ignore.DefaultRules, supplemental, false), nil
}

// loadLanguageOverrides merges an optional languages.yml from the standard
// config locations.
func loadLanguageOverrides(classifier *language.Classifier, logger *zap.Logger) {
	paths := []string{"languages.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "promptpack", "languages.yml"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := classifier.LoadOverrides(path); err != nil {
			logger.Warn("could not load language overrides", zap.String("path", path), zap.Error(err))
		} else {
			logger.Debug("loaded language overrides", zap.String("path", path))
		}
		return
	}
}

// fetchExtras downloads the requested web pages. Fetch failures are logged
// and skipped; remote documents are additive, never fatal.
func fetchExtras(urls []string, logger *zap.Logger) []pipeline.Extra {
	var extras []pipeline.Extra
	for _, u := range urls {
		if !source.IsWebURL(u) {
			logger.Warn("skipping non-HTTP URL", zap.String("url", u))
			continue
		}
		page, err := source.FetchPage(u)
		if err != nil {
			logger.Warn("fetching page failed", zap.Error(err))
			continue
		}
		extras = append(extras, pipeline.Extra{
			RelPath:  page.URL,
			Language: "Markdown",
			Text:     page.Markdown,
		})
	}
	return extras
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	return zc.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
