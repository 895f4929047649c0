// Package token wraps the raw token-counting primitives and implements the
// per-file budget policy. Counting is keyed by model name; an unknown model
// falls back to the default encoding rather than failing the run.
package token

import (
	"fmt"
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	"go.uber.org/zap"
)

// DefaultModel is the encoding used when the requested model is unknown.
const DefaultModel = "gpt-4o"

// TruncationMarker is appended to truncated content. It is counted against
// the file's budget.
const TruncationMarker = "\n[truncated: content exceeded token budget]\n"

// DefaultContextCeiling is used for models without a known context window.
const DefaultContextCeiling = 128000

// contextCeilings maps model names to context window sizes in tokens.
var contextCeilings = map[string]int{
	"gpt-4o":        128000,
	"gpt-4o-mini":   128000,
	"gpt-4-turbo":   128000,
	"gpt-4":         8192,
	"gpt-3.5-turbo": 16385,
	"o1":            200000,
	"o1-mini":       128000,
}

// ContextCeiling returns the context window for a model, or the default for
// unknown models.
func ContextCeiling(model string) int {
	if c, ok := contextCeilings[model]; ok {
		return c
	}
	return DefaultContextCeiling
}

// Counter counts tokens for one fixed model/encoding. Implementations must
// be safe for concurrent use by the worker pool.
type Counter interface {
	Count(text string) (int, error)
	Name() string
	Close()
}

// TiktokenCounter counts with OpenAI BPE encodings.
type TiktokenCounter struct {
	name string
	enc  *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the encoding for model, falling back to
// DefaultModel when the model is unknown.
func NewTiktokenCounter(model string, logger *zap.Logger) (*TiktokenCounter, error) {
	if model == "" {
		model = DefaultModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Warn("unknown tokenizer model, using default encoding",
			zap.String("model", model),
			zap.String("default", DefaultModel),
			zap.Error(err))
		model = DefaultModel
		enc, err = tiktoken.EncodingForModel(model)
		if err != nil {
			return nil, fmt.Errorf("loading default encoding %s: %w", DefaultModel, err)
		}
	}
	return &TiktokenCounter{name: model, enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) (int, error) {
	return len(c.enc.EncodeOrdinary(text)), nil
}

func (c *TiktokenCounter) Name() string { return c.name }
func (c *TiktokenCounter) Close()       {}

// HuggingFaceCounter counts with a tokenizer.json loaded from disk.
type HuggingFaceCounter struct {
	name string
	tk   *hf.Tokenizer
}

// NewHuggingFaceCounter loads a local pretrained tokenizer file.
func NewHuggingFaceCounter(file string) (*HuggingFaceCounter, error) {
	tk, err := pretrained.FromFile(file)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer from %s: %w", file, err)
	}
	return &HuggingFaceCounter{name: file, tk: tk}, nil
}

func (c *HuggingFaceCounter) Count(text string) (int, error) {
	en, err := c.tk.EncodeSingle(text)
	if err != nil {
		return 0, fmt.Errorf("encoding text: %w", err)
	}
	return len(en.Tokens), nil
}

func (c *HuggingFaceCounter) Name() string { return c.name }
func (c *HuggingFaceCounter) Close()       {}

// NewCounter selects a counter: a HuggingFace tokenizer file when given,
// otherwise tiktoken for the model.
func NewCounter(model, tokenizerFile string, logger *zap.Logger) (Counter, error) {
	if tokenizerFile != "" {
		return NewHuggingFaceCounter(tokenizerFile)
	}
	return NewTiktokenCounter(model, logger)
}

// FitToBudget returns text unchanged when it is within maxTokens. Otherwise
// it trims whole lines from the tail, re-measuring, until the content plus
// TruncationMarker fits, preserving the orienting context at the top of the
// file. A budget too small for even the marker yields empty content; the
// returned count never exceeds maxTokens. maxTokens <= 0 disables the budget.
func FitToBudget(c Counter, text string, maxTokens int) (string, int, bool, error) {
	count, err := c.Count(text)
	if err != nil {
		return "", 0, false, err
	}
	if maxTokens <= 0 || count <= maxTokens {
		return text, count, false, nil
	}

	markerTokens, err := c.Count(TruncationMarker)
	if err != nil {
		return "", 0, false, err
	}
	bodyBudget := maxTokens - markerTokens
	if bodyBudget < 0 {
		bodyBudget = 0
	}

	lines := strings.SplitAfter(text, "\n")

	// Binary search the largest line-prefix that fits the body budget.
	lo, hi := 0, len(lines)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		n, err := c.Count(strings.Join(lines[:mid], ""))
		if err != nil {
			return "", 0, false, err
		}
		if n <= bodyBudget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	for keep := lo; keep >= 0; keep-- {
		out := strings.Join(lines[:keep], "") + TruncationMarker
		n, err := c.Count(out)
		if err != nil {
			return "", 0, false, err
		}
		if n <= maxTokens {
			return out, n, true, nil
		}
	}

	// Even the marker alone is over budget: emit nothing rather than exceed it.
	return "", 0, true, nil
}
