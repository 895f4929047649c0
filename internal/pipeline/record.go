// Package pipeline runs the per-file processing state machine and the
// concurrent orchestration that turns a source tree into an ordered set of
// file records plus a run summary.
package pipeline

import "time"

// Stage identifies the pipeline stage at which a file failed.
type Stage string

const (
	StageDiscover Stage = "discover"
	StageRead     Stage = "read"
	StageDecode   Stage = "decode"
	StageSanitize Stage = "sanitize"
	StageCount    Stage = "count"
)

// FileRecord is the terminal successful outcome for one file. It is
// immutable once emitted and consumed only by formatters.
type FileRecord struct {
	Name       string `json:"name" yaml:"name"`
	AbsPath    string `json:"-" yaml:"-"`
	RelPath    string `json:"path" yaml:"path"`
	Language   string `json:"language,omitempty" yaml:"language,omitempty"`
	Encoding   string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Size       int64  `json:"size" yaml:"size"`
	TokenCount int    `json:"tokens" yaml:"tokens"`
	Content    string `json:"content" yaml:"content"`
	Truncated  bool   `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Overflow   bool   `json:"overflow,omitempty" yaml:"overflow,omitempty"`
}

// FailureRecord is the terminal unsuccessful outcome for one file. Failures
// are surfaced in the document and summary, never dropped.
type FailureRecord struct {
	RelPath string `json:"path" yaml:"path"`
	Stage   Stage  `json:"stage" yaml:"stage"`
	Reason  string `json:"reason" yaml:"reason"`
}

// RunSummary aggregates a finished (or cancelled) run. It is finalized only
// after all workers have joined.
type RunSummary struct {
	Root            string         `json:"root" yaml:"root"`
	Model           string         `json:"model" yaml:"model"`
	Discovered      int            `json:"discovered" yaml:"discovered"`
	Processed       int            `json:"processed" yaml:"processed"`
	SkippedBinary   int            `json:"skipped_binary" yaml:"skipped_binary"`
	Failed          int            `json:"failed" yaml:"failed"`
	TotalTokens     int            `json:"total_tokens" yaml:"total_tokens"`
	TotalBytes      int64          `json:"total_bytes" yaml:"total_bytes"`
	Languages       map[string]int `json:"languages" yaml:"languages"`
	SkippedFiles    []string       `json:"skipped_files,omitempty" yaml:"skipped_files,omitempty"`
	Overflowed      bool           `json:"overflowed,omitempty" yaml:"overflowed,omitempty"`
	OverflowFiles   []string       `json:"overflow_files,omitempty" yaml:"overflow_files,omitempty"`
	DroppedOverflow int            `json:"dropped_overflow,omitempty" yaml:"dropped_overflow,omitempty"`
	Cancelled       bool           `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Duration        time.Duration  `json:"-" yaml:"-"`
	PeakMemoryBytes uint64         `json:"-" yaml:"-"`
	ContextCeiling  int            `json:"context_ceiling" yaml:"context_ceiling"`
	TruncatedFiles  int            `json:"truncated_files,omitempty" yaml:"truncated_files,omitempty"`
	RemoteDocuments int            `json:"remote_documents,omitempty" yaml:"remote_documents,omitempty"`
}

// Outcome is the result of processing one candidate: exactly one of Record,
// Failure, or Binary is meaningful.
type Outcome struct {
	RelPath string
	Record  *FileRecord
	Failure *FailureRecord
	Binary  bool
}
