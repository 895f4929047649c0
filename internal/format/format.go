// Package format renders the aggregated file records and run summary into a
// single document. Renderers are interchangeable serializations over one
// shared model; writes are atomic so a crash mid-write never corrupts the
// target.
package format

import (
	"fmt"
	"io"

	"promptpack/internal/pipeline"
)

// Options control rendering. Path and content are always emitted; the
// metadata fields (language, encoding, size, token count) are optional.
type Options struct {
	IncludeMetadata bool
}

// Renderer serializes records, failures and the summary to a writer.
type Renderer interface {
	Render(w io.Writer, records []pipeline.FileRecord, failures []pipeline.FailureRecord, summary *pipeline.RunSummary, opts Options) error
}

// New returns the renderer for a format name.
func New(name string) (Renderer, error) {
	switch name {
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "yaml", "yml":
		return &YAMLRenderer{}, nil
	case "pdf":
		return &PDFRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want markdown, json, yaml or pdf)", name)
	}
}

// docFile is the per-file shape shared by the JSON and YAML renderers.
type docFile struct {
	Path      string `json:"path" yaml:"path"`
	Language  string `json:"language,omitempty" yaml:"language,omitempty"`
	Encoding  string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Size      int64  `json:"size,omitempty" yaml:"size,omitempty"`
	Tokens    int    `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	Truncated bool   `json:"truncated,omitempty" yaml:"truncated,omitempty"`
	Overflow  bool   `json:"overflow,omitempty" yaml:"overflow,omitempty"`
	Content   string `json:"content" yaml:"content"`
}

// document is the serializable model shared by the structured renderers.
type document struct {
	Root     string                   `json:"root" yaml:"root"`
	Files    []docFile                `json:"files" yaml:"files"`
	Failures []pipeline.FailureRecord `json:"failures,omitempty" yaml:"failures,omitempty"`
	Summary  *pipeline.RunSummary     `json:"summary" yaml:"summary"`
}

func buildDocument(records []pipeline.FileRecord, failures []pipeline.FailureRecord, summary *pipeline.RunSummary, opts Options) document {
	files := make([]docFile, 0, len(records))
	for _, rec := range records {
		f := docFile{
			Path:      rec.RelPath,
			Truncated: rec.Truncated,
			Overflow:  rec.Overflow,
			Content:   rec.Content,
		}
		if opts.IncludeMetadata {
			f.Language = rec.Language
			f.Encoding = rec.Encoding
			f.Size = rec.Size
			f.Tokens = rec.TokenCount
		}
		files = append(files, f)
	}
	return document{
		Root:     summary.Root,
		Files:    files,
		Failures: failures,
		Summary:  summary,
	}
}
