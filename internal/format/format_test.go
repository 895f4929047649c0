package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"promptpack/internal/pipeline"
)

func fixture() ([]pipeline.FileRecord, []pipeline.FailureRecord, *pipeline.RunSummary) {
	records := []pipeline.FileRecord{
		{
			RelPath:    "main.go",
			Name:       "main.go",
			Language:   "Go",
			Encoding:   "utf-8",
			Size:       29,
			TokenCount: 5,
			Content:    "package main\n\nfunc main() {}\n",
		},
		{
			RelPath:    "docs/readme.md",
			Name:       "readme.md",
			Language:   "Markdown",
			Encoding:   "utf-8",
			Size:       20,
			TokenCount: 4,
			Content:    "```go\ncode block\n```\n",
		},
	}
	failures := []pipeline.FailureRecord{
		{RelPath: "broken.txt", Stage: pipeline.StageRead, Reason: "permission denied"},
	}
	summary := &pipeline.RunSummary{
		Root:          "/src/project",
		Discovered:    4,
		Processed:     2,
		SkippedBinary: 1,
		Failed:        1,
		TotalBytes:    49,
		TotalTokens:   9,
		Languages:     map[string]int{"Go": 1, "Markdown": 1},
		SkippedFiles:  []string{"logo.png"},
	}
	return records, failures, summary
}

func TestNew(t *testing.T) {
	for _, name := range []string{"markdown", "md", "json", "yaml", "yml", "pdf"} {
		r, err := New(name)
		require.NoError(t, err, name)
		assert.NotNil(t, r)
	}
	_, err := New("docx")
	assert.Error(t, err)
}

func TestMarkdownRender(t *testing.T) {
	records, failures, summary := fixture()

	var buf bytes.Buffer
	require.NoError(t, (&MarkdownRenderer{}).Render(&buf, records, failures, summary, Options{IncludeMetadata: true}))
	out := buf.String()

	t.Run("sections present", func(t *testing.T) {
		assert.Contains(t, out, "# Code Context: /src/project")
		assert.Contains(t, out, "## File Tree")
		assert.Contains(t, out, "## Files")
		assert.Contains(t, out, "## Skipped Binary Files\n\n- logo.png")
		assert.Contains(t, out, "## Failed Files\n\n- broken.txt (stage: read): permission denied")
		assert.Contains(t, out, "## Summary")
	})

	t.Run("tree uses connectors", func(t *testing.T) {
		assert.Contains(t, out, "├── docs\n")
		assert.Contains(t, out, "│   └── readme.md\n")
		assert.Contains(t, out, "└── main.go\n")
	})

	t.Run("file content fenced with language hint", func(t *testing.T) {
		assert.Contains(t, out, "```go\npackage main\n\nfunc main() {}\n```\n")
	})

	t.Run("embedded fences escalate the outer fence", func(t *testing.T) {
		assert.Contains(t, out, "````markdown\n```go\ncode block\n```\n````\n")
	})

	t.Run("metadata line per file", func(t *testing.T) {
		assert.Contains(t, out, "Language: Go | Encoding: utf-8 | Size: 29 bytes | Tokens: 5")
	})

	t.Run("summary counts", func(t *testing.T) {
		assert.Contains(t, out, "- Files discovered: 4\n")
		assert.Contains(t, out, "- Files processed: 2\n")
		assert.Contains(t, out, "- Binary files skipped: 1\n")
		assert.Contains(t, out, "- Files failed: 1\n")
		assert.Contains(t, out, "- Total tokens: 9\n")
	})
}

func TestMarkdownRenderWithoutMetadata(t *testing.T) {
	records, failures, summary := fixture()

	var buf bytes.Buffer
	require.NoError(t, (&MarkdownRenderer{}).Render(&buf, records, failures, summary, Options{}))
	assert.NotContains(t, buf.String(), "Language: Go | Encoding:")
}

func TestFenceFor(t *testing.T) {
	assert.Equal(t, "```", fenceFor("plain text"))
	assert.Equal(t, "````", fenceFor("has ```python inside"))
	assert.Equal(t, "``````", fenceFor("a `````raw````` block"))
}

func TestJSONRender(t *testing.T) {
	records, failures, summary := fixture()

	var buf bytes.Buffer
	require.NoError(t, (&JSONRenderer{}).Render(&buf, records, failures, summary, Options{IncludeMetadata: true}))

	var doc document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "/src/project", doc.Root)
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "main.go", doc.Files[0].Path)
	assert.Equal(t, "Go", doc.Files[0].Language)
	assert.Equal(t, 5, doc.Files[0].Tokens)
	assert.Equal(t, "package main\n\nfunc main() {}\n", doc.Files[0].Content)
	require.Len(t, doc.Failures, 1)
	assert.Equal(t, "broken.txt", doc.Failures[0].RelPath)
	require.NotNil(t, doc.Summary)
	assert.Equal(t, 4, doc.Summary.Discovered)

	// HTML escaping is disabled so code survives verbatim.
	var buf2 bytes.Buffer
	recs := []pipeline.FileRecord{{RelPath: "t.go", Content: "if a < b && b > c {}\n"}}
	require.NoError(t, (&JSONRenderer{}).Render(&buf2, recs, nil, summary, Options{}))
	assert.Contains(t, buf2.String(), "a < b && b > c")
}

func TestYAMLRender(t *testing.T) {
	records, failures, summary := fixture()

	var buf bytes.Buffer
	require.NoError(t, (&YAMLRenderer{}).Render(&buf, records, failures, summary, Options{IncludeMetadata: true}))

	var doc document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "/src/project", doc.Root)
	require.Len(t, doc.Files, 2)
	assert.Equal(t, "docs/readme.md", doc.Files[1].Path)
	assert.Equal(t, "```go\ncode block\n```\n", doc.Files[1].Content)
}

func TestBuildDocumentStripsMetadata(t *testing.T) {
	records, failures, summary := fixture()
	doc := buildDocument(records, failures, summary, Options{})
	for _, f := range doc.Files {
		assert.Empty(t, f.Language)
		assert.Empty(t, f.Encoding)
		assert.Zero(t, f.Size)
		assert.Zero(t, f.Tokens)
		assert.NotEmpty(t, f.Content)
	}
}

func TestWriteDocument(t *testing.T) {
	t.Run("writes rendered content", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.md")
		err := WriteDocument(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "hello\n")
			return err
		})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	})

	t.Run("render failure leaves no target and no temp files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.md")
		err := WriteDocument(path, func(w io.Writer) error {
			return errFail
		})
		require.Error(t, err)

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("overwrites an existing document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.md")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
		require.NoError(t, WriteDocument(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "new\n")
			return err
		}))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "new\n", string(data))
	})
}

var errFail = errors.New("render failed")

func TestPDFRender(t *testing.T) {
	records, failures, summary := fixture()

	var buf bytes.Buffer
	require.NoError(t, (&PDFRenderer{}).Render(&buf, records, failures, summary, Options{IncludeMetadata: true}))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
	assert.Greater(t, buf.Len(), 1000)
}
