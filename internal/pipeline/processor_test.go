package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptpack/internal/language"
	"promptpack/internal/sanitize"
	"promptpack/internal/walker"
)

// wordCounter counts one token per whitespace-separated word, making token
// assertions deterministic without a BPE vocabulary.
type wordCounter struct{}

func (wordCounter) Count(text string) (int, error) { return len(strings.Fields(text)), nil }
func (wordCounter) Name() string                   { return "words" }
func (wordCounter) Close()                         {}

// failingCounter fails on content containing a trigger string, exercising
// the Count failure stage.
type failingCounter struct{ trigger string }

func (f failingCounter) Count(text string) (int, error) {
	if f.trigger != "" && strings.Contains(text, f.trigger) {
		return 0, errors.New("tokenizer rejected input")
	}
	return len(strings.Fields(text)), nil
}
func (f failingCounter) Name() string { return "failing" }
func (f failingCounter) Close()       {}

func newTestProcessor(opts ProcessorOptions) *Processor {
	return NewProcessor(wordCounter{}, language.NewClassifier(), opts, zap.NewNop())
}

func candidateFor(t *testing.T, dir, rel, content string) walker.Candidate {
	t.Helper()
	abs := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	return walker.Candidate{AbsPath: abs, RelPath: rel, Size: int64(len(content))}
}

func TestProcess(t *testing.T) {
	t.Run("text file produces a record", func(t *testing.T) {
		dir := t.TempDir()
		cand := candidateFor(t, dir, "main.go", "package main\n\nfunc main() {}\n")

		out := newTestProcessor(ProcessorOptions{}).Process(cand)
		require.NotNil(t, out.Record)
		rec := out.Record
		assert.Equal(t, "main.go", rec.Name)
		assert.Equal(t, "Go", rec.Language)
		assert.Equal(t, "utf-8", rec.Encoding)
		assert.Equal(t, 5, rec.TokenCount)
		assert.False(t, rec.Truncated)
		assert.Equal(t, "package main\n\nfunc main() {}\n", rec.Content)
	})

	t.Run("binary file is skipped, not failed", func(t *testing.T) {
		dir := t.TempDir()
		cand := candidateFor(t, dir, "logo.png", "\x89PNG\x00\x00\x01")

		out := newTestProcessor(ProcessorOptions{}).Process(cand)
		assert.True(t, out.Binary)
		assert.Nil(t, out.Record)
		assert.Nil(t, out.Failure)
	})

	t.Run("oversize file is skipped without reading", func(t *testing.T) {
		cand := walker.Candidate{AbsPath: "/nonexistent", RelPath: "huge.bin", Size: 10 << 20}
		out := newTestProcessor(ProcessorOptions{MaxFileSize: 1 << 20}).Process(cand)
		assert.True(t, out.Binary)
	})

	t.Run("unreadable file fails at the read stage", func(t *testing.T) {
		cand := walker.Candidate{AbsPath: filepath.Join(t.TempDir(), "gone.txt"), RelPath: "gone.txt", Size: 4}
		out := newTestProcessor(ProcessorOptions{}).Process(cand)
		require.NotNil(t, out.Failure)
		assert.Equal(t, StageRead, out.Failure.Stage)
		assert.Equal(t, "gone.txt", out.Failure.RelPath)
	})

	t.Run("counter error fails at the count stage", func(t *testing.T) {
		dir := t.TempDir()
		cand := candidateFor(t, dir, "bad.txt", "poison pill content\n")

		p := NewProcessor(failingCounter{trigger: "poison"}, language.NewClassifier(), ProcessorOptions{}, zap.NewNop())
		out := p.Process(cand)
		require.NotNil(t, out.Failure)
		assert.Equal(t, StageCount, out.Failure.Stage)
	})

	t.Run("per-file budget truncates", func(t *testing.T) {
		dir := t.TempDir()
		var b strings.Builder
		for i := 0; i < 100; i++ {
			b.WriteString("alpha beta gamma delta\n")
		}
		cand := candidateFor(t, dir, "huge.txt", b.String())

		out := newTestProcessor(ProcessorOptions{MaxTokensPerFile: 40}).Process(cand)
		require.NotNil(t, out.Record)
		assert.True(t, out.Record.Truncated)
		assert.LessOrEqual(t, out.Record.TokenCount, 40)
		assert.Contains(t, out.Record.Content, "[truncated:")
	})

	t.Run("sanitization applies before counting", func(t *testing.T) {
		dir := t.TempDir()
		cand := candidateFor(t, dir, "messy.py", "x = 1  \r\n\r\n\r\n\r\n\r\ny = 2\r\n")

		out := newTestProcessor(ProcessorOptions{
			Sanitize: sanitize.Options{MaxBlankLines: 1},
		}).Process(cand)
		require.NotNil(t, out.Record)
		assert.Equal(t, "x = 1\n\ny = 2\n", out.Record.Content)
	})
}

func TestProcessText(t *testing.T) {
	p := newTestProcessor(ProcessorOptions{MaxTokensPerFile: 3})

	out := p.ProcessText("https://example.com/doc", "Markdown", "one two three four five\n")
	require.NotNil(t, out.Record)
	assert.Equal(t, "https://example.com/doc", out.Record.RelPath)
	assert.Equal(t, "Markdown", out.Record.Language)
	assert.True(t, out.Record.Truncated)
}
