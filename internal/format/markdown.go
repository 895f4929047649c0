package format

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"promptpack/internal/pipeline"
)

// MarkdownRenderer emits a prompt-ready markdown document: a file tree,
// fenced per-file content blocks, skip/failure listings and a summary.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(w io.Writer, records []pipeline.FileRecord, failures []pipeline.FailureRecord, summary *pipeline.RunSummary, opts Options) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Code Context: %s\n\n", summary.Root)

	b.WriteString("## File Tree\n\n```\n")
	b.WriteString(renderTree(records))
	b.WriteString("```\n\n")

	b.WriteString("## Files\n\n")
	for _, rec := range records {
		fmt.Fprintf(&b, "### %s\n\n", rec.RelPath)
		if opts.IncludeMetadata {
			fmt.Fprintf(&b, "Language: %s | Encoding: %s | Size: %d bytes | Tokens: %d\n\n",
				rec.Language, rec.Encoding, rec.Size, rec.TokenCount)
		}
		if rec.Truncated {
			b.WriteString("_Content truncated to fit the token budget._\n\n")
		}
		if rec.Overflow {
			b.WriteString("_This file pushed the run past the model context ceiling._\n\n")
		}
		fence := fenceFor(rec.Content)
		fmt.Fprintf(&b, "%s%s\n", fence, fenceHint(rec.Language))
		b.WriteString(rec.Content)
		if !strings.HasSuffix(rec.Content, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString(fence)
		b.WriteString("\n\n")
	}

	if len(summary.SkippedFiles) > 0 {
		b.WriteString("## Skipped Binary Files\n\n")
		for _, p := range summary.SkippedFiles {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteByte('\n')
	}

	if len(failures) > 0 {
		b.WriteString("## Failed Files\n\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "- %s (stage: %s): %s\n", f.RelPath, f.Stage, f.Reason)
		}
		b.WriteByte('\n')
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Files discovered: %d\n", summary.Discovered)
	fmt.Fprintf(&b, "- Files processed: %d\n", summary.Processed)
	fmt.Fprintf(&b, "- Binary files skipped: %d\n", summary.SkippedBinary)
	fmt.Fprintf(&b, "- Files failed: %d\n", summary.Failed)
	fmt.Fprintf(&b, "- Total tokens: %d\n", summary.TotalTokens)
	fmt.Fprintf(&b, "- Total bytes: %d\n", summary.TotalBytes)
	if summary.Overflowed {
		fmt.Fprintf(&b, "- Context ceiling (%d tokens) exceeded; %d file(s) flagged\n",
			summary.ContextCeiling, len(summary.OverflowFiles))
	}
	if len(summary.Languages) > 0 {
		b.WriteString("- Languages:\n")
		for _, lc := range sortedLanguages(summary.Languages) {
			fmt.Fprintf(&b, "  - %s: %d\n", lc.name, lc.count)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// fenceFor returns a backtick fence one longer than the longest backtick run
// in the content, so embedded fences never break the block.
func fenceFor(content string) string {
	longest := 0
	run := 0
	for _, r := range content {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	n := longest + 1
	if n < 3 {
		n = 3
	}
	return strings.Repeat("`", n)
}

func fenceHint(language string) string {
	if language == "" {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(language, " ", "-"))
}

type langCount struct {
	name  string
	count int
}

// sortedLanguages orders the histogram by count descending, then name, so
// output is deterministic.
func sortedLanguages(langs map[string]int) []langCount {
	out := make([]langCount, 0, len(langs))
	for name, count := range langs {
		out = append(out, langCount{name, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].name < out[j].name
	})
	return out
}

// treeNode is one entry in the rendered file tree.
type treeNode struct {
	name     string
	isDir    bool
	children map[string]*treeNode
}

func newTreeNode(name string, isDir bool) *treeNode {
	return &treeNode{name: name, isDir: isDir, children: make(map[string]*treeNode)}
}

// renderTree draws the records' relative paths as a connector tree.
func renderTree(records []pipeline.FileRecord) string {
	root := newTreeNode(".", true)
	for _, rec := range records {
		parts := strings.Split(rec.RelPath, "/")
		node := root
		for i, part := range parts {
			child, ok := node.children[part]
			if !ok {
				child = newTreeNode(part, i < len(parts)-1)
				node.children[part] = child
			}
			node = child
		}
	}

	var b strings.Builder
	b.WriteString(".\n")
	writeTreeNode(&b, root, "")
	return b.String()
}

func writeTreeNode(b *strings.Builder, node *treeNode, prefix string) {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		child := node.children[name]
		connector, childPrefix := "├── ", prefix+"│   "
		if i == len(names)-1 {
			connector, childPrefix = "└── ", prefix+"    "
		}
		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(child.name)
		b.WriteByte('\n')
		if child.isDir {
			writeTreeNode(b, child, childPrefix)
		}
	}
}
