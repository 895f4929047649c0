// Package sanitize normalizes decoded text before token accounting. The
// transformation is idempotent and never alters identifiers, string literals,
// or code structure: only line endings, trailing whitespace, blank-line runs,
// and (optionally) whole-line comments are touched.
package sanitize

import "strings"

// DefaultMaxBlankLines caps runs of consecutive blank lines.
const DefaultMaxBlankLines = 2

// Options control sanitization. Comment stripping is off by default.
type Options struct {
	MaxBlankLines int
	StripComments bool
}

// Rule describes how comments look in one language. Only whole-line comments
// are ever removed; inline comment markers inside a line may sit inside a
// string literal, so they are left alone.
type Rule struct {
	LineCommentPrefixes []string
}

// rules is the per-language registry, resolved once per file by label.
var rules = map[string]Rule{
	"Go":              {LineCommentPrefixes: []string{"//"}},
	"C":               {LineCommentPrefixes: []string{"//"}},
	"C++":             {LineCommentPrefixes: []string{"//"}},
	"C#":              {LineCommentPrefixes: []string{"//"}},
	"Java":            {LineCommentPrefixes: []string{"//"}},
	"JavaScript":      {LineCommentPrefixes: []string{"//"}},
	"TypeScript":      {LineCommentPrefixes: []string{"//"}},
	"Rust":            {LineCommentPrefixes: []string{"//"}},
	"Swift":           {LineCommentPrefixes: []string{"//"}},
	"Kotlin":          {LineCommentPrefixes: []string{"//"}},
	"Scala":           {LineCommentPrefixes: []string{"//"}},
	"Dart":            {LineCommentPrefixes: []string{"//"}},
	"Zig":             {LineCommentPrefixes: []string{"//"}},
	"Python":          {LineCommentPrefixes: []string{"#"}},
	"Ruby":            {LineCommentPrefixes: []string{"#"}},
	"Shell":           {LineCommentPrefixes: []string{"#"}},
	"Perl":            {LineCommentPrefixes: []string{"#"}},
	"R":               {LineCommentPrefixes: []string{"#"}},
	"YAML":            {LineCommentPrefixes: []string{"#"}},
	"TOML":            {LineCommentPrefixes: []string{"#"}},
	"Makefile":        {LineCommentPrefixes: []string{"#"}},
	"Docker":          {LineCommentPrefixes: []string{"#"}},
	"Elixir":          {LineCommentPrefixes: []string{"#"}},
	"SQL":             {LineCommentPrefixes: []string{"--"}},
	"Haskell":         {LineCommentPrefixes: []string{"--"}},
	"Lua":             {LineCommentPrefixes: []string{"--"}},
	"Erlang":          {LineCommentPrefixes: []string{"%"}},
	"Clojure":         {LineCommentPrefixes: []string{";"}},
	"Protocol Buffer": {LineCommentPrefixes: []string{"//"}},
}

// RuleFor returns the comment rule for a language label, if one is known.
func RuleFor(language string) (Rule, bool) {
	r, ok := rules[language]
	return r, ok
}

// Sanitize cleans text for the given language label. Applying it twice
// yields the same result as applying it once.
func Sanitize(language, text string, opts Options) string {
	if text == "" {
		return ""
	}
	maxBlank := opts.MaxBlankLines
	if maxBlank <= 0 {
		maxBlank = DefaultMaxBlankLines
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var rule Rule
	stripComments := false
	if opts.StripComments {
		rule, stripComments = rules[language]
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")

		if stripComments && isWholeLineComment(line, rule) && !(i == 0 && strings.HasPrefix(line, "#!")) {
			continue
		}

		if line == "" {
			blanks++
			if blanks > maxBlank {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}

	// Drop trailing blank lines so output always ends in exactly one newline.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}

func isWholeLineComment(line string, rule Rule) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return false
	}
	for _, prefix := range rule.LineCommentPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}
