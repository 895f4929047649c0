// Package ignore compiles gitignore-style rules into a path matcher used to
// prune the source tree before any file is read.
//
// Rules are layered: built-in defaults first, then the project's own ignore
// file, then any supplemental rules. Later layers win, so a supplemental
// negation (`!keep.log`) re-includes a path excluded by an earlier layer.
package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
)

// DefaultRules are always compiled in unless bypass is requested. They cover
// VCS metadata and dependency/build trees that are never useful prompt
// context.
var DefaultRules = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"vendor/",
	"target/",
	"dist/",
	"__pycache__/",
	".venv/",
	".idea/",
	".vscode/",
	"*.min.js",
	"*.lock",
	".DS_Store",
}

// RuleSet is an immutable compiled rule set. The zero value matches nothing
// (everything is included), which is also what Compile returns for bypass.
type RuleSet struct {
	matcher gitignore.IgnoreMatcher
	bypass  bool
	sources []string
}

// Compile builds a RuleSet from base rules plus supplemental rule lines.
// With bypass set the result includes every path regardless of rules.
func Compile(baseRules, supplementalRules []string, bypass bool) *RuleSet {
	if bypass {
		return &RuleSet{bypass: true}
	}

	var b strings.Builder
	n := 0
	for _, line := range baseRules {
		b.WriteString(line)
		b.WriteByte('\n')
		n++
	}
	for _, line := range supplementalRules {
		b.WriteString(line)
		b.WriteByte('\n')
		n++
	}
	if n == 0 {
		return &RuleSet{}
	}

	return &RuleSet{
		matcher: gitignore.NewGitIgnoreFromReader(".", strings.NewReader(b.String())),
	}
}

// LoadRuleFile reads pattern lines from an ignore file. Blank lines and
// comments are dropped here so callers can count effective rules.
func LoadRuleFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", path, err)
	}
	var rules []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		rules = append(rules, line)
	}
	return rules, nil
}

// Match reports whether relPath is excluded by the rule set. Paths are
// slash-normalized before matching; unmatched paths are included.
func (rs *RuleSet) Match(relPath string, isDir bool) bool {
	if rs == nil || rs.bypass || rs.matcher == nil {
		return false
	}
	rel := filepath.ToSlash(relPath)
	rel = strings.TrimPrefix(rel, "./")
	rel = strings.Trim(rel, "/")
	if rel == "" || rel == "." {
		return false
	}
	return rs.matcher.Match(rel, isDir)
}

// Bypass reports whether the rule set was compiled in bypass mode.
func (rs *RuleSet) Bypass() bool {
	return rs != nil && rs.bypass
}
