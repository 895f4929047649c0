// Package language maps file paths and content samples to language labels.
// Classification never fails; unknown files get the generic "Text" label.
package language

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
	"gopkg.in/yaml.v3"
)

// Unknown is the label assigned when neither the lookup tables nor the
// content lexer recognize a file.
const Unknown = "Text"

// sampleLimit bounds how much content the lexer guess may inspect.
const sampleLimit = 1024

// Info describes one language in an override file. The format matches the
// linguist-style languages.yml.
type Info struct {
	Type       string   `yaml:"type"`
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// Classifier resolves language labels from extension and filename tables,
// falling back to a bounded content-sample lexer guess.
type Classifier struct {
	extensions map[string]string
	filenames  map[string]string
}

// NewClassifier returns a classifier seeded with the built-in tables.
func NewClassifier() *Classifier {
	c := &Classifier{
		extensions: make(map[string]string, len(builtinExtensions)),
		filenames:  make(map[string]string, len(builtinFilenames)),
	}
	for ext, lang := range builtinExtensions {
		c.extensions[ext] = lang
	}
	for name, lang := range builtinFilenames {
		c.filenames[name] = lang
	}
	return c
}

// LoadOverrides merges a languages.yml file into the lookup tables. Entries
// in the file win over the built-ins.
func (c *Classifier) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading language file %s: %w", path, err)
	}
	var langs map[string]Info
	if err := yaml.Unmarshal(data, &langs); err != nil {
		return fmt.Errorf("parsing language file %s: %w", path, err)
	}
	for name, info := range langs {
		for _, ext := range info.Extensions {
			c.extensions[strings.ToLower(ext)] = name
		}
		for _, fname := range info.Filenames {
			c.filenames[fname] = name
		}
	}
	return nil
}

// Classify returns the language label for a path, consulting the filename
// table, the extension table, chroma's filename patterns, and finally a
// content-sample analysis.
func (c *Classifier) Classify(relPath string, sample []byte) string {
	base := filepath.Base(relPath)

	if lang, ok := c.filenames[base]; ok {
		return lang
	}
	if ext := strings.ToLower(filepath.Ext(base)); ext != "" {
		if lang, ok := c.extensions[ext]; ok {
			return lang
		}
	}

	if lexer := lexers.Match(base); lexer != nil {
		return lexer.Config().Name
	}

	if len(sample) > 0 {
		if len(sample) > sampleLimit {
			sample = sample[:sampleLimit]
		}
		if lexer := lexers.Analyse(string(sample)); lexer != nil {
			return lexer.Config().Name
		}
	}

	return Unknown
}

var builtinExtensions = map[string]string{
	".go":       "Go",
	".py":       "Python",
	".pyi":      "Python",
	".js":       "JavaScript",
	".mjs":      "JavaScript",
	".ts":       "TypeScript",
	".tsx":      "TSX",
	".jsx":      "JSX",
	".rb":       "Ruby",
	".rs":       "Rust",
	".java":     "Java",
	".c":        "C",
	".h":        "C",
	".cpp":      "C++",
	".cc":       "C++",
	".hpp":      "C++",
	".cs":       "C#",
	".php":      "PHP",
	".swift":    "Swift",
	".kt":       "Kotlin",
	".scala":    "Scala",
	".sh":       "Shell",
	".bash":     "Shell",
	".zsh":      "Shell",
	".ps1":      "PowerShell",
	".lua":      "Lua",
	".pl":       "Perl",
	".r":        "R",
	".dart":     "Dart",
	".ex":       "Elixir",
	".exs":      "Elixir",
	".erl":      "Erlang",
	".hs":       "Haskell",
	".clj":      "Clojure",
	".zig":      "Zig",
	".sql":      "SQL",
	".proto":    "Protocol Buffer",
	".md":       "Markdown",
	".markdown": "Markdown",
	".rst":      "reStructuredText",
	".json":     "JSON",
	".yaml":     "YAML",
	".yml":      "YAML",
	".toml":     "TOML",
	".xml":      "XML",
	".html":     "HTML",
	".css":      "CSS",
	".scss":     "SCSS",
	".txt":      "Text",
}

var builtinFilenames = map[string]string{
	"Makefile":       "Makefile",
	"makefile":       "Makefile",
	"GNUmakefile":    "Makefile",
	"Dockerfile":     "Docker",
	"Containerfile":  "Docker",
	"Gemfile":        "Ruby",
	"Rakefile":       "Ruby",
	"CMakeLists.txt": "CMake",
	"go.mod":         "Go Module",
	"go.sum":         "Go Checksums",
}
