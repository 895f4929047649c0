package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	t.Run("normalizes line endings", func(t *testing.T) {
		got := Sanitize("Go", "a\r\nb\rc\n", Options{})
		assert.Equal(t, "a\nb\nc\n", got)
	})

	t.Run("strips trailing whitespace", func(t *testing.T) {
		got := Sanitize("Go", "a  \t\nb\t\n", Options{})
		assert.Equal(t, "a\nb\n", got)
	})

	t.Run("caps consecutive blank lines", func(t *testing.T) {
		got := Sanitize("Go", "a\n\n\n\n\nb\n", Options{MaxBlankLines: 2})
		assert.Equal(t, "a\n\n\nb\n", got)
	})

	t.Run("drops trailing blank lines and ensures final newline", func(t *testing.T) {
		got := Sanitize("Go", "a\n\n\n", Options{})
		assert.Equal(t, "a\n", got)
		got = Sanitize("Go", "no newline", Options{})
		assert.Equal(t, "no newline\n", got)
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		assert.Equal(t, "", Sanitize("Go", "", Options{}))
		assert.Equal(t, "", Sanitize("Go", "\n\n\n", Options{}))
	})

	t.Run("comment stripping is off by default", func(t *testing.T) {
		in := "// comment\ncode()\n"
		assert.Equal(t, in, Sanitize("Go", in, Options{}))
	})

	t.Run("strips whole-line comments when enabled", func(t *testing.T) {
		in := "// header\nfunc main() {\n\t// inner\n\tx := 1 // trailing stays\n}\n"
		got := Sanitize("Go", in, Options{StripComments: true})
		assert.Equal(t, "func main() {\n\tx := 1 // trailing stays\n}\n", got)
	})

	t.Run("keeps shebang line", func(t *testing.T) {
		in := "#!/bin/sh\n# real comment\necho hi\n"
		got := Sanitize("Shell", in, Options{StripComments: true})
		assert.Equal(t, "#!/bin/sh\necho hi\n", got)
	})

	t.Run("unknown language leaves comments alone", func(t *testing.T) {
		in := "// not stripped\ndata\n"
		got := Sanitize("Text", in, Options{StripComments: true})
		assert.Equal(t, in, got)
	})

	t.Run("never alters code structure", func(t *testing.T) {
		in := "s := \"  padded string  \"\n"
		assert.Equal(t, in, Sanitize("Go", in, Options{}))
	})
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"a\r\nb\r\n\r\n\r\n\r\nc",
		"x\n\n\n\n\ny\t \n",
		"#!/usr/bin/env bash\n# c1\n# c2\necho done\n\n\n",
		"plain text without newline",
	}
	optSets := []Options{
		{},
		{MaxBlankLines: 1},
		{StripComments: true},
		{MaxBlankLines: 3, StripComments: true},
	}
	for _, in := range inputs {
		for _, opts := range optSets {
			once := Sanitize("Shell", in, opts)
			twice := Sanitize("Shell", once, opts)
			assert.Equal(t, once, twice, "sanitize must be idempotent for %q with %+v", in, opts)
		}
	}
}

func TestRuleFor(t *testing.T) {
	r, ok := RuleFor("Python")
	assert.True(t, ok)
	assert.Equal(t, []string{"#"}, r.LineCommentPrefixes)

	_, ok = RuleFor("NoSuchLanguage")
	assert.False(t, ok)
}
