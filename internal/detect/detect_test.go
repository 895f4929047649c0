package detect

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	t.Run("plain utf-8", func(t *testing.T) {
		res, err := Detect([]byte("package main\n"), 0)
		require.NoError(t, err)
		assert.False(t, res.Binary)
		assert.Equal(t, "utf-8", res.Encoding)
		assert.Equal(t, "package main\n", res.Text)
	})

	t.Run("empty file is utf-8 text", func(t *testing.T) {
		res, err := Detect(nil, 0)
		require.NoError(t, err)
		assert.False(t, res.Binary)
		assert.Equal(t, "", res.Text)
	})

	t.Run("utf-8 BOM stripped", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)
		res, err := Detect(data, 0)
		require.NoError(t, err)
		assert.Equal(t, "utf-8-bom", res.Encoding)
		assert.Equal(t, "hello", res.Text)
	})

	t.Run("utf-16le BOM decoded", func(t *testing.T) {
		data := []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}
		res, err := Detect(data, 0)
		require.NoError(t, err)
		assert.False(t, res.Binary)
		assert.Equal(t, "utf-16le", res.Encoding)
		assert.Equal(t, "hi", res.Text)
	})

	t.Run("utf-16be BOM decoded", func(t *testing.T) {
		data := []byte{0xFE, 0xFF, 0x00, 'h', 0x00, 'i'}
		res, err := Detect(data, 0)
		require.NoError(t, err)
		assert.Equal(t, "utf-16be", res.Encoding)
		assert.Equal(t, "hi", res.Text)
	})

	t.Run("null bytes mean binary", func(t *testing.T) {
		res, err := Detect([]byte{'P', 'N', 'G', 0x00, 0x01}, 0)
		require.NoError(t, err)
		assert.True(t, res.Binary)
		assert.Empty(t, res.Text)
	})

	t.Run("high non-printable ratio means binary", func(t *testing.T) {
		data := bytes.Repeat([]byte{0x01, 0x02, 'a'}, 100)
		res, err := Detect(data, 0)
		require.NoError(t, err)
		assert.True(t, res.Binary)
	})

	t.Run("latin-1 text decodes via fallback", func(t *testing.T) {
		// "café" in iso-8859-1/windows-1252: 0xE9 is not valid utf-8.
		data := []byte{'c', 'a', 'f', 0xE9}
		res, err := Detect(data, 0)
		require.NoError(t, err)
		assert.False(t, res.Binary)
		assert.Equal(t, "windows-1252", res.Encoding)
		assert.Equal(t, "café", res.Text)
	})

	t.Run("oversize flagged binary without decode", func(t *testing.T) {
		data := []byte(strings.Repeat("a", 100))
		res, err := Detect(data, 10)
		require.NoError(t, err)
		assert.True(t, res.Binary)
	})

	t.Run("default ceiling applies when maxSize is zero", func(t *testing.T) {
		res, err := Detect([]byte("ok"), 0)
		require.NoError(t, err)
		assert.False(t, res.Binary)
	})
}
