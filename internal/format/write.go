package format

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteDocument writes a rendered document to path atomically: the content
// goes to a temp file in the target directory, then a rename swaps it in.
func WriteDocument(path string, render func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".promptpack-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := render(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("rendering document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("moving document into place: %w", err)
	}
	return nil
}
