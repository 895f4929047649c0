// Package source resolves non-local inputs: remote git repositories are
// cloned into temporary directories and web pages are fetched and converted
// to markdown, so both can flow through the same pipeline as local trees.
package source

import (
	"fmt"
	"os"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// IsGitURL reports whether input looks like a cloneable repository URL.
func IsGitURL(input string) bool {
	return strings.HasSuffix(input, ".git") || strings.HasPrefix(input, "git@")
}

// CloneRepo clones url into a temporary directory and returns the directory
// plus a cleanup func that removes it.
func CloneRepo(url string, logger *zap.Logger) (string, func(), error) {
	tempDir, err := os.MkdirTemp("", "promptpack-git-")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tempDir) }

	logger.Info("cloning repository", zap.String("url", url), zap.String("dir", tempDir))

	_, err = git.PlainClone(tempDir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
		Depth:         1,
	})
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("cloning %s: %w", url, err)
	}
	return tempDir, cleanup, nil
}
