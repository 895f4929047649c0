// Package walker performs rule-aware directory traversal. Candidates stream
// over a bounded channel so very large trees never buffer fully in memory,
// and consumers can stop early by cancelling the context.
package walker

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"promptpack/internal/ignore"
)

// queueSize bounds the candidate channel, capping producer lead over the
// worker pool.
const queueSize = 256

// Candidate is a discovered file awaiting processing. Produced once,
// consumed once.
type Candidate struct {
	AbsPath string
	RelPath string
	Size    int64
}

// DiscoveryError reports an unreadable directory entry. Traversal continues
// past it.
type DiscoveryError struct {
	RelPath string
	Reason  string
}

// Walker traverses a tree, pruning excluded directories before descent and
// following directory symlinks at most once each.
type Walker struct {
	rules  *ignore.RuleSet
	logger *zap.Logger
}

// New returns a Walker over the given rule set.
func New(rules *ignore.RuleSet, logger *zap.Logger) *Walker {
	return &Walker{rules: rules, logger: logger}
}

// Walk streams candidates under root. Both channels are closed when the
// traversal finishes or ctx is cancelled. The caller must drain both.
func (w *Walker) Walk(ctx context.Context, root string) (<-chan Candidate, <-chan DiscoveryError) {
	cands := make(chan Candidate, queueSize)
	errs := make(chan DiscoveryError, queueSize)

	go func() {
		defer close(cands)
		defer close(errs)

		visited := make(map[string]struct{})
		if real, err := filepath.EvalSymlinks(root); err == nil {
			visited[real] = struct{}{}
		}
		w.walkDir(ctx, root, "", visited, cands, errs)
	}()

	return cands, errs
}

func (w *Walker) walkDir(ctx context.Context, dir, rel string, visited map[string]struct{}, cands chan<- Candidate, errs chan<- DiscoveryError) {
	if ctx.Err() != nil {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.sendErr(ctx, errs, DiscoveryError{RelPath: rel, Reason: err.Error()})
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		name := entry.Name()
		entryRel := name
		if rel != "" {
			entryRel = rel + "/" + name
		}
		entryAbs := filepath.Join(dir, name)

		info, err := os.Stat(entryAbs) // follows symlinks
		if err != nil {
			w.sendErr(ctx, errs, DiscoveryError{RelPath: entryRel, Reason: err.Error()})
			continue
		}

		if info.IsDir() {
			if w.rules.Match(entryRel, true) {
				w.logger.Debug("pruned directory", zap.String("path", entryRel))
				continue
			}
			// Track resolved real paths so symlink cycles terminate.
			real, err := filepath.EvalSymlinks(entryAbs)
			if err != nil {
				w.sendErr(ctx, errs, DiscoveryError{RelPath: entryRel, Reason: err.Error()})
				continue
			}
			if _, seen := visited[real]; seen {
				w.logger.Debug("skipping already-visited directory", zap.String("path", entryRel))
				continue
			}
			visited[real] = struct{}{}
			w.walkDir(ctx, entryAbs, entryRel, visited, cands, errs)
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}
		if w.rules.Match(entryRel, false) {
			continue
		}

		select {
		case cands <- Candidate{AbsPath: entryAbs, RelPath: entryRel, Size: info.Size()}:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Walker) sendErr(ctx context.Context, errs chan<- DiscoveryError, de DiscoveryError) {
	select {
	case errs <- de:
	case <-ctx.Done():
	}
}
