package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"promptpack/internal/token"
	"promptpack/internal/walker"
)

// OverflowPolicy decides what happens to files once the running token total
// passes the model's context ceiling. Every policy still counts and reports
// the overflowing files; they differ only in disposal.
type OverflowPolicy string

const (
	// OverflowWarn keeps overflowing records in the document, flagged.
	OverflowWarn OverflowPolicy = "warn"
	// OverflowDrop excludes overflowing records from the document.
	OverflowDrop OverflowPolicy = "drop"
	// OverflowStop cancels dispatch once the ceiling is crossed.
	OverflowStop OverflowPolicy = "stop"
)

// ErrAllFailed is returned when every discovered file failed. It is the one
// per-file condition that maps to a non-zero exit.
var ErrAllFailed = errors.New("every discovered file failed to process")

// Config holds the orchestration knobs.
type Config struct {
	Model          string
	Workers        int
	ContextCeiling int // 0 derives the ceiling from Model
	OverflowPolicy OverflowPolicy
}

// Extra is a pre-decoded document (a fetched web page) fed through the
// Sanitize and Count stages after the tree has been drained.
type Extra struct {
	RelPath  string
	Language string
	Text     string
}

// Orchestrator owns the worker pool and the single-writer aggregation of
// results. Workers never touch shared state; everything funnels through one
// collector loop.
type Orchestrator struct {
	cfg    Config
	walker *walker.Walker
	proc   *Processor
	logger *zap.Logger
}

// NewOrchestrator builds an orchestrator over a walker and a processor.
func NewOrchestrator(cfg Config, w *walker.Walker, proc *Processor, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, walker: w, proc: proc, logger: logger}
}

// Run processes every admitted file under root concurrently and returns the
// finalized summary plus both result collections, sorted by relative path.
// Cancelling ctx stops dispatch after in-flight files finish; the partial
// summary is still valid.
func (o *Orchestrator) Run(ctx context.Context, root string, extras []Extra) (*RunSummary, []FileRecord, []FailureRecord, error) {
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, nil, fmt.Errorf("root path %s is not a directory", root)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := o.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ceiling := o.cfg.ContextCeiling
	if ceiling == 0 {
		ceiling = token.ContextCeiling(o.cfg.Model)
	}
	policy := o.cfg.OverflowPolicy
	if policy == "" {
		policy = OverflowWarn
	}

	o.logger.Info("starting run",
		zap.String("root", root),
		zap.Int("workers", workers),
		zap.Int("context_ceiling", ceiling),
		zap.String("overflow_policy", string(policy)))

	agg := &aggregator{
		summary: &RunSummary{
			Root:           root,
			Model:          o.cfg.Model,
			Languages:      make(map[string]int),
			ContextCeiling: ceiling,
		},
		ceiling: ceiling,
		policy:  policy,
		stop:    cancel,
		logger:  o.logger,
	}

	cands, derrs := o.walker.Walk(runCtx, root)
	outcomes := make(chan Outcome, workers)

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case cand, ok := <-cands:
					if !ok {
						return nil
					}
					out := o.proc.Process(cand)
					select {
					case outcomes <- out:
					case <-gctx.Done():
						return nil
					}
				}
			}
		})
	}
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case de, ok := <-derrs:
				if !ok {
					return nil
				}
				out := Outcome{
					RelPath: de.RelPath,
					Failure: &FailureRecord{RelPath: de.RelPath, Stage: StageDiscover, Reason: de.Reason},
				}
				select {
				case outcomes <- out:
				case <-gctx.Done():
					return nil
				}
			}
		}
	})
	go func() {
		_ = g.Wait()
		close(outcomes)
	}()

	// Single writer: only this loop mutates the aggregate.
	for out := range outcomes {
		agg.add(out)
	}

	for _, extra := range extras {
		agg.add(o.proc.ProcessText(extra.RelPath, extra.Language, extra.Text))
		agg.summary.RemoteDocuments++
	}

	if ctx.Err() != nil {
		agg.summary.Cancelled = true
	}

	agg.finalize()

	agg.summary.Duration = time.Since(start)
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	agg.summary.PeakMemoryBytes = mem.Sys

	s := agg.summary
	o.logger.Info("run finished",
		zap.Int("discovered", s.Discovered),
		zap.Int("processed", s.Processed),
		zap.Int("skipped_binary", s.SkippedBinary),
		zap.Int("failed", s.Failed),
		zap.Int("total_tokens", s.TotalTokens),
		zap.Duration("duration", s.Duration))

	if s.Discovered > 0 && s.Processed == 0 && s.Failed == s.Discovered {
		return s, agg.records, agg.failures, ErrAllFailed
	}
	return s, agg.records, agg.failures, nil
}

// aggregator applies the single-writer-at-a-time discipline: add is only
// ever called from the collector loop.
type aggregator struct {
	records       []FileRecord
	failures      []FailureRecord
	summary       *RunSummary
	runningTokens int
	ceiling       int
	policy        OverflowPolicy
	stopped       bool
	stop          context.CancelFunc
	logger        *zap.Logger
}

func (a *aggregator) add(out Outcome) {
	a.summary.Discovered++

	switch {
	case out.Binary:
		a.summary.SkippedBinary++
		a.summary.SkippedFiles = append(a.summary.SkippedFiles, out.RelPath)

	case out.Failure != nil:
		a.summary.Failed++
		a.failures = append(a.failures, *out.Failure)

	case out.Record != nil:
		a.summary.Processed++
		if out.Record.Truncated {
			a.summary.TruncatedFiles++
		}
		a.records = append(a.records, *out.Record)

		// The stop policy cancels dispatch as soon as the completion-order
		// total crosses the ceiling. Which records carry the Overflow flag
		// is decided in finalize, over the sorted records.
		if a.policy == OverflowStop && a.ceiling > 0 {
			a.runningTokens += out.Record.TokenCount
			if a.runningTokens > a.ceiling && !a.stopped {
				a.stopped = true
				a.summary.Cancelled = true
				a.stop()
			}
		}
	}
}

// finalize sorts every collection and applies the context ceiling over the
// path-sorted records, so flagging, dropping and totals never depend on
// worker scheduling.
func (a *aggregator) finalize() {
	sort.Slice(a.records, func(i, j int) bool { return a.records[i].RelPath < a.records[j].RelPath })
	sort.Slice(a.failures, func(i, j int) bool { return a.failures[i].RelPath < a.failures[j].RelPath })
	sort.Strings(a.summary.SkippedFiles)

	running := 0
	kept := a.records[:0]
	for _, rec := range a.records {
		running += rec.TokenCount
		if a.ceiling > 0 && running > a.ceiling {
			rec.Overflow = true
			a.summary.Overflowed = true
			a.summary.OverflowFiles = append(a.summary.OverflowFiles, rec.RelPath)
			a.logger.Warn("context ceiling exceeded",
				zap.String("path", rec.RelPath),
				zap.Int("running_tokens", running),
				zap.Int("ceiling", a.ceiling),
				zap.String("policy", string(a.policy)))
			if a.policy == OverflowDrop || a.policy == OverflowStop {
				a.summary.DroppedOverflow++
				continue
			}
		}
		a.summary.TotalBytes += rec.Size
		a.summary.TotalTokens += rec.TokenCount
		a.summary.Languages[rec.Language]++
		kept = append(kept, rec)
	}
	a.records = kept
}
