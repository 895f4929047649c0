// Package report turns a finished RunSummary into a human-readable run
// report. Pure presentation: no side effects beyond formatting.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"promptpack/internal/pipeline"
)

// Summarize renders the run summary as aligned text for the terminal.
func Summarize(s *pipeline.RunSummary) string {
	var b strings.Builder

	b.WriteString("Run summary\n")
	fmt.Fprintf(&b, "  Root:            %s\n", s.Root)
	fmt.Fprintf(&b, "  Model:           %s\n", s.Model)
	fmt.Fprintf(&b, "  Discovered:      %d\n", s.Discovered)
	fmt.Fprintf(&b, "  Processed:       %d\n", s.Processed)
	fmt.Fprintf(&b, "  Skipped binary:  %d\n", s.SkippedBinary)
	fmt.Fprintf(&b, "  Failed:          %d\n", s.Failed)
	fmt.Fprintf(&b, "  Total tokens:    %d\n", s.TotalTokens)
	fmt.Fprintf(&b, "  Total bytes:     %s\n", humanBytes(s.TotalBytes))
	fmt.Fprintf(&b, "  Duration:        %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  Peak memory:     %s\n", humanBytes(int64(s.PeakMemoryBytes)))

	if s.TruncatedFiles > 0 {
		fmt.Fprintf(&b, "  Truncated files: %d\n", s.TruncatedFiles)
	}
	if s.RemoteDocuments > 0 {
		fmt.Fprintf(&b, "  Remote docs:     %d\n", s.RemoteDocuments)
	}
	if s.Overflowed {
		fmt.Fprintf(&b, "  Overflow:        context ceiling of %d tokens exceeded (%d file(s) flagged, %d dropped)\n",
			s.ContextCeiling, len(s.OverflowFiles), s.DroppedOverflow)
	}
	if s.Cancelled {
		b.WriteString("  Cancelled:       run stopped early; results are partial\n")
	}

	if len(s.Languages) > 0 {
		b.WriteString("  Languages:\n")
		type lc struct {
			name  string
			count int
		}
		langs := make([]lc, 0, len(s.Languages))
		for name, count := range s.Languages {
			langs = append(langs, lc{name, count})
		}
		sort.Slice(langs, func(i, j int) bool {
			if langs[i].count != langs[j].count {
				return langs[i].count > langs[j].count
			}
			return langs[i].name < langs[j].name
		})
		for _, l := range langs {
			fmt.Fprintf(&b, "    %-16s %d\n", l.name, l.count)
		}
	}

	return b.String()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
