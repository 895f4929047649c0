package format

import (
	"encoding/json"
	"io"

	"promptpack/internal/pipeline"
)

// JSONRenderer serializes the shared document model as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, records []pipeline.FileRecord, failures []pipeline.FailureRecord, summary *pipeline.RunSummary, opts Options) error {
	doc := buildDocument(records, failures, summary, opts)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}
