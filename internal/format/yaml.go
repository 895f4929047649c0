package format

import (
	"io"

	"gopkg.in/yaml.v3"

	"promptpack/internal/pipeline"
)

// YAMLRenderer serializes the shared document model as YAML.
type YAMLRenderer struct{}

func (r *YAMLRenderer) Render(w io.Writer, records []pipeline.FileRecord, failures []pipeline.FailureRecord, summary *pipeline.RunSummary, opts Options) error {
	doc := buildDocument(records, failures, summary, opts)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
