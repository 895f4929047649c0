package pipeline

import (
	"os"
	"path"

	"go.uber.org/zap"

	"promptpack/internal/detect"
	"promptpack/internal/language"
	"promptpack/internal/sanitize"
	"promptpack/internal/token"
	"promptpack/internal/walker"
)

// classifySampleLimit bounds the content sample handed to the language
// classifier.
const classifySampleLimit = 512

// ProcessorOptions configure the per-file pipeline.
type ProcessorOptions struct {
	MaxFileSize      int64
	MaxTokensPerFile int
	Sanitize         sanitize.Options
}

// Processor runs one candidate through Read, Decode, Sanitize and Count.
// Every stage converts its error into a FailureRecord value so a bad file
// never aborts the run. Safe for concurrent use.
type Processor struct {
	classifier *language.Classifier
	counter    token.Counter
	opts       ProcessorOptions
	logger     *zap.Logger
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(counter token.Counter, classifier *language.Classifier, opts ProcessorOptions, logger *zap.Logger) *Processor {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = detect.DefaultMaxFileSize
	}
	return &Processor{
		classifier: classifier,
		counter:    counter,
		opts:       opts,
		logger:     logger,
	}
}

// Process drives the state machine for one candidate:
// Read -> Decode -> (Binary: skip) -> Sanitize -> Count.
func (p *Processor) Process(cand walker.Candidate) Outcome {
	if cand.Size > p.opts.MaxFileSize {
		p.logger.Debug("file exceeds size ceiling, treated as binary",
			zap.String("path", cand.RelPath), zap.Int64("size", cand.Size))
		return Outcome{RelPath: cand.RelPath, Binary: true}
	}

	data, err := os.ReadFile(cand.AbsPath)
	if err != nil {
		return p.fail(cand.RelPath, StageRead, err.Error())
	}

	res, err := detect.Detect(data, p.opts.MaxFileSize)
	if err != nil {
		return p.fail(cand.RelPath, StageDecode, err.Error())
	}
	if res.Binary {
		return Outcome{RelPath: cand.RelPath, Binary: true}
	}

	sample := data
	if len(sample) > classifySampleLimit {
		sample = sample[:classifySampleLimit]
	}
	lang := p.classifier.Classify(cand.RelPath, sample)

	cleaned := sanitize.Sanitize(lang, res.Text, p.opts.Sanitize)

	fitted, count, truncated, err := token.FitToBudget(p.counter, cleaned, p.opts.MaxTokensPerFile)
	if err != nil {
		return p.fail(cand.RelPath, StageCount, err.Error())
	}

	return Outcome{
		RelPath: cand.RelPath,
		Record: &FileRecord{
			Name:       path.Base(cand.RelPath),
			AbsPath:    cand.AbsPath,
			RelPath:    cand.RelPath,
			Language:   lang,
			Encoding:   res.Encoding,
			Size:       cand.Size,
			TokenCount: count,
			Content:    fitted,
			Truncated:  truncated,
		},
	}
}

// ProcessText runs pre-decoded content (remote documents) through the
// Sanitize and Count stages, bypassing Read and Decode.
func (p *Processor) ProcessText(relPath, lang, text string) Outcome {
	cleaned := sanitize.Sanitize(lang, text, p.opts.Sanitize)

	fitted, count, truncated, err := token.FitToBudget(p.counter, cleaned, p.opts.MaxTokensPerFile)
	if err != nil {
		return p.fail(relPath, StageCount, err.Error())
	}

	return Outcome{
		RelPath: relPath,
		Record: &FileRecord{
			Name:       path.Base(relPath),
			RelPath:    relPath,
			Language:   lang,
			Encoding:   "utf-8",
			Size:       int64(len(text)),
			TokenCount: count,
			Content:    fitted,
			Truncated:  truncated,
		},
	}
}

func (p *Processor) fail(relPath string, stage Stage, reason string) Outcome {
	p.logger.Debug("file failed",
		zap.String("path", relPath),
		zap.String("stage", string(stage)),
		zap.String("reason", reason))
	return Outcome{
		RelPath: relPath,
		Failure: &FailureRecord{RelPath: relPath, Stage: stage, Reason: reason},
	}
}
