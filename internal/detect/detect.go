// Package detect classifies raw file bytes as text in a known encoding or as
// binary, and decodes text to UTF-8. It is the pipeline's self-healing stage:
// a misencoded but readable file falls through the fallback chain instead of
// failing the run.
package detect

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DefaultMaxFileSize is the size ceiling above which files are flagged binary
// without a decode attempt, bounding worst-case latency.
const DefaultMaxFileSize = 1 << 20 // 1 MiB

// Control bytes below 0x20 that still count as printable text.
var textControls = [256]bool{'\t': true, '\n': true, '\v': true, '\f': true, '\r': true}

// nonPrintableThreshold is the fraction of suspicious bytes above which a
// sample is treated as binary.
const nonPrintableThreshold = 0.30

// ErrUndecodable is returned when no encoding in the fallback chain could
// decode the input.
var ErrUndecodable = errors.New("no encoding fallback succeeded")

// Result is the outcome of detection. When Binary is set, Text is empty and
// the file exits the pipeline as a skip, not a failure.
type Result struct {
	Encoding string
	Binary   bool
	Text     string
}

type fallback struct {
	name string
	enc  encoding.Encoding
}

// Regional single-byte encodings tried in order after strict UTF-8 fails.
var fallbacks = []fallback{
	{"windows-1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
	{"iso-8859-15", charmap.ISO8859_15},
}

// Detect inspects data and decodes it to UTF-8 text. maxSize <= 0 means
// DefaultMaxFileSize. Order: size ceiling, BOM sniff, binary heuristic,
// strict UTF-8, regional fallbacks.
func Detect(data []byte, maxSize int64) (Result, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if int64(len(data)) > maxSize {
		return Result{Binary: true}, nil
	}
	if len(data) == 0 {
		return Result{Encoding: "utf-8"}, nil
	}

	if r, ok := sniffBOM(data); ok {
		return r, nil
	}

	if looksBinary(data) {
		return Result{Binary: true}, nil
	}

	if utf8.Valid(data) {
		return Result{Encoding: "utf-8", Text: string(data)}, nil
	}

	for _, fb := range fallbacks {
		decoded, err := fb.enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		// windows-1252 maps a handful of bytes to the replacement rune;
		// treat that as a miss and let the next fallback claim the file.
		if bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		return Result{Encoding: fb.name, Text: string(decoded)}, nil
	}

	return Result{}, ErrUndecodable
}

func sniffBOM(data []byte) (Result, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		body := data[3:]
		if !utf8.Valid(body) {
			return Result{Binary: true}, true
		}
		return Result{Encoding: "utf-8-bom", Text: string(body)}, true
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return decodeUTF16(data, unicode.LittleEndian, "utf-16le")
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeUTF16(data, unicode.BigEndian, "utf-16be")
	}
	return Result{}, false
}

func decodeUTF16(data []byte, order unicode.Endianness, name string) (Result, bool) {
	dec := unicode.UTF16(order, unicode.UseBOM).NewDecoder()
	decoded, err := dec.Bytes(data)
	if err != nil || looksBinary(decoded) {
		return Result{Binary: true}, true
	}
	return Result{Encoding: name, Text: string(decoded)}, true
}

// looksBinary applies the null-byte and non-printable-ratio heuristics to a
// bounded sample.
func looksBinary(data []byte) bool {
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if bytes.IndexByte(sample, 0x00) >= 0 {
		return true
	}
	suspicious := 0
	for _, b := range sample {
		if b < 0x20 && !textControls[b] {
			suspicious++
		}
	}
	return float64(suspicious) > nonPrintableThreshold*float64(len(sample))
}
