package scanning

import (
	"context"
	"errors"

	"github.com/zombor/holerite/internal/payslip"
)

var (
	// ErrNoText is returned when a document yields no readable text.
	ErrNoText = errors.New("no text recognized")
	// ErrUnsupportedFormat is returned for files that are neither images nor PDFs.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Result is the OCR output for one document
type Result struct {
	Text string `json:"text"`
	// Lines carry word geometry when the engine provides it.
	Lines  []payslip.OCRLine `json:"lines,omitempty"`
	Source string            `json:"source"`
}

// Input converts the result into parser input
func (r *Result) Input() payslip.Input {
	return payslip.Input{Text: r.Text, Lines: r.Lines}
}

// Recognizer defines the interface for OCR engines
type Recognizer interface {
	// Recognize reads the text of an image or PDF
	Recognize(ctx context.Context, data []byte, contentType string) (*Result, error)
	// Close releases resources held by the recognizer
	Close() error
}
