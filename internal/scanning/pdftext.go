package scanning

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText reads payslips exported straight from a payroll system, which
// carry a text layer, without running OCR. Anything else, scanned PDFs
// included, goes to the wrapped recognizer.
type PDFText struct {
	next   Recognizer
	logger *slog.Logger
}

// NewPDFText wraps a recognizer
func NewPDFText(next Recognizer, logger *slog.Logger) *PDFText {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFText{next: next, logger: logger}
}

// Recognize returns the embedded text of a PDF, or defers to the wrapped
// recognizer.
func (p *PDFText) Recognize(ctx context.Context, data []byte, contentType string) (*Result, error) {
	if isPDF(data, contentType) {
		text, err := extractPDFText(data)
		switch {
		case err != nil:
			p.logger.Warn("Failed to read PDF text layer", "error", err)
		case strings.TrimSpace(text) != "":
			return &Result{Text: text, Source: "pdf-text"}, nil
		default:
			p.logger.Debug("PDF has no text layer, falling back to OCR")
		}
	}
	return p.next.Recognize(ctx, data, contentType)
}

// Close closes the wrapped recognizer
func (p *PDFText) Close() error {
	return p.next.Close()
}

// extractPDFText reads every page row by row. The pdf package panics on
// some malformed files.
func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", i, err)
		}
		for _, row := range rows {
			if line := joinRow(row.Content); line != "" {
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String(), nil
}

// joinRow glues the text runs of one row, inserting a space wherever the
// horizontal gap between runs is wider than a fraction of the font size.
func joinRow(runs []pdf.Text) string {
	sorted := make([]pdf.Text, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var (
		sb  strings.Builder
		end float64
	)
	for i, t := range sorted {
		if t.S == "" {
			continue
		}
		if i > 0 && sb.Len() > 0 {
			gap := t.X - end
			if gap > 0.2*t.FontSize && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(t.S, " ") {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(t.S)
		end = t.X + t.W
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
