package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/zombor/holerite/internal/payslip"
)

// Tesseract implements the Recognizer interface using a local Tesseract
// install. It tries each language in order and keeps the first that reads
// any text. A language that fails outright is skipped as well.
type Tesseract struct {
	languages      []string
	tessdataPrefix string
	logger         *slog.Logger
	pass           ocrPass
}

// ocrPass recognizes a PNG in one language.
type ocrPass func(pngData []byte, lang string) (string, []gosseract.BoundingBox, error)

// NewTesseract creates a new Tesseract recognizer. An empty language list
// defaults to Portuguese with an English fallback.
func NewTesseract(languages []string, tessdataPrefix string, logger *slog.Logger) (*Tesseract, error) {
	var langs []string
	for _, l := range languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"por", "eng"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tesseract{languages: langs, tessdataPrefix: tessdataPrefix, logger: logger}
	t.pass = t.run
	return t, nil
}

// Recognize reads a payslip image or scanned PDF
func (t *Tesseract) Recognize(ctx context.Context, data []byte, contentType string) (*Result, error) {
	img, err := decodeImage(data, contentType)
	if err != nil {
		return nil, err
	}
	pngData, err := encodePNG(Preprocess(img))
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, lang := range t.languages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, boxes, err := t.pass(pngData, lang)
		if err != nil {
			t.logger.Warn("Tesseract pass failed", "language", lang, "error", err)
			lastErr = fmt.Errorf("recognizing with %s: %w", lang, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			t.logger.Warn("Tesseract read no text", "language", lang)
			continue
		}
		return &Result{
			Text:   text,
			Lines:  groupWords(boxes),
			Source: "tesseract:" + lang,
		}, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoText
}

// run performs one OCR pass. gosseract clients are not safe for concurrent
// use, so each pass gets its own.
func (t *Tesseract) run(pngData []byte, lang string) (string, []gosseract.BoundingBox, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.tessdataPrefix); err != nil {
			return "", nil, fmt.Errorf("setting tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(lang); err != nil {
		return "", nil, fmt.Errorf("setting language %s: %w", lang, err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", nil, fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", nil, fmt.Errorf("extracting text: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		// The flat text is still usable without geometry
		t.logger.Warn("Failed to read word boxes", "language", lang, "error", err)
		return text, nil, nil
	}
	return text, boxes, nil
}

type lineKey struct {
	block, par, line int
}

// groupWords rebuilds text lines from Tesseract's word boxes, keeping
// Tesseract's reading order between lines and left-to-right order inside
// each line.
func groupWords(boxes []gosseract.BoundingBox) []payslip.OCRLine {
	var (
		order []lineKey
		words = map[lineKey][]payslip.OCRWord{}
	)
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		key := lineKey{b.BlockNum, b.ParNum, b.LineNum}
		if _, seen := words[key]; !seen {
			order = append(order, key)
		}
		words[key] = append(words[key], payslip.OCRWord{
			Text: text,
			BBox: payslip.BBox{X0: b.Box.Min.X, Y0: b.Box.Min.Y, X1: b.Box.Max.X, Y1: b.Box.Max.Y},
		})
	}

	lines := make([]payslip.OCRLine, 0, len(order))
	for _, key := range order {
		ws := words[key]
		sort.SliceStable(ws, func(i, j int) bool { return ws[i].BBox.X0 < ws[j].BBox.X0 })

		l := payslip.OCRLine{Words: ws}
		bounds, _ := l.Bounds()
		l.BBox = &bounds
		l.Text = l.String()
		lines = append(lines, l)
	}
	return lines
}

// Close is a no-op; clients are created per pass
func (t *Tesseract) Close() error {
	return nil
}
