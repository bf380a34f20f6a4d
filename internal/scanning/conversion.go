package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// transcriptionPrompt is shared by the LLM recognizers
const transcriptionPrompt = `You are reading a Brazilian payslip (holerite or contracheque). Transcribe every line of printed text, top to bottom, exactly as it appears.

Rules:
- One entry per printed line. Keep the columns of a table row on the same line, separated by spaces.
- Keep numbers exactly as printed, in Brazilian format (for example 1.234,56). Do not convert or round them.
- Keep accents and capitalization.
- Do not summarize, translate, or add anything that is not printed.

Return ONLY valid JSON in this exact format:
{
  "lines": ["first line", "second line"]
}

Do not include any text before or after the JSON and do not use markdown code blocks.`

// normalizeContentType lowercases the MIME type and strips parameters
func normalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// isPDF checks the MIME type and the %PDF magic bytes
func isPDF(data []byte, contentType string) bool {
	return normalizeContentType(contentType) == "application/pdf" || bytes.HasPrefix(data, []byte("%PDF"))
}

// pdfToImage renders the first page of a PDF
func pdfToImage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Payslips are single page
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// decodeImage turns any supported upload into an image
func decodeImage(data []byte, contentType string) (image.Image, error) {
	if isPDF(data, contentType) {
		return pdfToImage(data)
	}

	// Go's standard image package doesn't support HEIC (iPhone photos)
	if isHEICFormat(data) || isHEICMimeType(contentType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: supported formats are JPEG, PNG, GIF, HEIC, HEIF and PDF", ErrUnsupportedFormat)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks if the image data is in HEIC/HEIF format
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = normalizeContentType(mimeType)
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// prepareImageData converts PDFs and non-PNG images to PNG for the vision
// models. PNG input is passed through untouched.
func prepareImageData(data []byte, contentType string) ([]byte, error) {
	ct := normalizeContentType(contentType)
	if ct == "image/png" && !isHEICFormat(data) {
		return data, nil
	}
	img, err := decodeImage(data, ct)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}
