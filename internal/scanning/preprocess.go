package scanning

import (
	"image"

	"github.com/disintegration/imaging"
)

// minOCRWidth is the width narrow scans are upscaled to. Tesseract loses
// the decimal commas on small phone photos.
const minOCRWidth = 1600

// Preprocess prepares a scan for OCR: narrow images are upscaled, then the
// image is converted to grayscale with a little more contrast and sharpness.
func Preprocess(img image.Image) image.Image {
	if img.Bounds().Dx() < minOCRWidth {
		img = imaging.Resize(img, minOCRWidth, 0, imaging.Lanczos)
	}
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 20)
	out = imaging.Sharpen(out, 1.0)
	out = imaging.AdjustBrightness(out, 5)
	return out
}
