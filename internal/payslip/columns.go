package payslip

import (
	"sort"
	"strings"

	"github.com/zombor/holerite/internal/money"
)

// Columns holds the horizontal centers of the payments and deductions
// columns.
type Columns struct {
	PaymentX   float64 `json:"payment_x"`
	DeductionX float64 `json:"deduction_x"`
}

// Header is the located table header row.
type Header struct {
	Y int
	// Columns is nil when the header words did not expose both labels.
	Columns *Columns
}

// DetectHeader finds the row naming the description, payments and deductions
// columns and reads the column centers off its words.
func (p *Parser) DetectHeader(lines []OCRLine) (Header, bool) {
	for _, line := range lines {
		if !p.isHeader(fold(line.String()), true) {
			continue
		}
		bounds, ok := line.Bounds()
		if !ok {
			continue
		}
		h := Header{Y: bounds.Y0}

		var payX, dedX *float64
		for _, w := range line.Words {
			f := fold(w.Text)
			cx := w.BBox.CenterX()
			if payX == nil && strings.HasPrefix(f, p.vocab.PaymentsHeader) {
				payX = &cx
			} else if dedX == nil && strings.HasPrefix(f, p.vocab.DeductionsHeader) {
				dedX = &cx
			}
		}
		if payX != nil && dedX != nil {
			h.Columns = &Columns{PaymentX: *payX, DeductionX: *dedX}
		}
		return h, true
	}
	return Header{}, false
}

// ClusterColumns estimates the two column centers from the positions of
// every currency-shaped word: the sorted centers are split in half and each
// half averaged. This assumes values form two horizontal bands and can
// mis-split skewed layouts.
func (p *Parser) ClusterColumns(lines []OCRLine) (Columns, bool) {
	var centers []float64
	for _, line := range lines {
		for _, w := range line.Words {
			if money.Contains(w.Text) {
				centers = append(centers, w.BBox.CenterX())
			}
		}
	}
	if len(centers) < 2 {
		return Columns{}, false
	}
	sort.Float64s(centers)
	mid := len(centers) / 2
	return Columns{
		PaymentX:   mean(centers[:mid]),
		DeductionX: mean(centers[mid:]),
	}, true
}

func mean(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}
