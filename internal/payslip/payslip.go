// Package payslip turns OCR output of a Brazilian payslip (holerite) into a
// structured record: pay period, payment and deduction line items, and the
// gross, deductions and net totals.
//
// Parsing is pure: the same input always produces the same Record, nothing is
// shared between calls, and a Parser may be used from many goroutines.
package payslip

import (
	"strings"

	"github.com/zombor/holerite/internal/money"
)

// BBox is an axis-aligned pixel rectangle.
type BBox struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// CenterX returns the horizontal center of the box.
func (b BBox) CenterX() float64 {
	return float64(b.X0+b.X1) / 2
}

// Union returns the smallest box covering b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: min(b.X0, o.X0),
		Y0: min(b.Y0, o.Y0),
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
	}
}

// OCRWord is one recognized token.
type OCRWord struct {
	Text string `json:"text"`
	BBox BBox   `json:"bbox"`
}

// OCRLine groups words in reading order. BBox is nil when the recognizer did
// not report line geometry; Words is empty when only flat text is available.
type OCRLine struct {
	Text  string    `json:"text"`
	BBox  *BBox     `json:"bbox,omitempty"`
	Words []OCRWord `json:"words,omitempty"`
}

// Bounds returns the line box, falling back to the union of its words.
func (l OCRLine) Bounds() (BBox, bool) {
	if l.BBox != nil {
		return *l.BBox, true
	}
	if len(l.Words) == 0 {
		return BBox{}, false
	}
	b := l.Words[0].BBox
	for _, w := range l.Words[1:] {
		b = b.Union(w.BBox)
	}
	return b, true
}

// String returns the line text, or its words joined when Text is empty.
func (l OCRLine) String() string {
	if strings.TrimSpace(l.Text) != "" {
		return l.Text
	}
	parts := make([]string, 0, len(l.Words))
	for _, w := range l.Words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// Input is a snapshot of what the OCR collaborator produced for one document.
type Input struct {
	Text  string    `json:"text"`
	Lines []OCRLine `json:"lines,omitempty"`
}

// LineItem is one row of the payments or deductions table.
type LineItem struct {
	Description string       `json:"description"`
	Value       money.Amount `json:"value"`
}

// Items holds the two tables in document order.
type Items struct {
	Payments   []LineItem
	Deductions []LineItem
}

func (it *Items) addPayment(desc string, v money.Amount) {
	it.Payments = append(it.Payments, LineItem{Description: desc, Value: v})
}

func (it *Items) addDeduction(desc string, v money.Amount) {
	it.Deductions = append(it.Deductions, LineItem{Description: desc, Value: v})
}

// Record is the structured payslip.
type Record struct {
	Month           int          `json:"month"`
	Year            int          `json:"year"`
	Payments        []LineItem   `json:"payments"`
	Deductions      []LineItem   `json:"deductions"`
	GrossTotal      money.Amount `json:"gross_total"`
	DeductionsTotal money.Amount `json:"deductions_total"`
	NetTotal        money.Amount `json:"net_total"`
}

// Empty reports whether nothing useful was extracted. Callers treat an empty
// record as a parse failure that needs manual correction.
func (r Record) Empty() bool {
	return len(r.Payments) == 0 && len(r.Deductions) == 0 &&
		r.GrossTotal == 0 && r.DeductionsTotal == 0 && r.NetTotal == 0
}

func sum(items []LineItem) money.Amount {
	var total money.Amount
	for _, it := range items {
		total = total.Add(it.Value)
	}
	return total
}
