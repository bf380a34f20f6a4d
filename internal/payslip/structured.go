package payslip

import (
	"math"
	"strings"

	"github.com/zombor/holerite/internal/money"
)

// Layout describes what the structured parser learned about the table.
type Layout struct {
	HeaderFound bool     `json:"header_found"`
	HeaderY     int      `json:"header_y,omitempty"`
	Columns     *Columns `json:"columns,omitempty"`
	// Clustered is set when the columns were estimated rather than read
	// from the header.
	Clustered bool `json:"clustered"`
}

func (l Layout) strategy() Strategy {
	switch {
	case l.Columns == nil:
		return StrategyKeywords
	case l.Clustered:
		return StrategyClusteredColumns
	}
	return StrategyHeaderColumns
}

// ParseStructured extracts line items from geometry-aware lines. Each figure
// on a row goes to whichever column center it sits closer to, so a row with
// both a payment and a deduction is split correctly.
func (p *Parser) ParseStructured(lines []OCRLine) (Items, Layout) {
	var layout Layout
	header, found := p.DetectHeader(lines)
	if found {
		layout.HeaderFound = true
		layout.HeaderY = header.Y
		layout.Columns = header.Columns
	}
	if layout.Columns == nil {
		if cols, ok := p.ClusterColumns(lines); ok {
			layout.Columns = &cols
			layout.Clustered = true
		}
	}

	var items Items
	for _, line := range lines {
		if found {
			bounds, ok := line.Bounds()
			if !ok || bounds.Y0 <= header.Y {
				continue
			}
		}
		if p.classifyLine(fold(line.String())) != kindBody {
			continue
		}

		var amounts []OCRWord
		for _, w := range line.Words {
			if money.Contains(w.Text) {
				amounts = append(amounts, w)
			}
		}
		if len(amounts) == 0 {
			continue
		}

		desc := p.describe(line.Words, layout.Columns)
		for _, w := range amounts {
			tok, _ := money.First(w.Text)
			if layout.Columns != nil {
				cx := w.BBox.CenterX()
				if math.Abs(cx-layout.Columns.PaymentX) <= math.Abs(cx-layout.Columns.DeductionX) {
					items.addPayment(desc, tok.Value)
				} else {
					items.addDeduction(desc, tok.Value)
				}
				continue
			}
			if p.IsDeduction(desc) {
				items.addDeduction(desc, tok.Value)
			} else {
				items.addPayment(desc, tok.Value)
			}
		}
	}
	return items, layout
}

// describe joins the non-figure words that sit left of the payments column.
func (p *Parser) describe(words []OCRWord, cols *Columns) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if money.Contains(w.Text) {
			continue
		}
		if cols != nil && float64(w.BBox.X0) >= cols.PaymentX-float64(p.vocab.ColumnTolerance) {
			continue
		}
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return p.vocab.Placeholder
	}
	return strings.Join(parts, " ")
}
