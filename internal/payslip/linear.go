package payslip

import (
	"strings"

	"github.com/zombor/holerite/internal/money"
)

// ParseLinear extracts line items from flat OCR text, one line at a time.
// It reports whether the table header was seen.
//
// A line carrying two or more figures is a payments/deductions row flattened
// into text: the first figure is the payment and the second the deduction.
// A line with one figure is classified from its description.
func (p *Parser) ParseLinear(text string) (Items, bool) {
	var (
		items      Items
		headerSeen bool
	)
	for _, line := range splitLines(text) {
		switch p.classifyLine(fold(line)) {
		case kindHeader:
			headerSeen = true
			continue
		case kindTotals, kindNet, kindFooter:
			continue
		}

		tokens := money.FindTokens(line)
		if len(tokens) == 0 {
			continue
		}
		desc := p.cleanDescription(line[:tokens[0].Start])

		if len(tokens) >= 2 {
			items.addPayment(desc, tokens[0].Value)
			items.addDeduction(desc, tokens[1].Value)
			continue
		}
		if p.IsDeduction(desc) {
			items.addDeduction(desc, tokens[0].Value)
		} else {
			items.addPayment(desc, tokens[0].Value)
		}
	}
	return items, headerSeen
}

// cleanDescription strips trailing jargon and bare quantities from the text
// that precedes an amount.
func (p *Parser) cleanDescription(s string) string {
	words := strings.Fields(s)
	for len(words) > 0 && p.isNoise(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	desc := strings.TrimRight(strings.Join(words, " "), " :-|=")
	if desc == "" {
		return p.vocab.Placeholder
	}
	return desc
}

func (p *Parser) isNoise(word string) bool {
	f := fold(word)
	if isQuantity(f) {
		return true
	}
	trimmed := strings.TrimRight(f, ":.")
	for _, n := range p.vocab.NoiseTokens {
		if f == n || trimmed == n {
			return true
		}
	}
	return false
}

// isQuantity matches reference-column values such as "30", "11%" or "220:00".
func isQuantity(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.' || r == ',' || r == ':' || r == '%' || r == '/':
		default:
			return false
		}
	}
	return digits > 0
}
