package payslip

import "strings"

// IsDeduction guesses whether an unlabeled item is a deduction from its
// description alone.
func (p *Parser) IsDeduction(description string) bool {
	folded := fold(description)
	if folded == "" {
		return false
	}
	words := strings.FieldsFunc(folded, func(r rune) bool { return !isWordRune(r) })
	for _, kw := range p.vocab.DeductionKeywords {
		if len(kw) <= 4 && !strings.Contains(kw, " ") {
			for _, w := range words {
				if w == kw {
					return true
				}
			}
			continue
		}
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}
