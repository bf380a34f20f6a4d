package payslip

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type lineKind int

const (
	kindBody lineKind = iota
	kindHeader
	kindTotals
	kindNet
	kindFooter
)

// classifyLine recognizes the rows that never become line items. The text
// must already be folded.
func (p *Parser) classifyLine(folded string) lineKind {
	switch {
	case p.isHeader(folded, false):
		return kindHeader
	case p.isTotalsRow(folded):
		return kindTotals
	case containsAny(folded, p.vocab.NetMarkers):
		return kindNet
	case containsAny(folded, p.vocab.FooterMarkers):
		return kindFooter
	}
	return kindBody
}

// isHeader matches the table header. Flat text only needs the description
// and payments stems; geometry-aware detection also wants the deductions one.
func (p *Parser) isHeader(folded string, needDeductions bool) bool {
	v := p.vocab
	if v.DescriptionHeader == "" || v.PaymentsHeader == "" {
		return false
	}
	if !strings.Contains(folded, v.DescriptionHeader) || !strings.Contains(folded, v.PaymentsHeader) {
		return false
	}
	return !needDeductions || (v.DeductionsHeader != "" && strings.Contains(folded, v.DeductionsHeader))
}

func (p *Parser) isTotalsRow(folded string) bool {
	for _, prefix := range p.vocab.TotalsPrefixes {
		if strings.HasPrefix(folded, prefix) {
			return true
		}
	}
	return containsAny(folded, p.vocab.TotalsMarkers)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// indexWord returns the byte offset of the first occurrence of w in s that is
// not part of a longer word, or -1.
func indexWord(s, w string) int {
	if w == "" {
		return -1
	}
	from := 0
	for from <= len(s) {
		i := strings.Index(s[from:], w)
		if i < 0 {
			return -1
		}
		start := from + i
		end := start + len(w)
		if !wordRuneBefore(s, start) && !wordRuneAfter(s, end) {
			return start
		}
		from = start + 1
	}
	return -1
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAfter(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
