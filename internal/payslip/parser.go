package payslip

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Strategy names the path that produced the line items.
type Strategy string

const (
	StrategyLinear           Strategy = "linear"
	StrategyHeaderColumns    Strategy = "header-columns"
	StrategyClusteredColumns Strategy = "clustered-columns"
	StrategyKeywords         Strategy = "keywords"
)

// Trace explains how a record was built.
type Trace struct {
	Strategy    Strategy `json:"strategy"`
	HeaderFound bool     `json:"header_found"`
	Layout      Layout   `json:"layout"`
	Totals      Observed `json:"totals_observed"`
}

// Parser converts OCR output into a Record. It holds only immutable
// configuration and is safe for concurrent use.
type Parser struct {
	vocab      Vocabulary
	timeSource TimeSource
	logger     *slog.Logger

	paymentMonthRE *regexp.Regexp
	referenceRE    *regexp.Regexp
	abbrevRE       *regexp.Regexp
}

// NewParser creates a Parser with the default vocabulary and the wall clock
func NewParser() *Parser {
	return NewParserWithDeps(DefaultVocabulary(), &defaultTimeSource{}, nil)
}

// NewParserWithDeps creates a Parser with custom dependencies. A nil clock
// uses the wall clock and a nil logger uses slog.Default().
func NewParserWithDeps(vocab Vocabulary, timeSrc TimeSource, logger *slog.Logger) *Parser {
	if timeSrc == nil {
		timeSrc = &defaultTimeSource{}
	}
	v := vocab.folded()
	return &Parser{
		vocab:          v,
		timeSource:     timeSrc,
		logger:         logger,
		paymentMonthRE: paymentMonthPattern(v.PaymentMonthLabel),
		referenceRE:    referencePattern(v.ReferenceLabels),
		abbrevRE:       abbreviationPattern(v.MonthAbbreviations),
	}
}

func (p *Parser) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.Default()
}

// Parse builds the record for one document.
func (p *Parser) Parse(in Input) Record {
	rec, _ := p.ParseWithTrace(in)
	return rec
}

// ParseWithTrace builds the record and reports which heuristics fired.
func (p *Parser) ParseWithTrace(in Input) (Record, Trace) {
	text := in.Text
	if strings.TrimSpace(text) == "" {
		text = joinLines(in.Lines)
	}

	var (
		items      Items
		trace      Trace
		totalLines []string
	)
	if hasGeometry(in.Lines) {
		var layout Layout
		items, layout = p.ParseStructured(in.Lines)
		trace.Layout = layout
		trace.HeaderFound = layout.HeaderFound
		trace.Strategy = layout.strategy()
		totalLines = lineTexts(in.Lines)
	} else {
		items, trace.HeaderFound = p.ParseLinear(text)
		trace.Strategy = StrategyLinear
		totalLines = splitLines(text)
	}

	month, year := p.ExtractPeriod(text)
	totals := p.ExtractTotals(totalLines, items)
	trace.Totals = totals.Observed

	rec := Record{
		Month:           month,
		Year:            year,
		Payments:        nonNil(items.Payments),
		Deductions:      nonNil(items.Deductions),
		GrossTotal:      totals.Gross,
		DeductionsTotal: totals.Deductions,
		NetTotal:        totals.Net,
	}

	p.log().Debug("Payslip parsed",
		"strategy", trace.Strategy,
		"header_found", trace.HeaderFound,
		"payments", len(rec.Payments),
		"deductions", len(rec.Deductions),
		"net", rec.NetTotal.String(),
	)
	return rec, trace
}

// hasGeometry reports whether any line carries word boxes.
func hasGeometry(lines []OCRLine) bool {
	for _, l := range lines {
		if len(l.Words) > 0 {
			return true
		}
	}
	return false
}

func lineTexts(lines []OCRLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := normalizeSpace(l.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func joinLines(lines []OCRLine) string {
	return strings.Join(lineTexts(lines), "\n")
}

// splitLines splits text into trimmed, whitespace-collapsed, non-empty lines.
func splitLines(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if s := normalizeSpace(l); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nonNil(items []LineItem) []LineItem {
	if items == nil {
		return []LineItem{}
	}
	return items
}
