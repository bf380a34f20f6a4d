package payslip

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Vocabulary is the fixed wording the parser looks for. Every string is
// compared case- and diacritic-insensitively.
type Vocabulary struct {
	// Months maps full month names to 1..12.
	Months map[string]int `json:"months"`
	// MonthAbbreviations maps short names used in "ago/2025" style periods.
	MonthAbbreviations map[string]int `json:"month_abbreviations"`
	// PaymentMonthLabel introduces the explicit pay period field.
	PaymentMonthLabel string `json:"payment_month_label"`
	// ReferenceLabels introduce a numeric "08/2025" period.
	ReferenceLabels []string `json:"reference_labels"`

	// DeductionKeywords mark an unlabeled item as a deduction. Keywords of
	// four letters or fewer must match a whole word.
	DeductionKeywords []string `json:"deduction_keywords"`

	// Header stems: the table header contains all three.
	DescriptionHeader string `json:"description_header"`
	PaymentsHeader    string `json:"payments_header"`
	DeductionsHeader  string `json:"deductions_header"`

	// TotalsPrefixes start a totals row; TotalsMarkers appear anywhere in one.
	TotalsPrefixes []string `json:"totals_prefixes"`
	TotalsMarkers  []string `json:"totals_markers"`
	// NetMarkers identify a line carrying the net total.
	NetMarkers []string `json:"net_markers"`
	// FooterMarkers identify authentication-code footers.
	FooterMarkers []string `json:"footer_markers"`

	// NoiseTokens are stripped from the end of descriptions.
	NoiseTokens []string `json:"noise_tokens"`

	// ColumnTolerance is the pixel margin left of the payments column inside
	// which words no longer count as description.
	ColumnTolerance int `json:"column_tolerance"`
	// Placeholder names items whose description came out empty.
	Placeholder string `json:"placeholder"`
}

// DefaultVocabulary returns the Portuguese vocabulary. The result is a fresh
// copy the caller may modify.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Months: map[string]int{
			"janeiro": 1, "fevereiro": 2, "março": 3, "abril": 4,
			"maio": 5, "junho": 6, "julho": 7, "agosto": 8,
			"setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
		},
		MonthAbbreviations: map[string]int{
			"jan": 1, "fev": 2, "mar": 3, "abr": 4, "mai": 5, "jun": 6,
			"jul": 7, "ago": 8, "set": 9, "out": 10, "nov": 11, "dez": 12,
		},
		PaymentMonthLabel: "mês de pagamento",
		ReferenceLabels:   []string{"competência", "referência", "período"},
		DeductionKeywords: []string{
			"inss", "irrf", "irpf", "ir", "fgts",
			"imposto", "pensão", "previdência", "empréstimo", "consignado",
			"parcela", "desconto", "contribuição",
		},
		DescriptionHeader: "descri",
		PaymentsHeader:    "pagament",
		DeductionsHeader:  "descont",
		TotalsPrefixes:    []string{"totais"},
		TotalsMarkers:     []string{"totais em r$"},
		NetMarkers:        []string{"total líquido", "líquido a receber"},
		FooterMarkers:     []string{"código de autenticação", "autenticação"},
		NoiseTokens: []string{
			"r$", "rs", "brl", "real", "reais",
			"banco", "bco", "agência", "ag", "conta", "c/c", "cc",
			"ref", "referência", "local", "-", ":", "|", "=",
		},
		ColumnTolerance: 10,
		Placeholder:     "Item",
	}
}

// LoadVocabulary reads a JSON document and applies it over the default
// vocabulary. Lists replace the defaults; month maps are merged.
func LoadVocabulary(r io.Reader) (Vocabulary, error) {
	v := DefaultVocabulary()
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return Vocabulary{}, fmt.Errorf("decoding vocabulary: %w", err)
	}
	if err := v.validate(); err != nil {
		return Vocabulary{}, err
	}
	return v, nil
}

func (v Vocabulary) validate() error {
	for name, m := range v.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("month %q out of range: %d", name, m)
		}
	}
	for name, m := range v.MonthAbbreviations {
		if m < 1 || m > 12 {
			return fmt.Errorf("month abbreviation %q out of range: %d", name, m)
		}
	}
	if v.ColumnTolerance < 0 {
		return fmt.Errorf("column tolerance must not be negative: %d", v.ColumnTolerance)
	}
	return nil
}

// folded returns a copy with every entry run through fold.
func (v Vocabulary) folded() Vocabulary {
	out := v
	out.Months = foldMap(v.Months)
	out.MonthAbbreviations = foldMap(v.MonthAbbreviations)
	out.PaymentMonthLabel = fold(v.PaymentMonthLabel)
	out.ReferenceLabels = foldAll(v.ReferenceLabels)
	out.DeductionKeywords = foldAll(v.DeductionKeywords)
	out.DescriptionHeader = fold(v.DescriptionHeader)
	out.PaymentsHeader = fold(v.PaymentsHeader)
	out.DeductionsHeader = fold(v.DeductionsHeader)
	out.TotalsPrefixes = foldAll(v.TotalsPrefixes)
	out.TotalsMarkers = foldAll(v.TotalsMarkers)
	out.NetMarkers = foldAll(v.NetMarkers)
	out.FooterMarkers = foldAll(v.FooterMarkers)
	out.NoiseTokens = foldAll(v.NoiseTokens)
	if out.Placeholder == "" {
		out.Placeholder = "Item"
	}
	return out
}

// fold lower-cases s, strips diacritics and collapses whitespace.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.Join(strings.Fields(strings.ToLower(result)), " ")
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func foldMap(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[fold(k)] = v
	}
	return out
}
