package payslip

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var yearRE = regexp.MustCompile(`\b(20\d{2})\b`)

// ExtractPeriod finds the pay month and year in free text.
//
// The explicit "Mês de Pagamento: Agosto / 2025" field wins. Otherwise the
// month is the first month name anywhere in the text and the year the first
// 20xx token. Only when no month name appears at all are a labeled numeric
// period ("Competência 08/2025") and an abbreviated one ("ago/2025") tried,
// and their year is used only when no 20xx token exists. Whatever is still
// missing defaults to the current month and year.
func (p *Parser) ExtractPeriod(text string) (month, year int) {
	folded := fold(text)

	if m := submatch(p.paymentMonthRE, folded); m != nil {
		if n, ok := p.vocab.Months[m[1]]; ok {
			month, year = n, plausibleYear(m[2])
		}
	}
	if month == 0 {
		month = p.firstMonthName(folded)
	}

	var labeledYear int
	if month == 0 {
		if m := submatch(p.referenceRE, folded); m != nil {
			if n, _ := strconv.Atoi(m[1]); n >= 1 && n <= 12 {
				month, labeledYear = n, plausibleYear(m[2])
			}
		}
	}
	if month == 0 {
		if m := submatch(p.abbrevRE, folded); m != nil {
			month, labeledYear = p.vocab.MonthAbbreviations[m[1]], plausibleYear(m[2])
		}
	}

	if year == 0 {
		if m := yearRE.FindStringSubmatch(folded); m != nil {
			year, _ = strconv.Atoi(m[1])
		}
	}
	if year == 0 {
		year = labeledYear
	}

	now := p.timeSource.Now()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	return month, year
}

// firstMonthName returns the month whose name appears earliest in the text.
func (p *Parser) firstMonthName(folded string) int {
	best, month := -1, 0
	for name, n := range p.vocab.Months {
		i := indexWord(folded, name)
		if i < 0 {
			continue
		}
		if best < 0 || i < best || (i == best && n < month) {
			best, month = i, n
		}
	}
	return month
}

func plausibleYear(s string) int {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 2199 {
		return 0
	}
	return y
}

func submatch(re *regexp.Regexp, s string) []string {
	if re == nil {
		return nil
	}
	return re.FindStringSubmatch(s)
}

func labelPattern(label string) string {
	words := strings.Fields(label)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}

func paymentMonthPattern(label string) *regexp.Regexp {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	return regexp.MustCompile(labelPattern(label) + `\W*([a-z]+)\s*(?:/\s*|\s+)(\d{4})\b`)
}

func referencePattern(labels []string) *regexp.Regexp {
	alts := make([]string, 0, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l) != "" {
			alts = append(alts, labelPattern(l))
		}
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?:` + strings.Join(alts, "|") + `)\W*(\d{1,2})\s*/\s*(\d{4})\b`)
}

func abbreviationPattern(abbrevs map[string]int) *regexp.Regexp {
	names := make([]string, 0, len(abbrevs))
	for name := range abbrevs {
		if name != "" {
			names = append(names, regexp.QuoteMeta(name))
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return regexp.MustCompile(`\b(` + strings.Join(names, "|") + `)\s*/\s*(\d{4})\b`)
}
