package payslip

import "github.com/zombor/holerite/internal/money"

// totalsLookahead is how many lines after the totals row may still hold its
// figures.
const totalsLookahead = 5

// Observed records which totals were read from the document rather than
// derived.
type Observed struct {
	Gross      bool `json:"gross"`
	Deductions bool `json:"deductions"`
	Net        bool `json:"net"`
}

// Totals are the three summary figures.
type Totals struct {
	Gross      money.Amount
	Deductions money.Amount
	Net        money.Amount
	Observed   Observed
}

// ExtractTotals reads the summary figures and derives any that are missing.
//
// The first totals row ("Totais em R$ ...") and up to five lines after it
// supply gross, deductions and net, in that order, when three figures are
// found. A "Total líquido" line sets the net total and always wins over the
// totals row. With two totals observed the third is computed from them;
// otherwise gross and deductions come from the item sums and net is
// gross minus deductions, floored at zero.
func (p *Parser) ExtractTotals(lines []string, items Items) Totals {
	var t Totals

	folded := make([]string, len(lines))
	for i, l := range lines {
		folded[i] = fold(l)
	}

	for i := range lines {
		if !p.isTotalsRow(folded[i]) {
			continue
		}
		var found []money.Amount
		for j := i; j < len(lines) && j <= i+totalsLookahead && len(found) < 3; j++ {
			for _, tok := range money.FindTokens(lines[j]) {
				found = append(found, tok.Value)
				if len(found) == 3 {
					break
				}
			}
		}
		if len(found) == 3 {
			t.Gross, t.Deductions, t.Net = found[0], found[1], found[2]
			t.Observed = Observed{Gross: true, Deductions: true, Net: true}
		}
		break
	}

	if net, ok := p.netLine(lines, folded); ok {
		t.Net = net
		t.Observed.Net = true
	}

	t.derive(items)
	return t
}

// netLine returns the figure of the last "Total líquido" line. When the label
// sits alone, the figure is taken from the following line.
func (p *Parser) netLine(lines, folded []string) (money.Amount, bool) {
	var (
		net   money.Amount
		found bool
	)
	for i := range lines {
		if p.isTotalsRow(folded[i]) || !containsAny(folded[i], p.vocab.NetMarkers) {
			continue
		}
		if tok, ok := money.Last(lines[i]); ok {
			net, found = tok.Value, true
			continue
		}
		if i+1 < len(lines) && p.classifyLine(folded[i+1]) == kindBody {
			if tok, ok := money.Last(lines[i+1]); ok {
				net, found = tok.Value, true
			}
		}
	}
	return net, found
}

// derive fills the totals that were not observed. ExtractTotals itself only
// observes all three, net alone, or nothing; the two-observed branches keep
// gross = deductions + net holding for any other combination.
func (t *Totals) derive(items Items) {
	o := t.Observed
	switch {
	case o.Gross && o.Deductions && o.Net:
		return
	case o.Gross && o.Net:
		t.Deductions = t.Gross.Sub(t.Net).Floor0()
		return
	case o.Deductions && o.Net:
		t.Gross = t.Deductions.Add(t.Net)
		return
	}
	if !o.Gross {
		t.Gross = sum(items.Payments)
	}
	if !o.Deductions {
		t.Deductions = sum(items.Deductions)
	}
	if !o.Net {
		t.Net = t.Gross.Sub(t.Deductions).Floor0()
	}
}
