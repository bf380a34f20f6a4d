package payslip

import (
	"encoding/json"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/holerite/internal/money"
)

const flatPayslip = `
EMPRESA EXEMPLO LTDA
Mês de Pagamento: Agosto / 2025
Descrição Pagamentos Descontos
Salário Base 5.000,00
INSS 450,00 45,00
IRRF 120,00
Totais em R$ 5.450,00 165,00 5.285,00
Total Líquido 5.285,00
`

func geometricPayslip() []OCRLine {
	return []OCRLine{
		line(wordAt("Competência", 80, 20), wordAt("07/2025", 200, 20)),
		line(wordAt("Descrição", 80, 100), wordAt("Pagamentos", 300, 100), wordAt("Descontos", 600, 100)),
		line(wordAt("Salário", 60, 130), wordAt("4.000,00", 300, 130)),
		line(wordAt("INSS", 60, 160), wordAt("440,00", 600, 160)),
		line(wordAt("Totais", 60, 200), wordAt("4.000,00", 300, 200), wordAt("440,00", 600, 200), wordAt("3.560,00", 800, 200)),
	}
}

var _ = Describe("Parser", func() {
	var parser *Parser

	BeforeEach(func() {
		parser = newTestParser()
	})

	Describe("ParseWithTrace", func() {
		var (
			input Input
			rec   Record
			trace Trace
		)

		JustBeforeEach(func() {
			rec, trace = parser.ParseWithTrace(input)
		})

		When("only text is available", func() {
			BeforeEach(func() {
				input = Input{Text: flatPayslip}
			})

			It("uses the linear strategy", func() {
				Expect(trace.Strategy).To(Equal(StrategyLinear))
				Expect(trace.HeaderFound).To(BeTrue())
			})

			It("builds the record", func() {
				Expect(rec.Month).To(Equal(8))
				Expect(rec.Year).To(Equal(2025))
				Expect(rec.Payments).To(Equal([]LineItem{
					item("Salário Base", 500000),
					item("INSS", 45000),
				}))
				Expect(rec.Deductions).To(Equal([]LineItem{
					item("INSS", 4500),
					item("IRRF", 12000),
				}))
				Expect(rec.GrossTotal).To(Equal(money.Amount(545000)))
				Expect(rec.DeductionsTotal).To(Equal(money.Amount(16500)))
				Expect(rec.NetTotal).To(Equal(money.Amount(528500)))
				Expect(trace.Totals).To(Equal(Observed{Gross: true, Deductions: true, Net: true}))
			})
		})

		When("lines carry geometry", func() {
			BeforeEach(func() {
				input = Input{Lines: geometricPayslip()}
			})

			It("uses the header columns", func() {
				Expect(trace.Strategy).To(Equal(StrategyHeaderColumns))
				Expect(trace.Layout.Columns).NotTo(BeNil())
			})

			It("reads the period and totals from the line text", func() {
				Expect(rec.Month).To(Equal(7))
				Expect(rec.Year).To(Equal(2025))
				Expect(rec.Payments).To(Equal([]LineItem{item("Salário", 400000)}))
				Expect(rec.Deductions).To(Equal([]LineItem{item("INSS", 44000)}))
				Expect(rec.NetTotal).To(Equal(money.Amount(356000)))
			})
		})

		When("lines are flat", func() {
			BeforeEach(func() {
				input = Input{Lines: []OCRLine{{Text: "Salário 1.000,00"}, {Text: "IRRF 100,00"}}}
			})

			It("joins them and parses linearly", func() {
				Expect(trace.Strategy).To(Equal(StrategyLinear))
				Expect(rec.Payments).To(Equal([]LineItem{item("Salário", 100000)}))
				Expect(rec.Deductions).To(Equal([]LineItem{item("IRRF", 10000)}))
				Expect(rec.NetTotal).To(Equal(money.Amount(90000)))
			})
		})

		When("the input is empty", func() {
			BeforeEach(func() {
				input = Input{}
			})

			It("returns an empty record dated now", func() {
				Expect(rec.Empty()).To(BeTrue())
				Expect(rec.Payments).NotTo(BeNil())
				Expect(rec.Deductions).NotTo(BeNil())
				Expect(rec.Month).To(Equal(3))
				Expect(rec.Year).To(Equal(2026))
			})
		})
	})

	It("produces identical output for identical input", func() {
		in := Input{Text: flatPayslip, Lines: geometricPayslip()}
		first, err := json.Marshal(parser.Parse(in))
		Expect(err).NotTo(HaveOccurred())
		second, err := json.Marshal(parser.Parse(in))
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("is safe for concurrent use", func() {
		want := parser.Parse(Input{Text: flatPayslip})

		var wg sync.WaitGroup
		results := make([]Record, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				results[i] = parser.Parse(Input{Text: flatPayslip})
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			Expect(r).To(Equal(want))
		}
	})
})

var _ = Describe("LoadVocabulary", func() {
	It("replaces lists and merges months", func() {
		v, err := LoadVocabulary(strings.NewReader(`{"deduction_keywords":["retenção"],"months":{"marco":3}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(v.DeductionKeywords).To(Equal([]string{"retenção"}))
		Expect(v.Months).To(HaveKeyWithValue("marco", 3))
		Expect(v.Months).To(HaveKeyWithValue("agosto", 8))
		Expect(v.Placeholder).To(Equal("Item"))
	})

	It("rejects months out of range", func() {
		_, err := LoadVocabulary(strings.NewReader(`{"months":{"trezembro":13}}`))
		Expect(err).To(MatchError(ContainSubstring("out of range")))
	})

	It("rejects malformed documents", func() {
		_, err := LoadVocabulary(strings.NewReader(`{`))
		Expect(err).To(MatchError(ContainSubstring("decoding vocabulary")))
	})
})
