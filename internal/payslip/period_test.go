package payslip

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractPeriod", func() {
	var (
		parser *Parser
		text   string
		month  int
		year   int
	)

	BeforeEach(func() {
		parser = newTestParser()
	})

	JustBeforeEach(func() {
		month, year = parser.ExtractPeriod(text)
	})

	When("the explicit payment month field is present", func() {
		BeforeEach(func() {
			text = "Empresa XYZ\nMês de Pagamento: Agosto / 2025\nCompetência 07/2024"
		})

		It("uses it", func() {
			Expect(month).To(Equal(8))
			Expect(year).To(Equal(2025))
		})
	})

	When("the explicit field has no diacritics or slash", func() {
		BeforeEach(func() {
			text = "MES DE PAGAMENTO MARCO 2024"
		})

		It("still matches", func() {
			Expect(month).To(Equal(3))
			Expect(year).To(Equal(2024))
		})
	})

	When("the explicit field names an unknown month", func() {
		BeforeEach(func() {
			text = "Mês de Pagamento: Agostx / 2025\nreferente a setembro de 2023"
		})

		It("falls back to the loose month name and the first year", func() {
			Expect(month).To(Equal(9))
			Expect(year).To(Equal(2025))
		})
	})

	When("only a loose month name is present", func() {
		BeforeEach(func() {
			text = "Holerite referente a agosto\nEmitido em 2025"
		})

		It("finds both parts independently", func() {
			Expect(month).To(Equal(8))
			Expect(year).To(Equal(2025))
		})
	})

	When("several month names appear", func() {
		BeforeEach(func() {
			text = "Período: julho 2025 - pago em agosto 2025"
		})

		It("takes the earliest", func() {
			Expect(month).To(Equal(7))
		})
	})

	When("a month name is part of a longer word", func() {
		BeforeEach(func() {
			text = "Funcionário: Marcos Silva\nabril 2025"
		})

		It("ignores it", func() {
			Expect(month).To(Equal(4))
		})
	})

	When("a labeled numeric period is present", func() {
		BeforeEach(func() {
			text = "Competência: 11/2024"
		})

		It("uses it", func() {
			Expect(month).To(Equal(11))
			Expect(year).To(Equal(2024))
		})
	})

	When("an abbreviated period is present", func() {
		BeforeEach(func() {
			text = "Folha mensal DEZ/2024"
		})

		It("uses it", func() {
			Expect(month).To(Equal(12))
			Expect(year).To(Equal(2024))
		})
	})

	When("a loose month name precedes other dated fields", func() {
		BeforeEach(func() {
			text = "Demonstrativo de Pagamento\nAgosto 2025\nData de admissão: jan/2019\nCompetência 03/2018"
		})

		It("keeps the month name and the first year", func() {
			Expect(month).To(Equal(8))
			Expect(year).To(Equal(2025))
		})
	})

	When("an abbreviated period follows an earlier year", func() {
		BeforeEach(func() {
			text = "Emitido em 2025\nFolha mensal dez/2024"
		})

		It("takes the month from it and the year from the first year", func() {
			Expect(month).To(Equal(12))
			Expect(year).To(Equal(2025))
		})
	})

	When("a labeled period carries the only year", func() {
		BeforeEach(func() {
			text = "Referência: 06/1999"
		})

		It("uses its year", func() {
			Expect(month).To(Equal(6))
			Expect(year).To(Equal(1999))
		})
	})

	When("nothing is detectable", func() {
		BeforeEach(func() {
			text = "sem data nenhuma"
		})

		It("defaults to the current month and year", func() {
			Expect(month).To(Equal(3))
			Expect(year).To(Equal(2026))
		})
	})

	When("only the year is detectable", func() {
		BeforeEach(func() {
			text = "Exercício 2019"
		})

		It("keeps the year and defaults the month", func() {
			Expect(month).To(Equal(3))
			Expect(year).To(Equal(2019))
		})
	})
})
