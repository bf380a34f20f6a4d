package scanning

import (
	"context"
	"io"
	"log/slog"

	"github.com/ledongthuc/pdf"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeRecognizer records the calls it receives
type fakeRecognizer struct {
	calls  int
	result *Result
	err    error
	closed bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context, data []byte, contentType string) (*Result, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeRecognizer) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("PDFText", func() {
	var (
		next       *fakeRecognizer
		recognizer *PDFText
	)

	BeforeEach(func() {
		next = &fakeRecognizer{result: &Result{Text: "ocr", Source: "fake"}}
		recognizer = NewPDFText(next, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("sends images to the wrapped recognizer", func() {
		result, err := recognizer.Recognize(context.Background(), testPNG(4, 4), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Source).To(Equal("fake"))
		Expect(next.calls).To(Equal(1))
	})

	It("falls back when the PDF cannot be read", func() {
		result, err := recognizer.Recognize(context.Background(), []byte("%PDF-1.4 garbage"), "application/pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Text).To(Equal("ocr"))
		Expect(next.calls).To(Equal(1))
	})

	It("closes the wrapped recognizer", func() {
		Expect(recognizer.Close()).To(Succeed())
		Expect(next.closed).To(BeTrue())
	})
})

var _ = Describe("joinRow", func() {
	It("inserts spaces at wide gaps only", func() {
		row := []pdf.Text{
			{S: "5", X: 300, W: 5, FontSize: 10},
			{S: "S", X: 10, W: 6, FontSize: 10},
			{S: "al", X: 16, W: 9, FontSize: 10},
			{S: "ário", X: 25, W: 18, FontSize: 10},
			{S: "Base", X: 47, W: 20, FontSize: 10},
			{S: ".000,00", X: 305, W: 30, FontSize: 10},
		}
		Expect(joinRow(row)).To(Equal("Salário Base 5.000,00"))
	})

	It("collapses whitespace runs", func() {
		row := []pdf.Text{
			{S: "INSS  ", X: 0, W: 30, FontSize: 10},
			{S: " 450,00", X: 100, W: 30, FontSize: 10},
		}
		Expect(joinRow(row)).To(Equal("INSS 450,00"))
	})
})
