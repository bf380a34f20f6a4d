package archive

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/holerite/internal/payslip"
	"github.com/zombor/holerite/internal/scanning"
)

func uploadRequest(filename string, data []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = fw.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(mw.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, "/api/payslips", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("Server", func() {
	var (
		db         *mockDB
		storage    *mockStorage
		recognizer *mockRecognizer
		basicAuth  BasicAuth
		server     *Server
		req        *http.Request
		rec        *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		db = newMockDB()
		storage = newMockStorage()
		recognizer = newMockRecognizer()
		basicAuth = BasicAuth{}
	})

	JustBeforeEach(func() {
		now := time.Date(2025, 9, 5, 10, 0, 0, 0, time.UTC)
		service := NewServiceWithDeps(db, recognizer, storage, testParser(now), &mockIDGenerator{id: "id-1"}, &mockTimeSource{now: now})
		server = NewServer(service, basicAuth)
		rec = httptest.NewRecorder()
		server.ServeHTTP(rec, req)
	})

	Describe("GET /health", func() {
		BeforeEach(func() {
			basicAuth = BasicAuth{Username: "admin", Password: "secret"}
			req = httptest.NewRequest(http.MethodGet, "/health", nil)
		})

		It("does not require auth", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"ok"`))
		})
	})

	Describe("POST /api/payslips", func() {
		BeforeEach(func() {
			req = uploadRequest("holerite.jpg", []byte("fake image"))
		})

		It("creates the payslip", func() {
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var p Payslip
			Expect(json.Unmarshal(rec.Body.Bytes(), &p)).To(Succeed())
			Expect(p.ID).To(Equal("id-1"))
			Expect(p.Month).To(Equal(8))
			Expect(p.ContentType).To(Equal("image/jpeg"))
			Expect(db.payslips).To(HaveKey("id-1"))
		})

		It("sets CORS headers", func() {
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})

		When("no file is sent", func() {
			BeforeEach(func() {
				req = jsonRequest(http.MethodPost, "/api/payslips", "{}")
			})

			It("returns 400", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(rec.Body.String()).To(ContainSubstring("No file"))
			})
		})

		When("the format is unsupported", func() {
			BeforeEach(func() {
				recognizer.err = scanning.ErrUnsupportedFormat
			})

			It("returns 415", func() {
				Expect(rec.Code).To(Equal(http.StatusUnsupportedMediaType))
			})
		})

		When("no text is read", func() {
			BeforeEach(func() {
				recognizer.err = scanning.ErrNoText
			})

			It("returns 422", func() {
				Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
			})
		})
	})

	Describe("GET /api/payslips", func() {
		BeforeEach(func() {
			db.payslips["a"] = &Payslip{ID: "a", Record: payslip.Record{Month: 7, Year: 2025}}
			db.payslips["b"] = &Payslip{ID: "b", Record: payslip.Record{Month: 8, Year: 2025}}
			req = httptest.NewRequest(http.MethodGet, "/api/payslips", nil)
		})

		It("lists newest first", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))
			var payslips []Payslip
			Expect(json.Unmarshal(rec.Body.Bytes(), &payslips)).To(Succeed())
			Expect(payslips).To(HaveLen(2))
			Expect(payslips[0].ID).To(Equal("b"))
		})
	})

	Describe("GET /api/payslips/:id", func() {
		When("the payslip exists", func() {
			BeforeEach(func() {
				db.payslips["a"] = &Payslip{ID: "a", Record: payslip.Record{Month: 7, Year: 2025, NetTotal: 123456}}
				req = httptest.NewRequest(http.MethodGet, "/api/payslips/a", nil)
			})

			It("returns it with amounts as numbers", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(rec.Body.String()).To(ContainSubstring(`"net_total":1234.56`))
			})
		})

		When("the payslip does not exist", func() {
			BeforeEach(func() {
				req = httptest.NewRequest(http.MethodGet, "/api/payslips/missing", nil)
			})

			It("returns 404", func() {
				Expect(rec.Code).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("GET /api/payslips/:id/file", func() {
		BeforeEach(func() {
			db.payslips["a"] = &Payslip{ID: "a", Filename: "a_h.pdf", ContentType: "application/pdf"}
			storage.files["a_h.pdf"] = []byte("%PDF-1.4")
			req = httptest.NewRequest(http.MethodGet, "/api/payslips/a/file", nil)
		})

		It("returns the file", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/pdf"))
			Expect(rec.Body.String()).To(Equal("%PDF-1.4"))
		})
	})

	Describe("PUT /api/payslips/:id", func() {
		BeforeEach(func() {
			db.payslips["a"] = &Payslip{ID: "a", NeedsReview: true}
		})

		When("the record is valid", func() {
			BeforeEach(func() {
				req = jsonRequest(http.MethodPut, "/api/payslips/a",
					`{"month": 8, "year": 2025, "payments": [{"description": "Salário", "value": "5000.00"}], "gross_total": 5000, "net_total": 5000}`)
			})

			It("stores the correction", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(db.payslips["a"].NeedsReview).To(BeFalse())
				Expect(db.payslips["a"].Payments[0].Value).To(BeEquivalentTo(500000))
			})
		})

		When("the record is invalid", func() {
			BeforeEach(func() {
				req = jsonRequest(http.MethodPut, "/api/payslips/a", `{"month": 0, "year": 2025}`)
			})

			It("returns 400", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(rec.Body.String()).To(ContainSubstring("month"))
			})
		})

		When("the body is malformed", func() {
			BeforeEach(func() {
				req = jsonRequest(http.MethodPut, "/api/payslips/a", `{`)
			})

			It("returns 400", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("DELETE /api/payslips/:id", func() {
		BeforeEach(func() {
			db.payslips["a"] = &Payslip{ID: "a", Filename: "a_h.pdf"}
			req = httptest.NewRequest(http.MethodDelete, "/api/payslips/a", nil)
		})

		It("returns 204", func() {
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(db.payslips).To(BeEmpty())
		})
	})

	Describe("POST /api/parse", func() {
		When("text is posted", func() {
			BeforeEach(func() {
				req = jsonRequest(http.MethodPost, "/api/parse", `{"text": "Mês de Pagamento: Agosto / 2025\nSalário 1.000,00\nIRRF 100,00"}`)
			})

			It("returns the record and trace", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))

				var resp struct {
					Record payslip.Record `json:"record"`
					Trace  payslip.Trace  `json:"trace"`
				}
				Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
				Expect(resp.Record.Month).To(Equal(8))
				Expect(resp.Record.NetTotal).To(BeEquivalentTo(90000))
				Expect(resp.Trace.Strategy).To(Equal(payslip.StrategyLinear))
				Expect(db.payslips).To(BeEmpty())
			})
		})

		When("lines with geometry are posted", func() {
			BeforeEach(func() {
				req = jsonRequest(http.MethodPost, "/api/parse", `{"lines": [
					{"text": "IRRF 120,00", "words": [
						{"text": "IRRF", "bbox": {"x0": 10, "y0": 10, "x1": 50, "y1": 22}},
						{"text": "120,00", "bbox": {"x0": 280, "y0": 10, "x1": 320, "y1": 22}}
					]}
				]}`)
			})

			It("uses the structured parser", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(rec.Body.String()).To(ContainSubstring(`"strategy":"keywords"`))
				Expect(rec.Body.String()).To(ContainSubstring(`"description":"IRRF"`))
			})
		})

		When("the input is empty", func() {
			BeforeEach(func() {
				req = jsonRequest(http.MethodPost, "/api/parse", `{}`)
			})

			It("returns 400", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			basicAuth = BasicAuth{Username: "admin", Password: "secret"}
			req = httptest.NewRequest(http.MethodGet, "/api/payslips", nil)
		})

		When("credentials are missing", func() {
			It("returns 401 with CORS headers", func() {
				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
				Expect(rec.Header().Get("WWW-Authenticate")).To(ContainSubstring("Holerite"))
				Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
			})
		})

		When("credentials are correct", func() {
			BeforeEach(func() {
				req.SetBasicAuth("admin", "secret")
			})

			It("allows the request", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
			})
		})

		When("credentials are wrong", func() {
			BeforeEach(func() {
				req.SetBasicAuth("admin", "wrong")
			})

			It("returns 401", func() {
				Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			})
		})
	})

	Describe("OPTIONS preflight", func() {
		BeforeEach(func() {
			basicAuth = BasicAuth{Username: "admin", Password: "secret"}
			req = httptest.NewRequest(http.MethodOptions, "/api/payslips", nil)
		})

		It("answers without auth", func() {
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("PUT"))
		})
	})
})

var _ = Describe("contentTypeFor", func() {
	It("prefers the declared type", func() {
		Expect(contentTypeFor("x.jpg", "Image/PNG")).To(Equal("image/png"))
	})

	It("falls back to the extension", func() {
		Expect(contentTypeFor("x.HEIC", "")).To(Equal("image/heic"))
		Expect(contentTypeFor("x.pdf", "application/octet-stream")).To(Equal("application/pdf"))
		Expect(contentTypeFor("x.bin", "")).To(Equal("application/octet-stream"))
	})
})
