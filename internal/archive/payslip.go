// Package archive stores uploaded payslips together with their parsed
// records and serves them over HTTP.
package archive

import (
	"errors"
	"time"

	"github.com/zombor/holerite/internal/payslip"
)

var (
	// ErrNotFound is returned for unknown payslip IDs.
	ErrNotFound = errors.New("payslip not found")
	// ErrInvalidRecord is returned when a manual correction does not validate.
	ErrInvalidRecord = errors.New("invalid payslip record")
)

// Payslip is an uploaded document and the record parsed from it
type Payslip struct {
	ID string `json:"id"`
	payslip.Record
	Filename    string           `json:"filename"`
	ContentType string           `json:"content_type"`
	Source      string           `json:"source"`             // OCR engine that read the file
	Strategy    payslip.Strategy `json:"strategy,omitempty"` // empty once corrected by hand
	NeedsReview bool             `json:"needs_review"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// newer orders payslips by pay period, newest first, then by upload time.
func newer(a, b *Payslip) bool {
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	if a.Month != b.Month {
		return a.Month > b.Month
	}
	return a.CreatedAt.After(b.CreatedAt)
}
