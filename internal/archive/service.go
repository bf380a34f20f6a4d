package archive

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/holerite/internal/payslip"
	"github.com/zombor/holerite/internal/scanning"
)

// IDGenerator generates unique IDs for payslips
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles payslip operations
type Service struct {
	db          DB
	recognizer  scanning.Recognizer
	storage     Storage
	parser      *payslip.Parser
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, recognizer scanning.Recognizer, storage Storage, parser *payslip.Parser) *Service {
	return NewServiceWithDeps(db, recognizer, storage, parser, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer scanning.Recognizer, storage Storage, parser *payslip.Parser, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		recognizer:  recognizer,
		storage:     storage,
		parser:      parser,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
	plainExtension      = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	ext := strings.ToLower(filepath.Ext(filename))
	if !plainExtension.MatchString(ext) {
		ext = ""
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = whitespaceRun.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "holerite"
	}
	return base + ext
}

// ProcessPayslip stores an uploaded payslip, reads it and saves the parsed record
func (s *Service) ProcessPayslip(ctx context.Context, filename string, data []byte, contentType string) (*Payslip, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	result, err := s.recognizer.Recognize(ctx, data, contentType)
	if err != nil {
		slog.Error("Failed to read payslip",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved file since OCR failed
		s.deleteFile(savedPath)
		return nil, fmt.Errorf("reading payslip: %w", err)
	}

	record, trace := s.parser.ParseWithTrace(result.Input())

	p := &Payslip{
		ID:          id,
		Record:      record,
		Filename:    savedPath,
		ContentType: contentType,
		Source:      result.Source,
		Strategy:    trace.Strategy,
		NeedsReview: record.Empty(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SavePayslip(p); err != nil {
		s.deleteFile(savedPath)
		return nil, fmt.Errorf("saving payslip to database: %w", err)
	}

	slog.Info("Payslip processed",
		"id", p.ID,
		"source", p.Source,
		"strategy", trace.Strategy,
		"period", fmt.Sprintf("%02d/%d", p.Month, p.Year),
		"net", p.NetTotal.BRL(),
		"needs_review", p.NeedsReview,
	)
	return p, nil
}

func (s *Service) deleteFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// ParseOCR parses OCR output that was produced elsewhere. Nothing is stored.
func (s *Service) ParseOCR(in payslip.Input) (payslip.Record, payslip.Trace) {
	return s.parser.ParseWithTrace(in)
}

// GetPayslip retrieves a payslip by ID
func (s *Service) GetPayslip(id string) (*Payslip, error) {
	p, err := s.db.GetPayslip(id)
	if err != nil {
		return nil, fmt.Errorf("getting payslip: %w", err)
	}
	return p, nil
}

// ListPayslips returns all payslips, newest pay period first
func (s *Service) ListPayslips() ([]*Payslip, error) {
	payslips, err := s.db.ListPayslips()
	if err != nil {
		return nil, fmt.Errorf("listing payslips: %w", err)
	}
	sort.SliceStable(payslips, func(i, j int) bool { return newer(payslips[i], payslips[j]) })
	return payslips, nil
}

// DeletePayslip removes a payslip and its file
func (s *Service) DeletePayslip(id string) error {
	p, err := s.db.GetPayslip(id)
	if err != nil {
		return fmt.Errorf("getting payslip for deletion: %w", err)
	}

	// A missing file must not keep the record alive
	s.deleteFile(p.Filename)

	if err := s.db.DeletePayslip(id); err != nil {
		return fmt.Errorf("deleting payslip from database: %w", err)
	}
	return nil
}

// GetPayslipFile retrieves the uploaded file for a payslip
func (s *Service) GetPayslipFile(id string) ([]byte, string, error) {
	p, err := s.db.GetPayslip(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting payslip: %w", err)
	}

	data, err := s.storage.Get(p.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting payslip file: %w", err)
	}
	return data, p.ContentType, nil
}

// CorrectPayslip replaces the parsed record with a manually reviewed one
func (s *Service) CorrectPayslip(id string, record payslip.Record) (*Payslip, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}

	p, err := s.db.GetPayslip(id)
	if err != nil {
		return nil, fmt.Errorf("getting payslip for correction: %w", err)
	}

	if record.Payments == nil {
		record.Payments = []payslip.LineItem{}
	}
	if record.Deductions == nil {
		record.Deductions = []payslip.LineItem{}
	}
	p.Record = record
	p.Strategy = ""
	p.NeedsReview = false
	p.UpdatedAt = s.timeSource.Now()

	if err := s.db.SavePayslip(p); err != nil {
		return nil, fmt.Errorf("saving corrected payslip: %w", err)
	}

	slog.Info("Payslip corrected", "id", id, "period", fmt.Sprintf("%02d/%d", p.Month, p.Year))
	return p, nil
}

func validateRecord(r payslip.Record) error {
	if r.Month < 1 || r.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12, got %d", ErrInvalidRecord, r.Month)
	}
	if r.Year < 1900 || r.Year > 2199 {
		return fmt.Errorf("%w: implausible year %d", ErrInvalidRecord, r.Year)
	}
	if r.GrossTotal < 0 || r.DeductionsTotal < 0 || r.NetTotal < 0 {
		return fmt.Errorf("%w: totals must not be negative", ErrInvalidRecord)
	}
	for _, items := range [][]payslip.LineItem{r.Payments, r.Deductions} {
		for _, it := range items {
			if it.Value < 0 {
				return fmt.Errorf("%w: item %q has a negative value R$ %s", ErrInvalidRecord, it.Description, it.Value.BRL())
			}
		}
	}
	return nil
}
