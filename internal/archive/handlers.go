package archive

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zombor/holerite/internal/payslip"
	"github.com/zombor/holerite/internal/scanning"
)

func jsonError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// contentTypeFor trusts the declared type and falls back to the extension
func contentTypeFor(filename, declared string) string {
	if ct := strings.ToLower(strings.TrimSpace(declared)); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	}
	return "application/octet-stream"
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleUploadPayslip reads and stores an uploaded payslip
func (s *Server) handleUploadPayslip(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(c, http.StatusRequestEntityTooLarge, "File is too large. Maximum size is 50MB.")
			return
		}
		slog.Error("Error getting file from form", "error", err)
		jsonError(c, http.StatusBadRequest, "No file was selected. Please choose a file to upload.")
		return
	}

	f, err := header.Open()
	if err != nil {
		slog.Error("Error opening uploaded file", "error", err, "filename", header.Filename)
		jsonError(c, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(c, http.StatusInternalServerError, "Error reading file. Please try again.")
		return
	}

	contentType := contentTypeFor(header.Filename, header.Header.Get("Content-Type"))
	p, err := s.service.ProcessPayslip(c.Request.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing payslip", "filename", header.Filename, "error", err)
		switch {
		case errors.Is(err, scanning.ErrUnsupportedFormat):
			jsonError(c, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, scanning.ErrNoText):
			jsonError(c, http.StatusUnprocessableEntity, "No text could be read from the file.")
		default:
			jsonError(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	c.JSON(http.StatusCreated, p)
}

// handleListPayslips returns every payslip, newest first
func (s *Server) handleListPayslips(c *gin.Context) {
	payslips, err := s.service.ListPayslips()
	if err != nil {
		slog.Error("Error listing payslips", "error", err)
		jsonError(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	c.JSON(http.StatusOK, payslips)
}

// lookupError maps a service error to a response
func lookupError(c *gin.Context, err error, action string) {
	if errors.Is(err, ErrNotFound) {
		jsonError(c, http.StatusNotFound, "Payslip not found")
		return
	}
	slog.Error("Error "+action, "id", c.Param("id"), "error", err)
	jsonError(c, http.StatusInternalServerError, "Internal server error")
}

// handleGetPayslip returns a single payslip
func (s *Server) handleGetPayslip(c *gin.Context) {
	p, err := s.service.GetPayslip(c.Param("id"))
	if err != nil {
		lookupError(c, err, "getting payslip")
		return
	}
	c.JSON(http.StatusOK, p)
}

// handleGetPayslipFile returns the uploaded file
func (s *Server) handleGetPayslipFile(c *gin.Context) {
	data, contentType, err := s.service.GetPayslipFile(c.Param("id"))
	if err != nil {
		lookupError(c, err, "getting payslip file")
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// handleCorrectPayslip replaces the parsed record with the request body
func (s *Server) handleCorrectPayslip(c *gin.Context) {
	var record payslip.Record
	if err := c.ShouldBindJSON(&record); err != nil {
		jsonError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := s.service.CorrectPayslip(c.Param("id"), record)
	if err != nil {
		if errors.Is(err, ErrInvalidRecord) {
			jsonError(c, http.StatusBadRequest, err.Error())
			return
		}
		lookupError(c, err, "correcting payslip")
		return
	}
	c.JSON(http.StatusOK, p)
}

// handleDeletePayslip deletes a payslip and its file
func (s *Server) handleDeletePayslip(c *gin.Context) {
	if err := s.service.DeletePayslip(c.Param("id")); err != nil {
		lookupError(c, err, "deleting payslip")
		return
	}
	c.Status(http.StatusNoContent)
}

// handleParse parses OCR output posted as JSON without storing anything
func (s *Server) handleParse(c *gin.Context) {
	var in payslip.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		jsonError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Text) == "" && len(in.Lines) == 0 {
		jsonError(c, http.StatusBadRequest, "Either text or lines is required")
		return
	}

	record, trace := s.service.ParseOCR(in)
	c.JSON(http.StatusOK, gin.H{"record": record, "trace": trace})
}
