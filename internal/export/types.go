// Package export renders a project phase to PDF or DOCX.
package export

import (
	"errors"
	"time"

	"scopilot/api/internal/scoping"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Request contains parameters for an export operation. External strips
// internal-only sections and scenario content for client-facing documents.
type Request struct {
	Project     scoping.Project
	Phase       scoping.Phase
	Format      Format
	External    bool
	GeneratedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
