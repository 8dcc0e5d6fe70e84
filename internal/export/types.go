// Package export renders presentations to JSON, HTML, PDF and DOCX.
package export

import "errors"

// Format represents the export output format
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat maps a query value to a Format; empty means JSON.
func ParseFormat(v string) (Format, error) {
	switch f := Format(v); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatHTML, FormatPDF, FormatDOCX:
		return f, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
