package export

import (
	"context"
	"fmt"
	"time"

	"atomdeck/api/internal/document"
	"go.uber.org/zap"
)

// Renderer turns HTML into a binary format.
type Renderer func(ctx context.Context, html, title string) (*Result, error)

// Service provides presentation export functionality
type Service struct {
	log  *zap.Logger
	now  func() time.Time
	pdf  Renderer
	docx Renderer
}

type Option func(*Service)

// WithRenderers replaces the PDF and DOCX backends.
func WithRenderers(pdf, docx Renderer) Option {
	return func(s *Service) {
		s.pdf = pdf
		s.docx = docx
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new export service
func NewService(logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		log:  logger.Named("export"),
		now:  time.Now,
		pdf:  exportPDF,
		docx: exportDOCX,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Export renders p in the requested format. p is only read.
func (s *Service) Export(ctx context.Context, p *document.Presentation, format Format) (*Result, error) {
	if format == FormatJSON {
		data, err := document.Export(p, s.now())
		if err != nil {
			return nil, fmt.Errorf("encode presentation: %w", err)
		}
		return &Result{
			Data:     data,
			Filename: sanitizeFilename(p.Title) + ".json",
			MimeType: "application/json",
		}, nil
	}

	html, err := RenderPresentationHTML(BuildTemplateData(p))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	started := time.Now()
	var result *Result
	switch format {
	case FormatHTML:
		result = &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(p.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}
	case FormatPDF:
		result, err = s.pdf(ctx, html, p.Title)
	case FormatDOCX:
		result, err = s.docx(ctx, html, p.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug("exported presentation",
		zap.String("presentation_id", p.ID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(result.Data)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
