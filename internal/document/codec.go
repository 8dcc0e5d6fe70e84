package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	ExportFormat  = "atomdeck"
	ExportVersion = "1"
)

var ErrEmptyDocument = errors.New("document is empty")

// Envelope is the portable export wrapper around a presentation.
type Envelope struct {
	Format       string        `json:"format"`
	Version      string        `json:"version"`
	ExportedAt   time.Time     `json:"exportedAt"`
	Presentation *Presentation `json:"presentation"`
}

func Marshal(p *Presentation) ([]byte, error) {
	return json.Marshal(p)
}

func Unmarshal(raw []byte) (*Presentation, error) {
	var p Presentation
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode presentation: %w", err)
	}
	return &p, nil
}

// Export writes p inside the portable envelope.
func Export(p *Presentation, now time.Time) ([]byte, error) {
	return json.MarshalIndent(Envelope{
		Format:       ExportFormat,
		Version:      ExportVersion,
		ExportedAt:   now.UTC(),
		Presentation: p,
	}, "", "  ")
}

// Import reads an exported envelope or a bare presentation, checks its
// invariants and regenerates every presentation, slide and element id.
func Import(raw []byte) (*Presentation, error) {
	var envelope struct {
		Format       string          `json:"format"`
		Presentation json.RawMessage `json:"presentation"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode import: %w", err)
	}
	body := raw
	if envelope.Format != "" {
		if envelope.Format != ExportFormat {
			return nil, fmt.Errorf("unsupported import format %q", envelope.Format)
		}
		if len(envelope.Presentation) == 0 || string(envelope.Presentation) == "null" {
			return nil, ErrEmptyDocument
		}
		body = envelope.Presentation
	}
	p, err := Unmarshal(body)
	if err != nil {
		return nil, err
	}
	if err := p.Check(); err != nil {
		return nil, fmt.Errorf("invalid presentation: %w", err)
	}
	RegenerateIDs(p)
	return p, nil
}

// RegenerateIDs replaces the presentation, slide and element ids in place.
func RegenerateIDs(p *Presentation) {
	p.ID = NewPresentationID()
	for si := range p.Slides {
		p.Slides[si].ID = NewSlideID()
		for ei := range p.Slides[si].Elements {
			p.Slides[si].Elements[ei].ID = NewElementID()
		}
	}
}
