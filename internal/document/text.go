package document

import "strings"

// PlainText flattens the readable content of a slide: text elements,
// table cells, chart labels and speaker notes.
func (s *Slide) PlainText() string {
	var parts []string
	for i := range s.Elements {
		switch p := s.Elements[i].Payload.(type) {
		case *TextPayload:
			parts = append(parts, p.Content)
		case *TablePayload:
			parts = append(parts, p.Headers...)
			for _, row := range p.Rows {
				parts = append(parts, row...)
			}
		case *ChartPayload:
			parts = append(parts, p.Data.Labels...)
			for _, ds := range p.Data.Datasets {
				parts = append(parts, ds.Label)
			}
		}
	}
	parts = append(parts, s.Notes)
	return joinNonBlank(parts)
}

func (p *Presentation) PlainText() string {
	parts := make([]string, 0, len(p.Slides))
	for i := range p.Slides {
		parts = append(parts, p.Slides[i].PlainText())
	}
	return joinNonBlank(parts)
}

// Heading returns the content of the top-most text element on the slide.
func (s *Slide) Heading() string {
	best := -1
	for i := range s.Elements {
		if s.Elements[i].Text() == nil {
			continue
		}
		if best < 0 || s.Elements[i].Position.Y < s.Elements[best].Position.Y {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return strings.TrimSpace(s.Elements[best].Text().Content)
}

func joinNonBlank(parts []string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}
