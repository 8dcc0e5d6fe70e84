package document

// Clone returns a deep copy sharing no slices, maps or pointers with p.
func (p *Presentation) Clone() *Presentation {
	if p == nil {
		return nil
	}
	out := *p
	out.Theme = p.Theme.Clone()
	out.Metadata.Tags = cloneStrings(p.Metadata.Tags)
	if p.Slides != nil {
		out.Slides = make([]Slide, len(p.Slides))
		for i := range p.Slides {
			out.Slides[i] = p.Slides[i].Clone()
		}
	}
	return &out
}

func (t Theme) Clone() Theme {
	t.Colors = cloneMap(t.Colors)
	t.Fonts = cloneMap(t.Fonts)
	return t
}

func (s Slide) Clone() Slide {
	if s.Elements != nil {
		elements := make([]Element, len(s.Elements))
		for i := range s.Elements {
			elements[i] = s.Elements[i].Clone()
		}
		s.Elements = elements
	}
	if s.Background != nil {
		bg := *s.Background
		s.Background = &bg
	}
	if s.Transition != nil {
		tr := *s.Transition
		s.Transition = &tr
	}
	if s.Animation != nil {
		an := *s.Animation
		s.Animation = &an
	}
	return s
}

func (e Element) Clone() Element {
	if e.Animation != nil {
		an := *e.Animation
		e.Animation = &an
	}
	if e.Payload != nil {
		e.Payload = e.Payload.clone()
	}
	return e
}

func (p *TextPayload) clone() Payload  { out := *p; return &out }
func (p *ImagePayload) clone() Payload { out := *p; return &out }
func (p *ShapePayload) clone() Payload { out := *p; return &out }
func (p *VideoPayload) clone() Payload { out := *p; return &out }
func (p *AudioPayload) clone() Payload { out := *p; return &out }

func (p *ChartPayload) clone() Payload {
	out := *p
	out.Data.Labels = cloneStrings(p.Data.Labels)
	if p.Data.Datasets != nil {
		out.Data.Datasets = make([]Dataset, len(p.Data.Datasets))
		for i, ds := range p.Data.Datasets {
			if ds.Data != nil {
				ds.Data = append([]float64(nil), ds.Data...)
			}
			out.Data.Datasets[i] = ds
		}
	}
	return &out
}

func (p *TablePayload) clone() Payload {
	out := *p
	out.Headers = cloneStrings(p.Headers)
	if p.Rows != nil {
		out.Rows = make([][]string, len(p.Rows))
		for i, row := range p.Rows {
			out.Rows[i] = cloneStrings(row)
		}
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
