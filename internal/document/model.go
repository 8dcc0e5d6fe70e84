// Package document holds the presentation tree: presentations, slides, elements
// and theme. It carries no mutation logic; the engine package is the only writer.
package document

import (
	"fmt"
	"time"
)

type Presentation struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Slides   []Slide  `json:"slides"`
	Theme    Theme    `json:"theme"`
	Settings Settings `json:"settings"`
	Metadata Metadata `json:"metadata"`
}

type Settings struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	AspectRatio string  `json:"aspectRatio"`
}

type Metadata struct {
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   string    `json:"version"`
	Tags      []string  `json:"tags"`
}

// Theme stores color and font tokens by name, e.g. colors["primary"].
type Theme struct {
	Name   string            `json:"name"`
	Colors map[string]string `json:"colors"`
	Fonts  map[string]string `json:"fonts"`
	Logo   string            `json:"logo,omitempty"`
}

type Slide struct {
	ID         string      `json:"id"`
	Elements   []Element   `json:"elements"`
	Background *Background `json:"background,omitempty"`
	Transition *Transition `json:"transition,omitempty"`
	Animation  *Animation  `json:"animation,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	Layout     string      `json:"layout,omitempty"`
	Template   string      `json:"template,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type Background struct {
	Type  string `json:"type"` // color, image, gradient
	Value string `json:"value"`
}

type Transition struct {
	Type      string  `json:"type"`
	Duration  float64 `json:"duration"`
	Direction string  `json:"direction,omitempty"`
}

type Animation struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
	Delay    float64 `json:"delay,omitempty"`
	Easing   string  `json:"easing,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SlideIndex returns the index of the slide with the given id, or -1.
func (p *Presentation) SlideIndex(slideID string) int {
	for i := range p.Slides {
		if p.Slides[i].ID == slideID {
			return i
		}
	}
	return -1
}

// FindElement locates an element anywhere in the presentation.
func (p *Presentation) FindElement(elementID string) (slideIndex, elementIndex int, ok bool) {
	for si := range p.Slides {
		if ei := p.Slides[si].ElementIndex(elementID); ei >= 0 {
			return si, ei, true
		}
	}
	return -1, -1, false
}

// ElementIDs returns the set of every element id in the presentation.
func (p *Presentation) ElementIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for si := range p.Slides {
		for ei := range p.Slides[si].Elements {
			ids[p.Slides[si].Elements[ei].ID] = struct{}{}
		}
	}
	return ids
}

func (p *Presentation) ElementCount() int {
	total := 0
	for i := range p.Slides {
		total += len(p.Slides[i].Elements)
	}
	return total
}

func (s *Slide) ElementIndex(elementID string) int {
	for i := range s.Elements {
		if s.Elements[i].ID == elementID {
			return i
		}
	}
	return -1
}

// Check reports the first structural invariant the presentation violates.
func (p *Presentation) Check() error {
	for si := range p.Slides {
		slide := &p.Slides[si]
		seen := make(map[string]struct{}, len(slide.Elements))
		for ei := range slide.Elements {
			el := &slide.Elements[ei]
			if _, dup := seen[el.ID]; dup {
				return fmt.Errorf("slide %d: duplicate element id %q", si, el.ID)
			}
			seen[el.ID] = struct{}{}
			if err := el.Validate(); err != nil {
				return fmt.Errorf("slide %d: %w", si, err)
			}
		}
	}
	return nil
}
