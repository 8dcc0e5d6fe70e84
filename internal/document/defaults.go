package document

import (
	"time"

	"atomdeck/api/internal/util"
)

const (
	DefaultWidth   = 1920
	DefaultHeight  = 1080
	DefaultVersion = "1.0.0"
)

// NewElementID returns a fresh element id.
func NewElementID() string { return util.ShortID("el") }

// NewSlideID returns a fresh slide id.
func NewSlideID() string { return util.ShortID("slide") }

// NewPresentationID returns a fresh presentation id.
func NewPresentationID() string { return util.NewID("pres") }

// NewElement builds an element of kind with its default geometry and payload.
// An empty id gets a generated one.
func NewElement(kind Kind, id string) (Element, error) {
	if id == "" {
		id = NewElementID()
	}
	el := Element{Base: Base{ID: id, Type: kind, Opacity: 1, Visible: true}}
	switch kind {
	case KindText:
		el.Size = Size{Width: 200, Height: 50}
		el.Payload = &TextPayload{
			Content: "New text",
			Style:   TextStyle{FontFamily: "Arial", FontSize: 16, Color: "#333333", TextAlign: "left"},
		}
	case KindImage:
		el.Size = Size{Width: 300, Height: 200}
		el.Payload = &ImagePayload{Style: ImageStyle{ObjectFit: "cover"}}
	case KindShape:
		el.Size = Size{Width: 150, Height: 150}
		el.Payload = &ShapePayload{Shape: "rectangle", Style: ShapeStyle{Fill: "#3b82f6", Stroke: "#1e40af", StrokeWidth: 2}}
	case KindChart:
		el.Size = Size{Width: 400, Height: 300}
		el.Payload = &ChartPayload{
			ChartType: "bar",
			Data: ChartData{
				Labels:   []string{"A", "B", "C"},
				Datasets: []Dataset{{Label: "Series 1", Data: []float64{1, 2, 3}}},
			},
		}
	case KindTable:
		el.Size = Size{Width: 400, Height: 200}
		el.Payload = &TablePayload{
			Headers: []string{"Column 1", "Column 2", "Column 3"},
			Rows:    [][]string{{"", "", ""}, {"", "", ""}, {"", "", ""}},
		}
	case KindVideo:
		el.Size = Size{Width: 480, Height: 270}
		el.Payload = &VideoPayload{Controls: true}
	case KindAudio:
		el.Size = Size{Width: 300, Height: 50}
		el.Payload = &AudioPayload{Controls: true}
	default:
		_, err := newPayload(kind)
		return Element{}, err
	}
	return el, nil
}

func DefaultTheme() Theme {
	return Theme{
		Name: "default",
		Colors: map[string]string{
			"primary":    "#3b82f6",
			"secondary":  "#64748b",
			"background": "#ffffff",
			"text":       "#1e293b",
			"accent":     "#f59e0b",
		},
		Fonts: map[string]string{
			"heading": "Inter",
			"body":    "Inter",
		},
	}
}

// NewSlide returns an empty slide stamped with now.
func NewSlide(now time.Time) Slide {
	return Slide{
		ID:        NewSlideID(),
		Elements:  []Element{},
		Layout:    LayoutBlank,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewBlank builds the document a session starts with: one empty slide.
func NewBlank(id, title, author string, now time.Time) *Presentation {
	if id == "" {
		id = NewPresentationID()
	}
	if title == "" {
		title = "Untitled presentation"
	}
	return &Presentation{
		ID:       id,
		Title:    title,
		Slides:   []Slide{NewSlide(now)},
		Theme:    DefaultTheme(),
		Settings: Settings{Width: DefaultWidth, Height: DefaultHeight, AspectRatio: "16:9"},
		Metadata: Metadata{
			Author:    author,
			CreatedAt: now,
			UpdatedAt: now,
			Version:   DefaultVersion,
			Tags:      []string{},
		},
	}
}
