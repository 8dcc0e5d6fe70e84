package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindShape Kind = "shape"
	KindChart Kind = "chart"
	KindTable Kind = "table"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

var Kinds = []Kind{KindText, KindImage, KindShape, KindChart, KindTable, KindVideo, KindAudio}

func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Base carries the fields every element kind shares.
type Base struct {
	ID        string     `json:"id"`
	Type      Kind       `json:"type"`
	Position  Position   `json:"position"`
	Size      Size       `json:"size"`
	Rotation  float64    `json:"rotation"`
	Opacity   float64    `json:"opacity"`
	ZIndex    int        `json:"zIndex"`
	Locked    bool       `json:"locked"`
	Visible   bool       `json:"visible"`
	Animation *Animation `json:"animation,omitempty"`
}

// Payload is the kind-specific part of an element. Its JSON fields sit next to
// the Base fields in the same object.
type Payload interface {
	Kind() Kind
	clone() Payload
}

type Element struct {
	Base
	Payload Payload
}

type TextStyle struct {
	FontFamily      string  `json:"fontFamily,omitempty"`
	FontSize        float64 `json:"fontSize,omitempty"`
	FontWeight      string  `json:"fontWeight,omitempty"`
	FontStyle       string  `json:"fontStyle,omitempty"`
	Color           string  `json:"color,omitempty"`
	TextAlign       string  `json:"textAlign,omitempty"`
	LineHeight      float64 `json:"lineHeight,omitempty"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
}

type TextPayload struct {
	Content string    `json:"content"`
	Style   TextStyle `json:"style"`
}

type ImageStyle struct {
	ObjectFit    string  `json:"objectFit,omitempty"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
	Border       string  `json:"border,omitempty"`
	Filter       string  `json:"filter,omitempty"`
}

type ImagePayload struct {
	Src   string     `json:"src"`
	Alt   string     `json:"alt,omitempty"`
	Style ImageStyle `json:"style"`
}

type ShapeStyle struct {
	Fill         string  `json:"fill,omitempty"`
	Stroke       string  `json:"stroke,omitempty"`
	StrokeWidth  float64 `json:"strokeWidth,omitempty"`
	BorderRadius float64 `json:"borderRadius,omitempty"`
}

type ShapePayload struct {
	Shape string     `json:"shape"` // rectangle, circle, triangle, line, arrow
	Style ShapeStyle `json:"style"`
}

type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
	Color string    `json:"color,omitempty"`
}

type ChartData struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type ChartPayload struct {
	ChartType string    `json:"chartType"` // bar, line, pie, area
	Data      ChartData `json:"data"`
}

type TableStyle struct {
	HeaderBackground string  `json:"headerBackground,omitempty"`
	BorderColor      string  `json:"borderColor,omitempty"`
	FontSize         float64 `json:"fontSize,omitempty"`
	Striped          bool    `json:"striped,omitempty"`
}

type TablePayload struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
	Style   TableStyle `json:"style"`
}

type VideoPayload struct {
	Src      string `json:"src"`
	Poster   string `json:"poster,omitempty"`
	Autoplay bool   `json:"autoplay"`
	Loop     bool   `json:"loop"`
	Controls bool   `json:"controls"`
}

type AudioPayload struct {
	Src      string `json:"src"`
	Autoplay bool   `json:"autoplay"`
	Loop     bool   `json:"loop"`
	Controls bool   `json:"controls"`
}

func (TextPayload) Kind() Kind  { return KindText }
func (ImagePayload) Kind() Kind { return KindImage }
func (ShapePayload) Kind() Kind { return KindShape }
func (ChartPayload) Kind() Kind { return KindChart }
func (TablePayload) Kind() Kind { return KindTable }
func (VideoPayload) Kind() Kind { return KindVideo }
func (AudioPayload) Kind() Kind { return KindAudio }

func newPayload(kind Kind) (Payload, error) {
	switch kind {
	case KindText:
		return &TextPayload{}, nil
	case KindImage:
		return &ImagePayload{}, nil
	case KindShape:
		return &ShapePayload{}, nil
	case KindChart:
		return &ChartPayload{}, nil
	case KindTable:
		return &TablePayload{}, nil
	case KindVideo:
		return &VideoPayload{}, nil
	case KindAudio:
		return &AudioPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown element type %q", kind)
	}
}

// Text returns the text payload, or nil for other kinds.
func (e *Element) Text() *TextPayload {
	p, _ := e.Payload.(*TextPayload)
	return p
}

// Src returns the media source of image, video and audio elements.
func (e *Element) Src() string {
	switch p := e.Payload.(type) {
	case *ImagePayload:
		return p.Src
	case *VideoPayload:
		return p.Src
	case *AudioPayload:
		return p.Src
	}
	return ""
}

var (
	ErrInvalidSize    = errors.New("width and height must be greater than zero")
	ErrInvalidOpacity = errors.New("opacity must be between 0 and 1")
)

// Validate checks the per-element invariants.
func (e *Element) Validate() error {
	if e.ID == "" {
		return errors.New("element id is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("element %s: unknown type %q", e.ID, e.Type)
	}
	if e.Payload == nil || e.Payload.Kind() != e.Type {
		return fmt.Errorf("element %s: payload does not match type %q", e.ID, e.Type)
	}
	if e.Size.Width <= 0 || e.Size.Height <= 0 {
		return fmt.Errorf("element %s: %w", e.ID, ErrInvalidSize)
	}
	if e.Opacity < 0 || e.Opacity > 1 {
		return fmt.Errorf("element %s: %w", e.ID, ErrInvalidOpacity)
	}
	return nil
}

func (e Element) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(e.Base)
	if err != nil {
		return nil, err
	}
	if e.Payload == nil {
		return base, nil
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}
	extra := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &extra); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}
	return json.Marshal(fields)
}

func (e *Element) UnmarshalJSON(raw []byte) error {
	var base Base
	if err := json.Unmarshal(raw, &base); err != nil {
		return err
	}
	payload, err := newPayload(base.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", base.Type, err)
	}
	e.Base = base
	e.Payload = payload
	return nil
}
