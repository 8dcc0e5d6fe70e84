package document

const (
	LayoutBlank        = "blank"
	LayoutTitle        = "title"
	LayoutTitleContent = "title-content"
	LayoutTwoColumn    = "two-column"
	LayoutImageCaption = "image-caption"
)

type placeholder struct {
	kind     Kind
	content  string
	fontSize float64
	pos      Position
	size     Size
}

var layouts = map[string][]placeholder{
	LayoutBlank: nil,
	LayoutTitle: {
		{kind: KindText, content: "Presentation title", fontSize: 48, pos: Position{X: 160, Y: 400}, size: Size{Width: 1600, Height: 120}},
		{kind: KindText, content: "Subtitle", fontSize: 24, pos: Position{X: 160, Y: 560}, size: Size{Width: 1600, Height: 60}},
	},
	LayoutTitleContent: {
		{kind: KindText, content: "Slide title", fontSize: 36, pos: Position{X: 100, Y: 60}, size: Size{Width: 1720, Height: 100}},
		{kind: KindText, content: "Content", fontSize: 20, pos: Position{X: 100, Y: 200}, size: Size{Width: 1720, Height: 760}},
	},
	LayoutTwoColumn: {
		{kind: KindText, content: "Slide title", fontSize: 36, pos: Position{X: 100, Y: 60}, size: Size{Width: 1720, Height: 100}},
		{kind: KindText, content: "Left column", fontSize: 20, pos: Position{X: 100, Y: 200}, size: Size{Width: 840, Height: 760}},
		{kind: KindText, content: "Right column", fontSize: 20, pos: Position{X: 980, Y: 200}, size: Size{Width: 840, Height: 760}},
	},
	LayoutImageCaption: {
		{kind: KindImage, pos: Position{X: 360, Y: 120}, size: Size{Width: 1200, Height: 700}},
		{kind: KindText, content: "Caption", fontSize: 20, pos: Position{X: 360, Y: 860}, size: Size{Width: 1200, Height: 80}},
	},
}

func KnownLayout(name string) bool {
	_, ok := layouts[name]
	return ok
}

// LayoutElements builds the placeholder elements of a named layout with fresh
// ids. Unknown layouts yield no elements.
func LayoutElements(name string) []Element {
	spec := layouts[name]
	out := make([]Element, 0, len(spec))
	for i, ph := range spec {
		el, err := NewElement(ph.kind, "")
		if err != nil {
			continue
		}
		el.Position = ph.pos
		el.Size = ph.size
		el.ZIndex = i
		if text := el.Text(); text != nil {
			text.Content = ph.content
			text.Style.FontSize = ph.fontSize
		}
		out = append(out, el)
	}
	return out
}
