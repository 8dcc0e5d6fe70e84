package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var presentationTemplate = template.Must(
	template.New("presentation.html").Funcs(template.FuncMap{
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}).ParseFS(templateFS, "templates/presentation.html"),
)

// TemplateData holds data for presentation template rendering
type TemplateData struct {
	Title      string
	Author     string
	UpdatedAt  time.Time
	Width      float64
	Height     float64
	BodyFont   template.CSS
	TextColor  template.CSS
	Background template.CSS
	Slides     []TemplateSlide
}

type TemplateSlide struct {
	ID         string
	Layout     string
	Heading    string
	Background template.CSS
	Notes      string
	Elements   []TemplateElement
}

type TemplateElement struct {
	Kind  string
	Style template.CSS
	Body  template.HTML
}

// RenderPresentationHTML renders the presentation template with provided data
func RenderPresentationHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := presentationTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// cssValue strips characters that could end a declaration or rule.
func cssValue(v string) template.CSS {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '"', '\'', '\\', '\n', '\r':
			return -1
		}
		return r
	}, v)
	return template.CSS(strings.TrimSpace(clean))
}
