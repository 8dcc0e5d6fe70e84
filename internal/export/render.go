package export

import (
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"

	"atomdeck/api/internal/document"
)

// BuildTemplateData converts a presentation into its renderable form.
func BuildTemplateData(p *document.Presentation) TemplateData {
	data := TemplateData{
		Title:      p.Title,
		Author:     p.Metadata.Author,
		UpdatedAt:  p.Metadata.UpdatedAt,
		Width:      p.Settings.Width,
		Height:     p.Settings.Height,
		BodyFont:   cssValue(themeValue(p.Theme.Fonts, "body", "Arial")),
		TextColor:  cssValue(themeValue(p.Theme.Colors, "text", "#333333")),
		Background: cssValue(themeValue(p.Theme.Colors, "background", "#ffffff")),
		Slides:     make([]TemplateSlide, 0, len(p.Slides)),
	}
	if data.Width <= 0 || data.Height <= 0 {
		data.Width, data.Height = document.DefaultWidth, document.DefaultHeight
	}
	for i := range p.Slides {
		data.Slides = append(data.Slides, buildSlide(&p.Slides[i]))
	}
	return data
}

func themeValue(m map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(m[key]); v != "" {
		return v
	}
	return fallback
}

func buildSlide(s *document.Slide) TemplateSlide {
	out := TemplateSlide{
		ID:       s.ID,
		Layout:   s.Layout,
		Heading:  s.Heading(),
		Notes:    s.Notes,
		Elements: make([]TemplateElement, 0, len(s.Elements)),
	}
	if bg := s.Background; bg != nil && bg.Value != "" {
		switch bg.Type {
		case "image":
			out.Background = cssValue("background: url(" + strconv.Quote(bg.Value) + ") center / cover")
		default:
			out.Background = cssValue("background: " + bg.Value)
		}
	}
	for i := range s.Elements {
		el := &s.Elements[i]
		if !el.Visible {
			continue
		}
		out.Elements = append(out.Elements, TemplateElement{
			Kind:  string(el.Type),
			Style: elementStyle(el),
			Body:  elementBody(el),
		})
	}
	return out
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func elementStyle(el *document.Element) template.CSS {
	decls := []string{
		"left: " + px(el.Position.X),
		"top: " + px(el.Position.Y),
		"width: " + px(el.Size.Width),
		"height: " + px(el.Size.Height),
		"z-index: " + strconv.Itoa(el.ZIndex),
		"opacity: " + strconv.FormatFloat(el.Opacity, 'f', -1, 64),
	}
	if el.Rotation != 0 {
		decls = append(decls, "transform: rotate("+strconv.FormatFloat(el.Rotation, 'f', -1, 64)+"deg)")
	}
	switch p := el.Payload.(type) {
	case *document.TextPayload:
		st := p.Style
		if st.FontFamily != "" {
			decls = append(decls, "font-family: "+string(cssValue(st.FontFamily)))
		}
		if st.FontSize > 0 {
			decls = append(decls, "font-size: "+px(st.FontSize))
		}
		if st.FontWeight != "" {
			decls = append(decls, "font-weight: "+string(cssValue(st.FontWeight)))
		}
		if st.Color != "" {
			decls = append(decls, "color: "+string(cssValue(st.Color)))
		}
		if st.TextAlign != "" {
			decls = append(decls, "text-align: "+string(cssValue(st.TextAlign)))
		}
	case *document.ShapePayload:
		if p.Style.Fill != "" {
			decls = append(decls, "background: "+string(cssValue(p.Style.Fill)))
		}
		if p.Style.Stroke != "" && p.Style.StrokeWidth > 0 {
			decls = append(decls, "border: "+px(p.Style.StrokeWidth)+" solid "+string(cssValue(p.Style.Stroke)))
		}
		if p.Shape == "circle" || p.Shape == "ellipse" {
			decls = append(decls, "border-radius: 50%")
		}
	}
	return template.CSS(strings.Join(decls, "; "))
}

func elementBody(el *document.Element) template.HTML {
	var b strings.Builder
	switch p := el.Payload.(type) {
	case *document.TextPayload:
		b.WriteString(strings.ReplaceAll(html.EscapeString(p.Content), "\n", "<br>"))
	case *document.ImagePayload:
		if p.Src != "" {
			fmt.Fprintf(&b, `<img src="%s" alt="%s">`, html.EscapeString(p.Src), html.EscapeString(p.Alt))
		}
	case *document.VideoPayload:
		if p.Src != "" {
			fmt.Fprintf(&b, `<video src="%s"%s></video>`, html.EscapeString(p.Src), boolAttr("controls", p.Controls))
		}
	case *document.AudioPayload:
		if p.Src != "" {
			fmt.Fprintf(&b, `<audio src="%s"%s></audio>`, html.EscapeString(p.Src), boolAttr("controls", p.Controls))
		}
	case *document.TablePayload:
		b.WriteString("<table>")
		if len(p.Headers) > 0 {
			b.WriteString("<thead><tr>")
			for _, h := range p.Headers {
				b.WriteString("<th>" + html.EscapeString(h) + "</th>")
			}
			b.WriteString("</tr></thead>")
		}
		b.WriteString("<tbody>")
		for _, row := range p.Rows {
			b.WriteString("<tr>")
			for _, cell := range row {
				b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
	case *document.ChartPayload:
		// Charts export as their data; drawing is left to the client.
		fmt.Fprintf(&b, `<dl class="chart" data-chart-type="%s">`, html.EscapeString(p.ChartType))
		for _, ds := range p.Data.Datasets {
			b.WriteString("<dt>" + html.EscapeString(ds.Label) + "</dt>")
			for i, v := range ds.Data {
				label := ""
				if i < len(p.Data.Labels) {
					label = p.Data.Labels[i] + ": "
				}
				b.WriteString("<dd>" + html.EscapeString(label+strconv.FormatFloat(v, 'f', -1, 64)) + "</dd>")
			}
		}
		b.WriteString("</dl>")
	}
	return template.HTML(b.String())
}

func boolAttr(name string, on bool) string {
	if on {
		return " " + name
	}
	return ""
}
