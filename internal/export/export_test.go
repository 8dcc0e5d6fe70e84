package export

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"atomdeck/api/internal/document"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleDeck(t *testing.T) *document.Presentation {
	t.Helper()
	p := document.NewBlank("pres_1", "Quarterly Review", "Avery", fixedNow)

	title, err := document.NewElement(document.KindText, "title")
	if err != nil {
		t.Fatalf("NewElement() error = %v", err)
	}
	title.Text().Content = "Q3 <results>\nand outlook"
	title.Position = document.Position{X: 100, Y: 40}

	table, err := document.NewElement(document.KindTable, "table")
	if err != nil {
		t.Fatalf("NewElement() error = %v", err)
	}
	table.Payload = &document.TablePayload{Headers: []string{"Region"}, Rows: [][]string{{"EMEA"}}}

	hidden, err := document.NewElement(document.KindShape, "hidden")
	if err != nil {
		t.Fatalf("NewElement() error = %v", err)
	}
	hidden.Visible = false

	p.Slides[0].Elements = []document.Element{title, table, hidden}
	p.Slides[0].Background = &document.Background{Type: "color", Value: "#000000"}
	p.Slides[0].Notes = "mention hiring"
	return p
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"html", FormatHTML, false},
		{"pdf", FormatPDF, false},
		{"docx", FormatDOCX, false},
		{"pptx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.input)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.input, got, err)
		}
		if tt.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.input, err)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Deck v1.2", "My-Deck-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "presentation"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderPresentationHTML(t *testing.T) {
	html, err := RenderPresentationHTML(BuildTemplateData(sampleDeck(t)))
	if err != nil {
		t.Fatalf("RenderPresentationHTML() error = %v", err)
	}

	for _, want := range []string{
		"<title>Quarterly Review</title>",
		`content="2025-03-14"`,
		"@page { size: 1920px 1080px",
		"Q3 &lt;results&gt;<br>and outlook",
		"<th>Region</th>",
		"<td>EMEA</td>",
		"background: #000000",
		"left: 100px; top: 40px",
		"mention hiring",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(html, "ZgotmplZ") {
		t.Error("template rejected a style value")
	}
	if strings.Contains(html, `class="el shape"`) {
		t.Error("invisible element was rendered")
	}
}

func TestCSSValueStripsBreakouts(t *testing.T) {
	if got := cssValue(`red; } body { display:none`); got != "red  body  display:none" {
		t.Fatalf("cssValue() = %q", got)
	}
}

func TestExportJSONRoundTrips(t *testing.T) {
	svc := NewService(nil, WithClock(func() time.Time { return fixedNow }))
	p := sampleDeck(t)

	result, err := svc.Export(context.Background(), p, FormatJSON)
	if err != nil {
		t.Fatalf("Export(json) error = %v", err)
	}
	if result.Filename != "Quarterly-Review.json" || result.MimeType != "application/json" {
		t.Fatalf("unexpected result metadata: %+v", result)
	}
	var envelope document.Envelope
	if err := json.Unmarshal(result.Data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Format != document.ExportFormat || !envelope.ExportedAt.Equal(fixedNow) {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}

	imported, err := document.Import(result.Data)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(imported.Slides) != 1 || len(imported.Slides[0].Elements) != 3 {
		t.Fatalf("imported deck lost content: %+v", imported)
	}
}

func TestExportUsesRenderers(t *testing.T) {
	var gotHTML, gotTitle string
	fake := func(_ context.Context, html, title string) (*Result, error) {
		gotHTML, gotTitle = html, title
		return &Result{Data: []byte("%PDF"), Filename: "x.pdf", MimeType: "application/pdf"}, nil
	}
	missing := func(context.Context, string, string) (*Result, error) {
		return nil, ErrDOCXDependencyMissing
	}
	svc := NewService(nil, WithRenderers(fake, missing))

	result, err := svc.Export(context.Background(), sampleDeck(t), FormatPDF)
	if err != nil {
		t.Fatalf("Export(pdf) error = %v", err)
	}
	if string(result.Data) != "%PDF" || gotTitle != "Quarterly Review" || !strings.Contains(gotHTML, "<td>EMEA</td>") {
		t.Fatalf("pdf renderer got title %q html %q", gotTitle, gotHTML)
	}

	if _, err := svc.Export(context.Background(), sampleDeck(t), FormatDOCX); !errors.Is(err, ErrDOCXDependencyMissing) {
		t.Fatalf("Export(docx) error = %v, want ErrDOCXDependencyMissing", err)
	}
	if _, err := svc.Export(context.Background(), sampleDeck(t), Format("pptx")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Export(pptx) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExportHTML(t *testing.T) {
	result, err := NewService(nil).Export(context.Background(), sampleDeck(t), FormatHTML)
	if err != nil {
		t.Fatalf("Export(html) error = %v", err)
	}
	if result.Filename != "Quarterly-Review.html" || !strings.HasPrefix(string(result.Data), "<!DOCTYPE html>") {
		t.Fatalf("unexpected html result: %s", result.Filename)
	}
}
