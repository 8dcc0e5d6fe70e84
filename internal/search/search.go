package search

import "atomdeck/api/internal/document"

// Result is a single search hit returned to the caller.
type Result struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	ThemeName  string `json:"themeName,omitempty"`
	SlideCount int    `json:"slideCount"`
}

// Query describes a search request.
type Query struct {
	Text   string
	UserID string // empty = all owners
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push presentations into a search index.
type Indexer interface {
	IndexPresentations(records []PresentationRecord) error
	DeletePresentation(id string) error
}

// Backend is a searchable index that can also be written to.
type Backend interface {
	Searcher
	Indexer
}

// PresentationRecord is the data we index for a presentation.
type PresentationRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	UserID     string `json:"userId"`
	ThemeName  string `json:"themeName"`
	SlideCount int    `json:"slideCount"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// RecordFor builds the index record for a presentation.
func RecordFor(p *document.Presentation, userID string) PresentationRecord {
	return PresentationRecord{
		ID:         p.ID,
		Title:      p.Title,
		Body:       p.PlainText(),
		UserID:     userID,
		ThemeName:  p.Theme.Name,
		SlideCount: len(p.Slides),
		UpdatedAt:  p.Metadata.UpdatedAt.Unix(),
	}
}
