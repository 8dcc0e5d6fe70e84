package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search ranks presentations by ts_rank over the generated fts column and
// uses ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(q.Offset, 0)

	const tsQuery = "plainto_tsquery('english', $1)"
	where := "p.fts @@ " + tsQuery
	args := []any{q.Text}
	if q.UserID != "" {
		where += " AND p.user_id = $2"
		args = append(args, q.UserID)
	}

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, "SELECT count(*) FROM presentations p WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT p.id, p.title,
			ts_headline('english', coalesce(p.body_text, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			coalesce(p.theme_name, ''), p.slide_count
		FROM presentations p
		WHERE %s
		ORDER BY ts_rank(p.fts, %s) DESC, p.updated_at DESC
		LIMIT %d OFFSET %d`, tsQuery, where, tsQuery, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.ThemeName, &r.SlideCount); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]PresentationRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, body_text, COALESCE(user_id, ''), COALESCE(theme_name, ''), slide_count, EXTRACT(EPOCH FROM updated_at)::bigint
		FROM presentations
	`)
	if err != nil {
		return nil, fmt.Errorf("load presentations: %w", err)
	}
	defer rows.Close()

	records := make([]PresentationRecord, 0)
	for rows.Next() {
		var r PresentationRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Body, &r.UserID, &r.ThemeName, &r.SlideCount, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan presentation: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presentations: %w", err)
	}
	return records, nil
}
