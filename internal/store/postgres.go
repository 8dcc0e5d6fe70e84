package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) EnsureUserByName(ctx context.Context, name string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `SELECT id, display_name, created_at FROM users WHERE display_name = $1`, name).Scan(&user.ID, &user.DisplayName, &user.CreatedAt)
	if err == nil {
		role, roleErr := s.getRole(ctx, user.ID)
		if roleErr != nil {
			return User{}, roleErr
		}
		user.Role = role
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (display_name)
		VALUES ($1)
		ON CONFLICT (display_name) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, display_name, created_at
	`, name).Scan(&user.ID, &user.DisplayName, &user.CreatedAt); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO memberships (user_id, role)
		VALUES ($1, 'editor')
		ON CONFLICT (user_id) DO NOTHING
	`, user.ID); err != nil {
		return User{}, fmt.Errorf("upsert membership: %w", err)
	}

	user.Role = "editor"
	return user, nil
}

func (s *PostgresStore) getRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `SELECT role FROM memberships WHERE user_id=$1`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "viewer", nil
	}
	if err != nil {
		return "", fmt.Errorf("read role: %w", err)
	}
	return role, nil
}

func (s *PostgresStore) ListPresentations(ctx context.Context, userID string, limit, offset int) ([]PresentationSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(user_id, ''), slide_count, element_count, COALESCE(theme_name, ''), updated_at
		FROM presentations
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list presentations: %w", err)
	}
	defer rows.Close()

	items := make([]PresentationSummary, 0)
	for rows.Next() {
		var item PresentationSummary
		if err := rows.Scan(&item.ID, &item.Title, &item.UserID, &item.SlideCount, &item.ElementCount, &item.ThemeName, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan presentation: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presentations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetPresentation(ctx context.Context, id string) (Presentation, error) {
	var (
		item Presentation
		tags []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, data, COALESCE(user_id, ''), version, COALESCE(tags, '[]'::jsonb), slide_count, element_count, COALESCE(theme_name, ''), created_at, updated_at
		FROM presentations
		WHERE id=$1
	`, id).Scan(&item.ID, &item.Title, &item.Data, &item.UserID, &item.Version, &tags, &item.SlideCount, &item.ElementCount, &item.ThemeName, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Presentation{}, err
	}
	if err := json.Unmarshal(tags, &item.Tags); err != nil {
		return Presentation{}, fmt.Errorf("decode presentation tags: %w", err)
	}
	return item, nil
}

// SavePresentation inserts or replaces a presentation row.
func (s *PostgresStore) SavePresentation(ctx context.Context, item Presentation) error {
	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode presentation tags: %w", err)
	}
	version := item.Version
	if version == "" {
		version = "1.0.0"
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO presentations (id, title, data, user_id, version, tags, slide_count, element_count, theme_name, body_text)
		VALUES ($1, $2, $3::jsonb, NULLIF($4, ''), $5, $6::jsonb, $7, $8, NULLIF($9, ''), $10)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			data=EXCLUDED.data,
			version=EXCLUDED.version,
			tags=EXCLUDED.tags,
			slide_count=EXCLUDED.slide_count,
			element_count=EXCLUDED.element_count,
			theme_name=EXCLUDED.theme_name,
			body_text=EXCLUDED.body_text,
			updated_at=NOW()
	`, item.ID, item.Title, []byte(item.Data), item.UserID, version, rawTags, item.SlideCount, item.ElementCount, item.ThemeName, item.BodyText)
	if err != nil {
		return fmt.Errorf("save presentation: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePresentation(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM presentations WHERE id=$1`, id)
	if err != nil {
		return false, fmt.Errorf("delete presentation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete presentation rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) InsertOperation(ctx context.Context, entry OperationLog) error {
	data := entry.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	opContext := entry.Context
	if len(opContext) == 0 {
		opContext = json.RawMessage("{}")
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO atomic_operations (id, operation, element_type, target, data, timestamp, user_id, session_id, presentation_id, slide_index, execution_time_ms, success, error_message, context)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12, NULLIF($13, ''), $14::jsonb)
	`, entry.ID, entry.Operation, entry.ElementType, entry.Target, []byte(data), ts, entry.UserID, entry.SessionID, entry.PresentationID, entry.SlideIndex, entry.ExecutionTimeMS, entry.Success, entry.ErrorMessage, []byte(opContext))
	if err != nil {
		return fmt.Errorf("insert operation: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentOperations(ctx context.Context, userID string, limit int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, element_type, target, data, timestamp, COALESCE(user_id, ''), COALESCE(session_id, ''), COALESCE(presentation_id, ''), slide_index, execution_time_ms, success, COALESCE(error_message, ''), context
		FROM atomic_operations
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY timestamp DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent operations: %w", err)
	}
	defer rows.Close()

	items := make([]OperationLog, 0)
	for rows.Next() {
		var (
			item       OperationLog
			slideIndex sql.NullInt32
			data       []byte
			opContext  []byte
		)
		if err := rows.Scan(
			&item.ID,
			&item.Operation,
			&item.ElementType,
			&item.Target,
			&data,
			&item.Timestamp,
			&item.UserID,
			&item.SessionID,
			&item.PresentationID,
			&slideIndex,
			&item.ExecutionTimeMS,
			&item.Success,
			&item.ErrorMessage,
			&opContext,
		); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if slideIndex.Valid {
			idx := int(slideIndex.Int32)
			item.SlideIndex = &idx
		}
		item.Data = json.RawMessage(data)
		item.Context = json.RawMessage(opContext)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) OperationStats(ctx context.Context, now time.Time) (OperationStats, error) {
	stats := OperationStats{
		OperationsByType:    map[string]int{},
		OperationsByElement: map[string]int{},
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE timestamp >= $1), COALESCE(AVG(execution_time_ms), 0)
		FROM atomic_operations
	`, now.Add(-24*time.Hour)).Scan(&stats.TotalOperations, &stats.RecentOperations24h, &stats.AverageExecutionTime); err != nil {
		return OperationStats{}, fmt.Errorf("operation totals: %w", err)
	}
	if err := s.countBy(ctx, "operation", stats.OperationsByType); err != nil {
		return OperationStats{}, err
	}
	if err := s.countBy(ctx, "element_type", stats.OperationsByElement); err != nil {
		return OperationStats{}, err
	}
	return stats, nil
}

func (s *PostgresStore) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s, COUNT(*) FROM atomic_operations GROUP BY %s`, column, column))
	if err != nil {
		return fmt.Errorf("count operations by %s: %w", column, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

func (s *PostgresStore) UsageAnalytics(ctx context.Context, days int, now time.Time) (UsageAnalytics, error) {
	if days <= 0 {
		days = 7
	}
	since := now.AddDate(0, 0, -days)
	usage := UsageAnalytics{
		PeriodDays:        days,
		DailyOperations:   make([]DailyCount, 0),
		PopularOperations: make([]OperationCount, 0),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('day', timestamp), 'YYYY-MM-DD') AS day, COUNT(*)
		FROM atomic_operations
		WHERE timestamp >= $1
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return UsageAnalytics{}, fmt.Errorf("daily operations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item DailyCount
		if err := rows.Scan(&item.Date, &item.Count); err != nil {
			return UsageAnalytics{}, fmt.Errorf("scan daily operations: %w", err)
		}
		usage.DailyOperations = append(usage.DailyOperations, item)
	}
	if err := rows.Err(); err != nil {
		return UsageAnalytics{}, fmt.Errorf("iterate daily operations: %w", err)
	}

	popular, err := s.db.QueryContext(ctx, `
		SELECT operation, COUNT(*) AS count
		FROM atomic_operations
		WHERE timestamp >= $1
		GROUP BY operation
		ORDER BY count DESC
		LIMIT 10
	`, since)
	if err != nil {
		return UsageAnalytics{}, fmt.Errorf("popular operations: %w", err)
	}
	defer popular.Close()
	for popular.Next() {
		var item OperationCount
		if err := popular.Scan(&item.Operation, &item.Count); err != nil {
			return UsageAnalytics{}, fmt.Errorf("scan popular operations: %w", err)
		}
		usage.PopularOperations = append(usage.PopularOperations, item)
	}
	if err := popular.Err(); err != nil {
		return UsageAnalytics{}, fmt.Errorf("iterate popular operations: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id) FROM atomic_operations WHERE timestamp >= $1 AND user_id IS NOT NULL
	`, since).Scan(&usage.ActiveUsers); err != nil {
		return UsageAnalytics{}, fmt.Errorf("active users: %w", err)
	}
	return usage, nil
}

// GetUserPreferences returns the stored preferences or the defaults when
// the user has none.
func (s *PostgresStore) GetUserPreferences(ctx context.Context, userID string) (map[string]any, error) {
	if userID == "" {
		return DefaultPreferences(), nil
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT preferences FROM user_preferences WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	prefs := map[string]any{}
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return prefs, nil
}

func (s *PostgresStore) SaveUserPreferences(ctx context.Context, userID string, prefs map[string]any) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, preferences)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (user_id) DO UPDATE SET preferences=EXCLUDED.preferences, updated_at=NOW()
	`, userID, raw)
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCheckpoint(ctx context.Context, cp Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (presentation_id, name, commit_hash, created_by)
		VALUES ($1, $2, $3, $4)
	`, cp.PresentationID, cp.Name, cp.Hash, cp.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCheckpoints(ctx context.Context, presentationID string) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT presentation_id, name, commit_hash, created_by, created_at
		FROM checkpoints
		WHERE presentation_id=$1
		ORDER BY created_at DESC
	`, presentationID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	items := make([]Checkpoint, 0)
	for rows.Next() {
		var item Checkpoint
		if err := rows.Scan(&item.PresentationID, &item.Name, &item.Hash, &item.CreatedBy, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.display_name, COALESCE(m.role, 'viewer'), u.created_at
		FROM users u
		LEFT JOIN memberships m ON m.user_id = u.id
		ORDER BY u.display_name
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.DisplayName, &user.Role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetUserRole reports false when the user does not exist.
func (s *PostgresStore) SetUserRole(ctx context.Context, userID, role string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id::text = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	if !exists {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO memberships (user_id, role)
		VALUES ($1::uuid, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
	`, userID, role); err != nil {
		return false, fmt.Errorf("set role: %w", err)
	}
	return true, nil
}
