package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"atomdeck/api/internal/assets"
	"atomdeck/api/internal/auth"
	"atomdeck/api/internal/bridge"
	"atomdeck/api/internal/config"
	"atomdeck/api/internal/document"
	"atomdeck/api/internal/engine"
	"atomdeck/api/internal/export"
	"atomdeck/api/internal/gitrepo"
	"atomdeck/api/internal/operation"
	"atomdeck/api/internal/rbac"
	"atomdeck/api/internal/search"
	"atomdeck/api/internal/store"
	"atomdeck/api/internal/util"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const Version = "1.0.0"

type Session struct {
	Token     string
	UserID    string
	UserName  string
	Role      string
	ExpiresAt time.Time
}

type CreatePresentationInput struct {
	Title        string          `json:"title"`
	Presentation json.RawMessage `json:"presentation"`
}

type dataStore interface {
	Ping(context.Context) error
	EnsureUserByName(context.Context, string) (store.User, error)
	ListUsers(context.Context) ([]store.User, error)
	SetUserRole(context.Context, string, string) (bool, error)
	ListPresentations(context.Context, string, int, int) ([]store.PresentationSummary, error)
	GetPresentation(context.Context, string) (store.Presentation, error)
	SavePresentation(context.Context, store.Presentation) error
	DeletePresentation(context.Context, string) (bool, error)
	InsertOperation(context.Context, store.OperationLog) error
	RecentOperations(context.Context, string, int) ([]store.OperationLog, error)
	OperationStats(context.Context, time.Time) (store.OperationStats, error)
	UsageAnalytics(context.Context, int, time.Time) (store.UsageAnalytics, error)
	GetUserPreferences(context.Context, string) (map[string]any, error)
	SaveUserPreferences(context.Context, string, map[string]any) error
	InsertCheckpoint(context.Context, store.Checkpoint) error
	ListCheckpoints(context.Context, string) ([]store.Checkpoint, error)
}

type presentationCache interface {
	GetPresentation(context.Context, string) (store.Presentation, bool, error)
	SetPresentation(context.Context, store.Presentation) error
	InvalidatePresentation(context.Context, string) error
	GetRecentOperations(context.Context, string, int) ([]store.OperationLog, bool, error)
	SetRecentOperations(context.Context, string, int, []store.OperationLog) error
	InvalidateRecentOperations(context.Context) error
}

type searchService interface {
	Search(search.Query) search.Response
	IndexPresentation(search.PresentationRecord)
	DeletePresentation(string)
}

type gitService interface {
	Checkpoint(*document.Presentation, string, string) (gitrepo.CommitInfo, error)
	Restore(string, string) (*document.Presentation, error)
	History(string, int) ([]gitrepo.CommitInfo, error)
}

type assetStore interface {
	Upload(context.Context, string, string, io.Reader, int64) (assets.Asset, error)
}

type exporter interface {
	Export(context.Context, *document.Presentation, export.Format) (*export.Result, error)
}

// operationBridge forwards executed operations to telemetry and collaborators.
type operationBridge interface {
	Listener(presentationID string) engine.Listener
	Stats() bridge.Stats
}

// liveSession is the in-memory engine of one open presentation.
type liveSession struct {
	engine  *engine.Engine
	ownerID string
	detach  func()
}

type Service struct {
	cfg      config.Config
	store    dataStore
	cache    presentationCache
	search   searchService
	git      gitService
	assets   assetStore
	exporter exporter
	bridge   operationBridge
	reindex  func(context.Context)
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*liveSession
	retired  atomic.Int64
}

type Option func(*Service)

func WithCache(c presentationCache) Option { return func(s *Service) { s.cache = c } }

func WithSearch(svc searchService) Option { return func(s *Service) { s.search = svc } }

func WithAssets(a assetStore) Option { return func(s *Service) { s.assets = a } }

func WithExporter(e exporter) Option { return func(s *Service) { s.exporter = e } }

func WithBridge(b operationBridge) Option { return func(s *Service) { s.bridge = b } }

// WithReindexer sets the function the admin reindex endpoint runs.
func WithReindexer(fn func(context.Context)) Option { return func(s *Service) { s.reindex = fn } }

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg config.Config, dataStore dataStore, gitService gitService, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		cfg:      cfg,
		store:    dataStore,
		git:      gitService,
		log:      logger.Named("app"),
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*liveSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exporter == nil {
		s.exporter = export.NewService(logger)
	}
	return s
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Login(ctx context.Context, name string) (map[string]any, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if len(name) > 120 {
		return nil, invalid("name is too long")
	}
	user, err := s.store.EnsureUserByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	now := s.now()
	ttl := s.cfg.AccessTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	claims := auth.NewClaims(user.ID, user.DisplayName, string(rbac.Normalize(user.Role)), util.NewID("tok"), now, ttl)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"token":     token,
		"userId":    user.ID,
		"userName":  user.DisplayName,
		"role":      claims.Role,
		"expiresAt": now.Add(ttl),
	}, nil
}

func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token, s.now)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Subject,
		UserName:  claims.Name,
		Role:      string(rbac.Normalize(claims.Role)),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) ListPresentations(ctx context.Context, userID string, limit, offset int) ([]store.PresentationSummary, error) {
	limit = clamp(limit, 20, 100)
	offset = max(offset, 0)
	items, err := s.store.ListPresentations(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list presentations: %w", err)
	}
	return items, nil
}

// CreatePresentation stores a blank deck, or the supplied one under a fresh id.
func (s *Service) CreatePresentation(ctx context.Context, session Session, input CreatePresentationInput) (*document.Presentation, error) {
	now := s.now()
	title := strings.TrimSpace(input.Title)

	var doc *document.Presentation
	if len(input.Presentation) > 0 && string(input.Presentation) != "null" {
		parsed, err := parseDocument(input.Presentation)
		if err != nil {
			return nil, err
		}
		doc = parsed
		doc.ID = document.NewPresentationID()
		if title != "" {
			doc.Title = title
		}
		if doc.Metadata.CreatedAt.IsZero() {
			doc.Metadata.CreatedAt = now
		}
		doc.Metadata.UpdatedAt = now
	} else {
		doc = document.NewBlank(document.NewPresentationID(), title, session.UserName, now)
	}

	if err := s.persist(ctx, doc, session.UserID); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetPresentation prefers the live engine copy over the stored row.
func (s *Service) GetPresentation(ctx context.Context, id string) (*document.Presentation, error) {
	if ls := s.liveSession(id); ls != nil {
		return ls.engine.Document(), nil
	}
	_, doc, err := s.loadPresentation(ctx, id)
	return doc, err
}

// UpdatePresentation replaces the document wholesale. An open session is
// reloaded and loses its undo history.
func (s *Service) UpdatePresentation(ctx context.Context, id string, raw json.RawMessage) (*document.Presentation, error) {
	doc, err := parseDocument(raw)
	if err != nil {
		return nil, err
	}
	row, _, err := s.loadPresentation(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.ID = id
	doc.Metadata.UpdatedAt = s.now()

	if ls := s.liveSession(id); ls != nil {
		if err := ls.engine.Load(doc); err != nil {
			return nil, invalidDocument(err)
		}
	}
	if err := s.persist(ctx, doc, row.UserID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) DeletePresentation(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.DeletePresentation(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete presentation: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidatePresentation(ctx, id); err != nil {
			s.log.Warn("invalidate presentation cache", zap.String("presentation_id", id), zap.Error(err))
		}
	}
	if s.search != nil {
		s.search.DeletePresentation(id)
	}
	s.dropSession(id)
	return deleted, nil
}

// ExecuteOperation runs op against the live engine of presentationID and
// records it in the operation log.
func (s *Service) ExecuteOperation(ctx context.Context, session Session, presentationID string, op operation.AtomicOperation) (engine.Result, error) {
	if op.UserID == "" {
		op.UserID = session.UserID
	}
	return s.execute(ctx, presentationID, op)
}

// ApplySuggestion executes an operation proposed by the suggestion service.
// It goes through the same path as an editor operation.
func (s *Service) ApplySuggestion(ctx context.Context, presentationID string, op operation.AtomicOperation) (engine.Result, error) {
	if op.SessionID == "" {
		op.SessionID = "suggestion"
	}
	return s.execute(ctx, presentationID, op)
}

func (s *Service) CheckBridgeKey(key string) error {
	return auth.CheckBridgeKey(s.cfg.BridgeKeyHash, key)
}

func (s *Service) execute(ctx context.Context, presentationID string, op operation.AtomicOperation) (engine.Result, error) {
	ls, err := s.openSession(ctx, presentationID)
	if err != nil {
		return engine.Result{}, err
	}
	started := time.Now()
	res, execErr := ls.engine.Execute(ctx, op)
	s.recordOperation(ctx, presentationID, op, res, time.Since(started), execErr)
	return res, execErr
}

func (s *Service) recordOperation(ctx context.Context, presentationID string, op operation.AtomicOperation, res engine.Result, took time.Duration, execErr error) {
	if errors.Is(execErr, context.Canceled) {
		return
	}
	entry := store.OperationLog{
		ID:              util.NewID("op"),
		Operation:       string(op.Op),
		ElementType:     op.Type,
		Target:          targetLabel(op.Target),
		Timestamp:       s.now(),
		UserID:          op.UserID,
		SessionID:       op.SessionID,
		PresentationID:  presentationID,
		ExecutionTimeMS: float64(took.Microseconds()) / 1000,
		Success:         execErr == nil,
	}
	if op.Timestamp != 0 {
		entry.Timestamp = op.Time()
	}
	if len(op.Data) > 0 {
		if raw, err := json.Marshal(op.Data); err == nil {
			entry.Data = raw
		}
	}
	if execErr != nil {
		entry.ErrorMessage = execErr.Error()
	} else {
		if res.SlideIndex >= 0 {
			idx := res.SlideIndex
			entry.SlideIndex = &idx
		}
		entry.Context, _ = json.Marshal(map[string]any{"applied": res.Applied, "count": res.Count})
	}

	if err := s.store.InsertOperation(ctx, entry); err != nil {
		s.log.Warn("record operation", zap.String("presentation_id", presentationID), zap.String("op", entry.Operation), zap.Error(err))
		return
	}
	if s.cache != nil {
		if err := s.cache.InvalidateRecentOperations(ctx); err != nil {
			s.log.Warn("invalidate recent operations cache", zap.Error(err))
		}
	}
}

func targetLabel(t operation.Target) string {
	switch {
	case t.IsZero():
		return ""
	case t.IsID():
		return t.ID()
	default:
		return t.String()
	}
}

func (s *Service) Undo(ctx context.Context, presentationID string) (map[string]any, error) {
	ls, err := s.openSession(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	applied := ls.engine.Undo()
	return map[string]any{
		"applied":      applied,
		"history":      ls.engine.History(),
		"presentation": ls.engine.Document(),
	}, nil
}

func (s *Service) Redo(ctx context.Context, presentationID string) (map[string]any, error) {
	ls, err := s.openSession(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	applied := ls.engine.Redo()
	return map[string]any{
		"applied":      applied,
		"history":      ls.engine.History(),
		"presentation": ls.engine.Document(),
	}, nil
}

func (s *Service) History(ctx context.Context, presentationID string) (engine.HistoryInfo, error) {
	ls, err := s.openSession(ctx, presentationID)
	if err != nil {
		return engine.HistoryInfo{}, err
	}
	return ls.engine.History(), nil
}

// Save writes the live document of presentationID to the database.
func (s *Service) Save(ctx context.Context, presentationID string) (map[string]any, error) {
	ls, err := s.openSession(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	doc := ls.engine.Document()
	if err := s.persist(ctx, doc, ls.ownerID); err != nil {
		return nil, err
	}
	return map[string]any{
		"saved":        true,
		"id":           doc.ID,
		"slideCount":   len(doc.Slides),
		"elementCount": doc.ElementCount(),
		"updatedAt":    doc.Metadata.UpdatedAt,
	}, nil
}

func (s *Service) Export(ctx context.Context, presentationID, format string) (*export.Result, error) {
	parsed, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "UNSUPPORTED_FORMAT", "format must be json, html, pdf or docx", map[string]any{"format": format})
	}
	doc, err := s.GetPresentation(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, doc, parsed)
}

// Import stores an exported envelope or bare presentation as a new deck.
func (s *Service) Import(ctx context.Context, session Session, raw []byte) (*document.Presentation, error) {
	doc, err := document.Import(raw)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "IMPORT_INVALID", err.Error(), nil)
	}
	doc.Metadata.UpdatedAt = s.now()
	if err := s.persist(ctx, doc, session.UserID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) CreateCheckpoint(ctx context.Context, session Session, presentationID, name string) (gitrepo.CommitInfo, error) {
	doc, err := s.GetPresentation(ctx, presentationID)
	if err != nil {
		return gitrepo.CommitInfo{}, err
	}
	info, err := s.git.Checkpoint(doc, strings.TrimSpace(name), session.UserName)
	if err != nil {
		return gitrepo.CommitInfo{}, fmt.Errorf("create checkpoint: %w", err)
	}
	if err := s.store.InsertCheckpoint(ctx, store.Checkpoint{
		PresentationID: presentationID,
		Name:           info.Name,
		Hash:           info.Hash,
		CreatedBy:      session.UserName,
		CreatedAt:      info.CreatedAt,
	}); err != nil {
		s.log.Warn("index checkpoint", zap.String("presentation_id", presentationID), zap.String("hash", info.Hash), zap.Error(err))
	}
	return info, nil
}

// ListCheckpoints reads the git history and falls back to the database index
// when the repository cannot be read.
func (s *Service) ListCheckpoints(ctx context.Context, presentationID string, limit int) ([]gitrepo.CommitInfo, error) {
	commits, err := s.git.History(presentationID, clamp(limit, 50, 200))
	if err == nil {
		return commits, nil
	}
	s.log.Warn("read checkpoint history", zap.String("presentation_id", presentationID), zap.Error(err))

	rows, rowsErr := s.store.ListCheckpoints(ctx, presentationID)
	if rowsErr != nil {
		return nil, multierr.Append(err, rowsErr)
	}
	out := make([]gitrepo.CommitInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, gitrepo.CommitInfo{Hash: row.Hash, Name: row.Name, Author: row.CreatedBy, CreatedAt: row.CreatedAt})
	}
	return out, nil
}

// RestoreCheckpoint replaces the live document with the checkpointed one and
// resets its history.
func (s *Service) RestoreCheckpoint(ctx context.Context, presentationID, hash string) (*document.Presentation, error) {
	doc, err := s.git.Restore(presentationID, hash)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "CHECKPOINT_NOT_FOUND", "Checkpoint not found", map[string]any{"hash": hash})
	}
	ls, err := s.openSession(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	doc.ID = presentationID
	doc.Metadata.UpdatedAt = s.now()
	if err := ls.engine.Load(doc); err != nil {
		return nil, invalidDocument(err)
	}
	if err := s.persist(ctx, doc, ls.ownerID); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) UploadAsset(ctx context.Context, presentationID, contentType string, body io.Reader, size int64) (assets.Asset, error) {
	if s.assets == nil {
		return assets.Asset{}, domainError(http.StatusServiceUnavailable, "ASSETS_DISABLED", "Asset storage is not configured", nil)
	}
	return s.assets.Upload(ctx, presentationID, contentType, body, size)
}

func (s *Service) Search(q search.Query) search.Response {
	q.Text = strings.TrimSpace(q.Text)
	q.Limit = clamp(q.Limit, 20, 100)
	q.Offset = max(q.Offset, 0)
	if s.search == nil || q.Text == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// RecentOperations is served from the cache for a few minutes after a miss.
func (s *Service) RecentOperations(ctx context.Context, userID string, limit int) ([]store.OperationLog, error) {
	limit = clamp(limit, 10, 100)
	if s.cache != nil {
		items, ok, err := s.cache.GetRecentOperations(ctx, userID, limit)
		if err != nil {
			s.log.Warn("read recent operations cache", zap.Error(err))
		} else if ok {
			return items, nil
		}
	}
	items, err := s.store.RecentOperations(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent operations: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetRecentOperations(ctx, userID, limit, items); err != nil {
			s.log.Warn("write recent operations cache", zap.Error(err))
		}
	}
	return items, nil
}

func (s *Service) OperationStats(ctx context.Context) (store.OperationStats, error) {
	return s.store.OperationStats(ctx, s.now())
}

func (s *Service) UsageAnalytics(ctx context.Context, days int) (store.UsageAnalytics, error) {
	return s.store.UsageAnalytics(ctx, clamp(days, 7, 365), s.now())
}

func (s *Service) Preferences(ctx context.Context, userID string) (map[string]any, error) {
	return s.store.GetUserPreferences(ctx, userID)
}

// SavePreferences merges changes over the stored preferences.
func (s *Service) SavePreferences(ctx context.Context, userID string, changes map[string]any) (map[string]any, error) {
	if len(changes) == 0 {
		return nil, invalid("preferences are required")
	}
	prefs, err := s.store.GetUserPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	for key, value := range changes {
		prefs[key] = value
	}
	if err := s.store.SaveUserPreferences(ctx, userID, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// Processed counts every operation executed since startup, including those
// of sessions that were closed.
func (s *Service) Processed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.retired.Load()
	for _, ls := range s.sessions {
		total += ls.engine.Processed()
	}
	return total
}

func (s *Service) Health() map[string]any {
	s.mu.Lock()
	open := len(s.sessions)
	s.mu.Unlock()
	payload := map[string]any{
		"ok":                  true,
		"status":              "healthy",
		"timestamp":           s.now(),
		"version":             Version,
		"operationsProcessed": s.Processed(),
		"openSessions":        open,
	}
	if s.bridge != nil {
		payload["bridge"] = s.bridge.Stats()
	}
	return payload
}

// Flush saves every open session. It is called on shutdown.
func (s *Service) Flush(ctx context.Context) error {
	s.mu.Lock()
	open := make([]*liveSession, 0, len(s.sessions))
	for _, ls := range s.sessions {
		open = append(open, ls)
	}
	s.mu.Unlock()

	var err error
	for _, ls := range open {
		err = multierr.Append(err, s.persist(ctx, ls.engine.Document(), ls.ownerID))
	}
	return err
}

func (s *Service) liveSession(id string) *liveSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// openSession returns the engine for id, loading the stored document on
// first use.
func (s *Service) openSession(ctx context.Context, id string) (*liveSession, error) {
	if ls := s.liveSession(id); ls != nil {
		return ls, nil
	}
	row, doc, err := s.loadPresentation(ctx, id)
	if err != nil {
		return nil, err
	}
	e := engine.New(doc,
		engine.WithLogger(s.log),
		engine.WithHistoryLimit(s.cfg.HistoryLimit),
		engine.WithClock(s.now),
	)
	ls := &liveSession{engine: e, ownerID: row.UserID, detach: func() {}}
	if s.bridge != nil {
		ls.detach = e.OnOperation(s.bridge.Listener(id))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		ls.detach()
		return existing, nil
	}
	s.sessions[id] = ls
	return ls, nil
}

func (s *Service) dropSession(id string) {
	s.mu.Lock()
	ls, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		ls.detach()
		s.retired.Add(ls.engine.Processed())
	}
}

func (s *Service) loadPresentation(ctx context.Context, id string) (store.Presentation, *document.Presentation, error) {
	row, err := s.presentationRow(ctx, id)
	if err != nil {
		return store.Presentation{}, nil, err
	}
	doc, err := document.Unmarshal(row.Data)
	if err != nil {
		return store.Presentation{}, nil, fmt.Errorf("load presentation %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return row, doc, nil
}

func (s *Service) presentationRow(ctx context.Context, id string) (store.Presentation, error) {
	if s.cache != nil {
		row, ok, err := s.cache.GetPresentation(ctx, id)
		if err != nil {
			s.log.Warn("read presentation cache", zap.String("presentation_id", id), zap.Error(err))
		} else if ok {
			return row, nil
		}
	}
	row, err := s.store.GetPresentation(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Presentation{}, notFound("Presentation", "id", id)
	}
	if err != nil {
		return store.Presentation{}, fmt.Errorf("get presentation: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetPresentation(ctx, row); err != nil {
			s.log.Warn("write presentation cache", zap.String("presentation_id", id), zap.Error(err))
		}
	}
	return row, nil
}

// persist writes doc and refreshes the cache and search index.
func (s *Service) persist(ctx context.Context, doc *document.Presentation, ownerID string) error {
	row, err := rowFor(doc, ownerID)
	if err != nil {
		return err
	}
	if err := s.store.SavePresentation(ctx, row); err != nil {
		return fmt.Errorf("save presentation: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetPresentation(ctx, row); err != nil {
			s.log.Warn("write presentation cache", zap.String("presentation_id", doc.ID), zap.Error(err))
		}
	}
	if s.search != nil {
		s.search.IndexPresentation(search.RecordFor(doc, ownerID))
	}
	return nil
}

func rowFor(doc *document.Presentation, ownerID string) (store.Presentation, error) {
	data, err := document.Marshal(doc)
	if err != nil {
		return store.Presentation{}, fmt.Errorf("encode presentation: %w", err)
	}
	return store.Presentation{
		ID:           doc.ID,
		Title:        doc.Title,
		Data:         data,
		UserID:       ownerID,
		Version:      doc.Metadata.Version,
		Tags:         doc.Metadata.Tags,
		SlideCount:   len(doc.Slides),
		ElementCount: doc.ElementCount(),
		ThemeName:    doc.Theme.Name,
		BodyText:     doc.PlainText(),
		CreatedAt:    doc.Metadata.CreatedAt,
		UpdatedAt:    doc.Metadata.UpdatedAt,
	}, nil
}

func parseDocument(raw json.RawMessage) (*document.Presentation, error) {
	doc, err := document.Unmarshal(raw)
	if err != nil {
		return nil, invalid("presentation is not valid JSON")
	}
	if err := doc.Check(); err != nil {
		return nil, invalidDocument(err)
	}
	return doc, nil
}

func clamp(v, fallback, limit int) int {
	if v <= 0 {
		return fallback
	}
	return min(v, limit)
}
