package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"atomdeck/api/internal/bridge"
	"atomdeck/api/internal/config"
	"atomdeck/api/internal/document"
	"atomdeck/api/internal/engine"
	"atomdeck/api/internal/gitrepo"
	"atomdeck/api/internal/operation"
	"atomdeck/api/internal/store"
	"go.uber.org/zap/zaptest"
)

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

// memoryStore is an in-memory dataStore.
type memoryStore struct {
	mu            sync.Mutex
	users         map[string]store.User
	presentations map[string]store.Presentation
	operations    []store.OperationLog
	prefs         map[string]map[string]any
	checkpoints   []store.Checkpoint

	pingErr     error
	getCalls    int
	recentCalls int
	insertOpErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:         make(map[string]store.User),
		presentations: make(map[string]store.Presentation),
		prefs:         make(map[string]map[string]any),
	}
}

func (m *memoryStore) Ping(context.Context) error { return m.pingErr }

func (m *memoryStore) EnsureUserByName(_ context.Context, name string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.DisplayName == name {
			return u, nil
		}
	}
	u := store.User{ID: "user-" + strings.ToLower(name), DisplayName: name, Role: "editor", CreatedAt: testNow}
	m.users[u.ID] = u
	return u, nil
}

func (m *memoryStore) ListUsers(context.Context) ([]store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.User{}
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memoryStore) SetUserRole(_ context.Context, userID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	u.Role = role
	m.users[userID] = u
	return true, nil
}

func (m *memoryStore) ListPresentations(_ context.Context, userID string, limit, offset int) ([]store.PresentationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.PresentationSummary{}
	for _, p := range m.presentations {
		if userID != "" && p.UserID != userID {
			continue
		}
		out = append(out, store.PresentationSummary{ID: p.ID, Title: p.Title, UserID: p.UserID, SlideCount: p.SlideCount, ElementCount: p.ElementCount, ThemeName: p.ThemeName})
	}
	if offset >= len(out) {
		return []store.PresentationSummary{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) GetPresentation(_ context.Context, id string) (store.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	p, ok := m.presentations[id]
	if !ok {
		return store.Presentation{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memoryStore) SavePresentation(_ context.Context, item store.Presentation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presentations[item.ID] = item
	return nil
}

func (m *memoryStore) DeletePresentation(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.presentations[id]
	delete(m.presentations, id)
	return ok, nil
}

func (m *memoryStore) InsertOperation(_ context.Context, entry store.OperationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertOpErr != nil {
		return m.insertOpErr
	}
	m.operations = append(m.operations, entry)
	return nil
}

func (m *memoryStore) RecentOperations(_ context.Context, userID string, limit int) ([]store.OperationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recentCalls++
	out := []store.OperationLog{}
	for i := len(m.operations) - 1; i >= 0 && len(out) < limit; i-- {
		if userID == "" || m.operations[i].UserID == userID {
			out = append(out, m.operations[i])
		}
	}
	return out, nil
}

func (m *memoryStore) OperationStats(context.Context, time.Time) (store.OperationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := store.OperationStats{OperationsByType: map[string]int{}, OperationsByElement: map[string]int{}}
	for _, op := range m.operations {
		stats.TotalOperations++
		stats.OperationsByType[op.Operation]++
		stats.OperationsByElement[op.ElementType]++
	}
	return stats, nil
}

func (m *memoryStore) UsageAnalytics(_ context.Context, days int, _ time.Time) (store.UsageAnalytics, error) {
	return store.UsageAnalytics{PeriodDays: days, DailyOperations: []store.DailyCount{}, PopularOperations: []store.OperationCount{}}, nil
}

func (m *memoryStore) GetUserPreferences(_ context.Context, userID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prefs, ok := m.prefs[userID]; ok {
		out := make(map[string]any, len(prefs))
		for k, v := range prefs {
			out[k] = v
		}
		return out, nil
	}
	return store.DefaultPreferences(), nil
}

func (m *memoryStore) SaveUserPreferences(_ context.Context, userID string, prefs map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[userID] = prefs
	return nil
}

func (m *memoryStore) InsertCheckpoint(_ context.Context, cp store.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints = append(m.checkpoints, cp)
	return nil
}

func (m *memoryStore) ListCheckpoints(_ context.Context, presentationID string) ([]store.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []store.Checkpoint{}
	for _, cp := range m.checkpoints {
		if cp.PresentationID == presentationID {
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *memoryStore) loggedOperations() []store.OperationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.OperationLog(nil), m.operations...)
}

// memoryGit keeps checkpoints as serialized snapshots.
type memoryGit struct {
	mu         sync.Mutex
	snapshots  map[string][]byte
	commits    map[string][]gitrepo.CommitInfo
	historyErr error
}

func newMemoryGit() *memoryGit {
	return &memoryGit{snapshots: make(map[string][]byte), commits: make(map[string][]gitrepo.CommitInfo)}
}

func (g *memoryGit) Checkpoint(p *document.Presentation, name, author string) (gitrepo.CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	raw, err := document.Marshal(p)
	if err != nil {
		return gitrepo.CommitInfo{}, err
	}
	hash := strings.Repeat(string(rune('a'+len(g.snapshots))), 7)
	g.snapshots[hash] = raw
	info := gitrepo.CommitInfo{Hash: hash, Name: name, Author: author, CreatedAt: testNow}
	g.commits[p.ID] = append([]gitrepo.CommitInfo{info}, g.commits[p.ID]...)
	return info, nil
}

func (g *memoryGit) Restore(_, hash string) (*document.Presentation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	raw, ok := g.snapshots[hash]
	if !ok {
		return nil, gitrepo.ErrNoRepository
	}
	return document.Unmarshal(raw)
}

func (g *memoryGit) History(presentationID string, _ int) ([]gitrepo.CommitInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.historyErr != nil {
		return nil, g.historyErr
	}
	return append([]gitrepo.CommitInfo{}, g.commits[presentationID]...), nil
}

// recordingBridge captures what the engine forwards.
type recordingBridge struct {
	mu      sync.Mutex
	records []operation.AtomicOperation
}

func (b *recordingBridge) Listener(string) engine.Listener {
	return func(op operation.AtomicOperation, res engine.Result) {
		if !res.Applied {
			return
		}
		b.mu.Lock()
		b.records = append(b.records, op)
		b.mu.Unlock()
	}
}

func (b *recordingBridge) Stats() bridge.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bridge.Stats{Delivered: int64(len(b.records))}
}

func (b *recordingBridge) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

func newTestService(t *testing.T, ms *memoryStore, opts ...Option) *Service {
	t.Helper()
	cfg := config.Config{JWTSecret: "test-secret", AccessTTL: time.Hour, HistoryLimit: 50}
	base := []Option{WithClock(func() time.Time { return testNow })}
	return New(cfg, ms, newMemoryGit(), zaptest.NewLogger(t), append(base, opts...)...)
}

func tokenFor(t *testing.T, svc *Service, name, role string) string {
	t.Helper()
	ms := svc.store.(*memoryStore)
	user, err := ms.EnsureUserByName(context.Background(), name)
	if err != nil {
		t.Fatalf("EnsureUserByName() error = %v", err)
	}
	if _, err := ms.SetUserRole(context.Background(), user.ID, role); err != nil {
		t.Fatalf("SetUserRole() error = %v", err)
	}
	payload, err := svc.Login(context.Background(), name)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return payload["token"].(string)
}

func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func doRequestWithHeader(t *testing.T, h http.Handler, method, path, header, value, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(header, value)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), into); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
}

func createPresentation(t *testing.T, h http.Handler, token, title string) *document.Presentation {
	t.Helper()
	rr := doRequest(t, h, http.MethodPost, "/api/presentations", token, `{"title":"`+title+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create presentation status = %d body=%s", rr.Code, rr.Body.String())
	}
	var doc document.Presentation
	decodeJSON(t, rr, &doc)
	return &doc
}
