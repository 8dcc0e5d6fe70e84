package app

import (
	"context"
	"sync"
	"testing"

	"atomdeck/api/internal/cache"
	"atomdeck/api/internal/operation"
	"atomdeck/api/internal/search"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newCachedService(t *testing.T, ms *memoryStore) (*Service, *cache.RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc := cache.NewRedisCacheWithClient(client)
	t.Cleanup(func() { _ = rc.Close() })
	return newTestService(t, ms, WithCache(rc)), rc
}

func addText(content string) operation.AtomicOperation {
	return operation.AtomicOperation{
		Op:     operation.OpAdd,
		Type:   "text",
		Target: operation.Index(0),
		Data: map[string]any{
			"position": map[string]any{"x": 10.0, "y": 10.0},
			"content":  content,
		},
	}
}

func TestRecentOperationsAreCachedUntilNextOperation(t *testing.T) {
	ms := newMemoryStore()
	svc, _ := newCachedService(t, ms)
	ctx := context.Background()
	session := Session{UserID: "user-avery", UserName: "Avery", Role: "editor"}

	doc, err := svc.CreatePresentation(ctx, session, CreatePresentationInput{Title: "Deck"})
	if err != nil {
		t.Fatalf("CreatePresentation() error = %v", err)
	}
	if _, err := svc.ExecuteOperation(ctx, session, doc.ID, addText("one")); err != nil {
		t.Fatalf("ExecuteOperation() error = %v", err)
	}

	for range 2 {
		items, err := svc.RecentOperations(ctx, "", 5)
		if err != nil {
			t.Fatalf("RecentOperations() error = %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("RecentOperations() returned %d items", len(items))
		}
	}
	if ms.recentCalls != 1 {
		t.Fatalf("store queried %d times, want 1", ms.recentCalls)
	}

	if _, err := svc.ExecuteOperation(ctx, session, doc.ID, addText("two")); err != nil {
		t.Fatalf("ExecuteOperation() error = %v", err)
	}
	items, err := svc.RecentOperations(ctx, "", 5)
	if err != nil {
		t.Fatalf("RecentOperations() error = %v", err)
	}
	if len(items) != 2 || ms.recentCalls != 2 {
		t.Fatalf("cache not invalidated: %d items, %d store calls", len(items), ms.recentCalls)
	}
}

func TestPresentationReadsUseCache(t *testing.T) {
	ms := newMemoryStore()
	svc, rc := newCachedService(t, ms)
	ctx := context.Background()
	session := Session{UserID: "user-avery", UserName: "Avery", Role: "editor"}

	doc, err := svc.CreatePresentation(ctx, session, CreatePresentationInput{Title: "Deck"})
	if err != nil {
		t.Fatalf("CreatePresentation() error = %v", err)
	}
	if _, err := svc.GetPresentation(ctx, doc.ID); err != nil {
		t.Fatalf("GetPresentation() error = %v", err)
	}
	if ms.getCalls != 0 {
		t.Fatalf("store read %d times, want cache hit", ms.getCalls)
	}

	if _, err := svc.DeletePresentation(ctx, doc.ID); err != nil {
		t.Fatalf("DeletePresentation() error = %v", err)
	}
	if _, ok, _ := rc.GetPresentation(ctx, doc.ID); ok {
		t.Fatal("cache entry survived delete")
	}
}

type fakeSearch struct {
	mu      sync.Mutex
	indexed map[string]search.PresentationRecord
	deleted []string
	queries []search.Query
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (f *fakeSearch) IndexPresentation(r search.PresentationRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[r.ID] = r
}

func (f *fakeSearch) DeletePresentation(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
}

func TestSaveIndexesPresentationText(t *testing.T) {
	fs := &fakeSearch{indexed: map[string]search.PresentationRecord{}}
	svc := newTestService(t, newMemoryStore(), WithSearch(fs))
	ctx := context.Background()
	session := Session{UserID: "user-avery", UserName: "Avery", Role: "editor"}

	doc, err := svc.CreatePresentation(ctx, session, CreatePresentationInput{Title: "Roadmap"})
	if err != nil {
		t.Fatalf("CreatePresentation() error = %v", err)
	}
	if _, err := svc.ExecuteOperation(ctx, session, doc.ID, addText("Launch in spring")); err != nil {
		t.Fatalf("ExecuteOperation() error = %v", err)
	}
	if _, err := svc.Save(ctx, doc.ID); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	record := fs.indexed[doc.ID]
	if record.Title != "Roadmap" || record.Body != "Launch in spring" || record.UserID != "user-avery" {
		t.Fatalf("unexpected index record: %+v", record)
	}

	svc.Search(search.Query{Text: "  spring ", Limit: 500})
	if len(fs.queries) != 1 || fs.queries[0].Text != "spring" || fs.queries[0].Limit != 100 {
		t.Fatalf("unexpected search query: %+v", fs.queries)
	}
	if resp := svc.Search(search.Query{Text: "   "}); len(fs.queries) != 1 || resp.Results == nil {
		t.Fatalf("blank query reached the index")
	}
}

func TestApplySuggestionMarksSession(t *testing.T) {
	ms := newMemoryStore()
	svc := newTestService(t, ms)
	ctx := context.Background()
	doc, err := svc.CreatePresentation(ctx, Session{UserID: "u1", UserName: "Avery"}, CreatePresentationInput{})
	if err != nil {
		t.Fatalf("CreatePresentation() error = %v", err)
	}
	if doc.Title != "Untitled presentation" {
		t.Fatalf("default title = %q", doc.Title)
	}

	res, err := svc.ApplySuggestion(ctx, doc.ID, addText("suggested"))
	if err != nil || !res.Applied {
		t.Fatalf("ApplySuggestion() = %+v, %v", res, err)
	}
	if got := ms.loggedOperations(); len(got) != 1 || got[0].SessionID != "suggestion" || got[0].UserID != "" {
		t.Fatalf("unexpected log: %+v", got)
	}
	if svc.Processed() != 1 {
		t.Fatalf("Processed() = %d", svc.Processed())
	}

	if _, err := svc.DeletePresentation(ctx, doc.ID); err != nil {
		t.Fatalf("DeletePresentation() error = %v", err)
	}
	if svc.Processed() != 1 {
		t.Fatalf("Processed() after close = %d, want 1", svc.Processed())
	}
}

func TestCreatePresentationFromDocument(t *testing.T) {
	svc := newTestService(t, newMemoryStore())
	ctx := context.Background()
	raw := []byte(`{"id":"client-id","title":"Imported","slides":[{"id":"s1","elements":[{"id":"e1","type":"text","content":"x","position":{"x":0,"y":0},"size":{"width":10,"height":10},"opacity":1,"visible":true}]}]}`)

	doc, err := svc.CreatePresentation(ctx, Session{UserID: "u1"}, CreatePresentationInput{Presentation: raw})
	if err != nil {
		t.Fatalf("CreatePresentation() error = %v", err)
	}
	if doc.ID == "client-id" || doc.Title != "Imported" {
		t.Fatalf("unexpected document: id=%s title=%s", doc.ID, doc.Title)
	}

	dup := []byte(`{"title":"Dup","slides":[{"id":"s1","elements":[{"id":"e1","type":"text","opacity":1},{"id":"e1","type":"text","opacity":1}]}]}`)
	if _, err := svc.CreatePresentation(ctx, Session{UserID: "u1"}, CreatePresentationInput{Presentation: dup}); err == nil {
		t.Fatal("expected duplicate element ids to be rejected")
	}
}
