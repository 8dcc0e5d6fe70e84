package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"atomdeck/api/internal/document"
)

func newDeck(t *testing.T) *document.Presentation {
	t.Helper()
	p := document.NewBlank("pres_1", "Roadmap", "Avery", time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC))
	el, err := document.NewElement(document.KindText, "t1")
	if err != nil {
		t.Fatalf("NewElement() error = %v", err)
	}
	el.Text().Content = "Ship it"
	p.Slides[0].Elements = append(p.Slides[0].Elements, el)
	return p
}

func TestCheckpointLifecycle(t *testing.T) {
	tempDir := t.TempDir()
	svc := New(tempDir)
	p := newDeck(t)

	history, err := svc.History(p.ID, 10)
	if err != nil {
		t.Fatalf("History() before first checkpoint error = %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("History() = %+v, want empty", history)
	}

	first, err := svc.Checkpoint(p, "Baseline", "Avery")
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if first.Hash == "" || first.Name != "Baseline" || first.SlidesAdded != 1 || first.SlidesRemoved != 0 {
		t.Fatalf("unexpected first checkpoint: %+v", first)
	}
	if _, err := os.Stat(filepath.Join(tempDir, p.ID, contentFile)); err != nil {
		t.Fatalf("checkpoint file missing: %v", err)
	}

	edited := p.Clone()
	edited.Title = "Roadmap v2"
	edited.Slides = append(edited.Slides, document.NewSlide(time.Now()))
	second, err := svc.Checkpoint(edited, "Added a slide", "Avery")
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if second.SlidesAdded != 1 || second.SlidesRemoved != 0 {
		t.Fatalf("unexpected diff on second checkpoint: %+v", second)
	}

	history, err = svc.History(p.ID, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 || history[0].Hash != second.Hash || history[1].Name != "Baseline" {
		t.Fatalf("unexpected history: %+v", history)
	}

	restored, err := svc.Restore(p.ID, first.Hash)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Title != "Roadmap" || len(restored.Slides) != 1 {
		t.Fatalf("unexpected restored deck: %+v", restored)
	}
	if got := restored.Slides[0].Elements[0].Text(); got == nil || got.Content != "Ship it" {
		t.Fatalf("restored element lost its payload: %+v", restored.Slides[0].Elements[0])
	}
}

func TestRestoreUnknownPresentation(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.Restore("missing", "abc1234"); !errors.Is(err, ErrNoRepository) {
		t.Fatalf("Restore() error = %v, want ErrNoRepository", err)
	}
}

func TestCheckpointDefaultsName(t *testing.T) {
	svc := New(t.TempDir())
	svc.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	info, err := svc.Checkpoint(newDeck(t), "  ", "")
	if err != nil {
		t.Fatalf("Checkpoint() error = %v", err)
	}
	if info.Name != "Checkpoint 2025-01-02T03:04:05Z" {
		t.Fatalf("Name = %q", info.Name)
	}
}

func TestDiffSlides(t *testing.T) {
	from := &document.Presentation{Slides: []document.Slide{{ID: "a"}, {ID: "b"}}}
	to := &document.Presentation{Slides: []document.Slide{{ID: "b"}, {ID: "c"}, {ID: "d"}}}
	if added, removed := DiffSlides(from, to); added != 2 || removed != 1 {
		t.Fatalf("DiffSlides() = %d, %d, want 2, 1", added, removed)
	}
	if added, removed := DiffSlides(nil, to); added != 3 || removed != 0 {
		t.Fatalf("DiffSlides(nil) = %d, %d, want 3, 0", added, removed)
	}
}

func TestConcurrentCheckpoints(t *testing.T) {
	svc := New(t.TempDir())
	base := newDeck(t)

	const writers = 8
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := base.Clone()
			next.Title = fmt.Sprintf("title-%02d", i)
			if _, err := svc.Checkpoint(next, fmt.Sprintf("Commit %02d", i), "Avery"); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("Checkpoint() concurrent error = %v", err)
	}

	history, err := svc.History(base.ID, 100)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != writers {
		t.Fatalf("expected %d commits in history, got %d", writers, len(history))
	}
}
