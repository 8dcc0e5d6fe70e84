// Package engine applies atomic operations to a presentation. It is the only
// code allowed to mutate a live document.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"atomdeck/api/internal/document"
	"atomdeck/api/internal/history"
	"atomdeck/api/internal/operation"
	"atomdeck/api/internal/validator"
	"go.uber.org/zap"
)

// Listener observes every executed operation in submission order. It runs
// while the engine is locked and must not call back into the engine.
type Listener func(op operation.AtomicOperation, res Result)

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.log = logger.Named("engine")
		}
	}
}

func WithHistoryLimit(limit int) Option {
	return func(e *Engine) { e.history = history.New(limit) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

type listenerEntry struct {
	fn Listener
}

type Engine struct {
	mu      sync.Mutex
	doc     *document.Presentation
	history *history.Manager
	log     *zap.Logger
	now     func() time.Time

	listenersMu sync.RWMutex
	listeners   []*listenerEntry

	processed atomic.Int64
}

// New takes ownership of doc. A nil doc starts from a blank presentation.
func New(doc *document.Presentation, opts ...Option) *Engine {
	e := &Engine{
		history: history.New(history.DefaultLimit),
		log:     zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	if doc == nil {
		doc = document.NewBlank("", "", "", e.now())
	}
	e.doc = doc
	return e
}

// Execute validates op and applies it. Errors leave the document untouched.
// A result with Applied=false is a no-op that records no history.
func (e *Engine) Execute(ctx context.Context, op operation.AtomicOperation) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	report := validator.Validate(op)
	if !report.Valid() {
		return Result{}, &operation.ValidationError{Report: report}
	}
	if len(report.Warnings) > 0 {
		e.log.Debug("operation warnings", zap.String("op", string(op.Op)), zap.Strings("warnings", report.Warnings))
	}
	cmd, err := operation.Decode(op)
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	now := e.now()
	op.Stamp(now)

	tx := &txn{doc: e.doc.Clone(), now: now}
	res, err := tx.apply(cmd)
	if err != nil {
		e.log.Debug("operation rejected",
			zap.String("op", string(op.Op)),
			zap.String("type", op.Type),
			zap.Error(err),
		)
		return Result{}, err
	}
	res.Op = op.Op
	res.Type = op.Type

	if res.Applied {
		for _, i := range tx.touched {
			if i >= 0 && i < len(tx.doc.Slides) {
				tx.doc.Slides[i].UpdatedAt = now
			}
		}
		tx.doc.Metadata.UpdatedAt = now
		e.history.Push(e.doc)
		e.doc = tx.doc
	}
	e.processed.Add(1)

	e.log.Debug("operation executed",
		zap.String("op", string(op.Op)),
		zap.String("type", op.Type),
		zap.Bool("applied", res.Applied),
		zap.Int("count", res.Count),
		zap.Duration("took", time.Since(start)),
	)
	e.notify(op, res)
	return res, nil
}

func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.history.Undo(e.doc)
	if !ok {
		return false
	}
	e.doc = prev
	return true
}

func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, ok := e.history.Redo(e.doc)
	if !ok {
		return false
	}
	e.doc = next
	return true
}

type HistoryInfo struct {
	CanUndo   bool            `json:"canUndo"`
	CanRedo   bool            `json:"canRedo"`
	UndoCount int             `json:"undoCount"`
	RedoCount int             `json:"redoCount"`
	Limit     int             `json:"limit"`
	Entries   []history.Entry `json:"entries"`
}

func (e *Engine) History() HistoryInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return HistoryInfo{
		CanUndo:   e.history.CanUndo(),
		CanRedo:   e.history.CanRedo(),
		UndoCount: e.history.Len(),
		RedoCount: e.history.RedoLen(),
		Limit:     e.history.Limit(),
		Entries:   e.history.Entries(),
	}
}

// Document returns a deep copy of the live presentation.
func (e *Engine) Document() *document.Presentation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// Load replaces the live presentation wholesale and resets history.
func (e *Engine) Load(doc *document.Presentation) error {
	if doc == nil {
		return fmt.Errorf("load presentation: %w", document.ErrEmptyDocument)
	}
	if err := doc.Check(); err != nil {
		return fmt.Errorf("load presentation: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = doc.Clone()
	e.history.Reset()
	return nil
}

func (e *Engine) PresentationID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.ID
}

// Processed counts executions that did not fail.
func (e *Engine) Processed() int64 {
	return e.processed.Load()
}

// OnOperation registers l and returns a function that removes it.
func (e *Engine) OnOperation(l Listener) func() {
	entry := &listenerEntry{fn: l}
	e.listenersMu.Lock()
	e.listeners = append(e.listeners, entry)
	e.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.listenersMu.Lock()
			defer e.listenersMu.Unlock()
			for i, candidate := range e.listeners {
				if candidate == entry {
					e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (e *Engine) notify(op operation.AtomicOperation, res Result) {
	e.listenersMu.RLock()
	listeners := append([]*listenerEntry(nil), e.listeners...)
	e.listenersMu.RUnlock()

	for _, l := range listeners {
		e.call(l.fn, op, res)
	}
}

func (e *Engine) call(fn Listener, op operation.AtomicOperation, res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("operation listener panicked", zap.Any("panic", r), zap.String("op", string(op.Op)))
		}
	}()
	fn(op, res)
}
