// Package history keeps bounded undo and redo stacks of presentation snapshots.
package history

import (
	"time"

	"atomdeck/api/internal/document"
)

const DefaultLimit = 50

// Entry summarizes one stored snapshot.
type Entry struct {
	UpdatedAt    time.Time `json:"updatedAt"`
	SlideCount   int       `json:"slideCount"`
	ElementCount int       `json:"elementCount"`
}

// Manager is not safe for concurrent use; the engine serializes access.
type Manager struct {
	past   []*document.Presentation
	future []*document.Presentation
	limit  int
}

func New(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit}
}

// Push stores snapshot as the newest undo entry and clears the redo stack.
// The manager takes ownership of snapshot; callers must not mutate it later.
func (m *Manager) Push(snapshot *document.Presentation) {
	m.past = append(m.past, snapshot)
	if over := len(m.past) - m.limit; over > 0 {
		clear(m.past[:over])
		m.past = m.past[over:]
	}
	m.future = nil
}

// Undo swaps current for the newest past snapshot. It returns false when
// there is nothing to undo.
func (m *Manager) Undo(current *document.Presentation) (*document.Presentation, bool) {
	if len(m.past) == 0 {
		return nil, false
	}
	last := len(m.past) - 1
	prev := m.past[last]
	m.past[last] = nil
	m.past = m.past[:last]
	m.future = append(m.future, current)
	return prev, true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(current *document.Presentation) (*document.Presentation, bool) {
	if len(m.future) == 0 {
		return nil, false
	}
	last := len(m.future) - 1
	next := m.future[last]
	m.future[last] = nil
	m.future = m.future[:last]
	m.past = append(m.past, current)
	return next, true
}

func (m *Manager) Reset() {
	m.past = nil
	m.future = nil
}

func (m *Manager) CanUndo() bool { return len(m.past) > 0 }
func (m *Manager) CanRedo() bool { return len(m.future) > 0 }
func (m *Manager) Len() int      { return len(m.past) }
func (m *Manager) RedoLen() int  { return len(m.future) }
func (m *Manager) Limit() int    { return m.limit }

// Entries lists the undo stack, oldest first.
func (m *Manager) Entries() []Entry {
	out := make([]Entry, 0, len(m.past))
	for _, snap := range m.past {
		out = append(out, Entry{
			UpdatedAt:    snap.Metadata.UpdatedAt,
			SlideCount:   len(snap.Slides),
			ElementCount: snap.ElementCount(),
		})
	}
	return out
}
