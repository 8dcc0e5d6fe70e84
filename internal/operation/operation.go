// Package operation defines the atomic operation wire record, its typed
// commands and the errors the engine reports for them.
package operation

import (
	"time"
)

type Op string

const (
	OpAdd     Op = "ADD"
	OpRemove  Op = "REMOVE"
	OpModify  Op = "MODIFY"
	OpCreate  Op = "CREATE"
	OpDelete  Op = "DELETE"
	OpReorder Op = "REORDER"
	OpApply   Op = "APPLY"
)

var Ops = []Op{OpAdd, OpRemove, OpModify, OpCreate, OpDelete, OpReorder, OpApply}

func (o Op) Known() bool {
	for _, known := range Ops {
		if o == known {
			return true
		}
	}
	return false
}

// Structural type names accepted next to the element kinds.
const (
	TypeElement     = "element"
	TypeElements    = "elements"
	TypeAll         = "all"
	TypeBatch       = "batch"
	TypeSlide       = "slide"
	TypeSlides      = "slides"
	TypeSlideRange  = "slide-range"
	TypeTheme       = "theme"
	TypeTransitions = "transitions"
	TypeLayout      = "layout"
	TypeAnimations  = "animations"
	TypeBrand       = "brand"
)

// AtomicOperation is the wire record shared with every producer of
// operations: the editor UI, the suggestion service and replay files.
type AtomicOperation struct {
	Op        Op             `json:"op"`
	Type      string         `json:"type"`
	Target    Target         `json:"target,omitzero"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp"`
	UserID    string         `json:"userId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
}

// Stamp fills a missing timestamp with now in epoch milliseconds.
func (o *AtomicOperation) Stamp(now time.Time) {
	if o.Timestamp == 0 {
		o.Timestamp = now.UnixMilli()
	}
}

func (o AtomicOperation) Time() time.Time {
	return time.UnixMilli(o.Timestamp).UTC()
}
