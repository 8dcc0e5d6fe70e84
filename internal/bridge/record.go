// Package bridge carries executed operations out of the engine to telemetry
// and collaboration sinks, and feeds suggested operations back in.
package bridge

import (
	"context"

	"atomdeck/api/internal/engine"
	"atomdeck/api/internal/operation"
)

// Record is the payload every sink receives for one executed operation.
type Record struct {
	Operation      operation.AtomicOperation `json:"operation"`
	Result         engine.Result             `json:"result"`
	PresentationID string                    `json:"presentationId"`
	SlideIndex     int                       `json:"slideIndex"`
	Context        map[string]any            `json:"context,omitempty"`
}

func NewRecord(presentationID string, op operation.AtomicOperation, res engine.Result) Record {
	ctx := map[string]any{"timestamp": op.Timestamp}
	if op.UserID != "" {
		ctx["userId"] = op.UserID
	}
	if op.SessionID != "" {
		ctx["sessionId"] = op.SessionID
	}
	return Record{
		Operation:      op,
		Result:         res,
		PresentationID: presentationID,
		SlideIndex:     res.SlideIndex,
		Context:        ctx,
	}
}

// Sink receives operation records. Publish errors are logged by the
// dispatcher and never reach the engine.
type Sink interface {
	Name() string
	Publish(ctx context.Context, rec Record) error
}
