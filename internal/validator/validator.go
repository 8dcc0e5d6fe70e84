// Package validator checks atomic operations before the engine sees them.
package validator

import (
	"atomdeck/api/internal/operation"
)

// Validate returns the hard errors and soft warnings for op. Operations of an
// unknown kind pass through untouched so the engine can reject them as
// unsupported.
func Validate(op operation.AtomicOperation) operation.Report {
	var r operation.Report
	if op.Op == "" {
		r.Errorf("op is required")
		return r
	}
	switch op.Op {
	case operation.OpAdd:
		validateAdd(op, &r)
	case operation.OpRemove:
		validateRemove(op, &r)
	case operation.OpModify:
		validateModify(op, &r)
	case operation.OpCreate:
		requireType(op, &r, "createType")
		requireData(op, &r)
	case operation.OpDelete:
		validateDelete(op, &r)
	case operation.OpReorder:
		requireType(op, &r, "reorderType")
		requireData(op, &r)
	case operation.OpApply:
		validateApply(op, &r)
	}
	return r
}

// Check is Validate folded into an error for callers that only need a gate.
func Check(op operation.AtomicOperation) error {
	if r := Validate(op); !r.Valid() {
		return &operation.ValidationError{Report: r}
	}
	return nil
}

func requireType(op operation.AtomicOperation, r *operation.Report, field string) {
	if op.Type == "" {
		r.Errorf("%s is required", field)
	}
}

func requireData(op operation.AtomicOperation, r *operation.Report) {
	if op.Data == nil {
		r.Errorf("data is required")
	}
}

func validateAdd(op operation.AtomicOperation, r *operation.Report) {
	requireType(op, r, "componentType")
	if op.Data == nil {
		r.Errorf("data is required")
		return
	}
	pos, ok := op.Data["position"].(map[string]any)
	if !ok {
		r.Errorf("position is required")
		return
	}
	x, xok := number(pos["x"])
	y, yok := number(pos["y"])
	if !xok || !yok {
		r.Errorf("position.x and position.y must be numbers")
		return
	}
	if x < 0 || y < 0 {
		r.Warnf("position is outside the slide")
	}
}

func validateRemove(op operation.AtomicOperation, r *operation.Report) {
	if op.Type == operation.TypeAll {
		if _, ok := op.Target.AsIndex(); !ok {
			r.Errorf("slide index is required")
		}
		return
	}
	if op.Target.Empty() {
		r.Errorf("componentIds must not be empty")
	}
}

func validateModify(op operation.AtomicOperation, r *operation.Report) {
	_, hasUpdates := op.Data["updates"]
	if op.Target.Empty() && !(op.Type == operation.TypeBatch && hasUpdates) {
		r.Errorf("componentId is required")
	}
	if len(op.Data) == 0 {
		r.Warnf("changes are empty")
	}
}

func validateDelete(op operation.AtomicOperation, r *operation.Report) {
	requireType(op, r, "deleteType")
	if op.Type == operation.TypeSlideRange {
		_, hasFrom := op.Data["from"]
		_, hasTo := op.Data["to"]
		if hasFrom && hasTo {
			return
		}
	}
	if op.Target.Empty() {
		r.Errorf("targetIds must not be empty")
	}
}

func validateApply(op operation.AtomicOperation, r *operation.Report) {
	requireType(op, r, "applyType")
	requireData(op, r)
	if op.Target.Empty() {
		if targets, ok := op.Data["targets"].([]any); !ok || len(targets) == 0 {
			r.Warnf("targets are empty")
		}
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
