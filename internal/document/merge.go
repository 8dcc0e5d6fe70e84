package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// ErrUnknownField rejects change keys the element schema has no field for.
var ErrUnknownField = errors.New("unknown element field")

// immutable keys are never overwritten by a merge.
var immutable = map[string]struct{}{"id": {}, "type": {}}

// MergeElement overlays the top-level keys of changes onto el and returns the
// result. Nested objects are replaced, not merged. The input element is left
// untouched and the merged element must still satisfy the element invariants.
// Keys that are neither base nor payload fields of el's kind are rejected.
func MergeElement(el Element, changes map[string]any) (Element, error) {
	if len(changes) == 0 {
		return el.Clone(), nil
	}
	if unknown := unknownKeys(el, changes); len(unknown) > 0 {
		return Element{}, fmt.Errorf("element %s: %w: %s", el.ID, ErrUnknownField, strings.Join(unknown, ", "))
	}
	raw, err := json.Marshal(el)
	if err != nil {
		return Element{}, fmt.Errorf("encode element: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Element{}, fmt.Errorf("decode element: %w", err)
	}
	for key, value := range changes {
		if _, skip := immutable[key]; skip {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return Element{}, fmt.Errorf("encode field %s: %w", key, err)
		}
		fields[key] = encoded
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return Element{}, fmt.Errorf("encode merged element: %w", err)
	}
	var out Element
	if err := json.Unmarshal(merged, &out); err != nil {
		return Element{}, fmt.Errorf("apply changes to %s: %w", el.ID, err)
	}
	if err := out.Validate(); err != nil {
		return Element{}, err
	}
	return out, nil
}

func unknownKeys(el Element, changes map[string]any) []string {
	known := jsonFields(reflect.TypeOf(el.Base))
	if el.Payload != nil {
		for name := range jsonFields(reflect.TypeOf(el.Payload)) {
			known[name] = struct{}{}
		}
	}
	var out []string
	for key := range changes {
		if _, ok := known[key]; !ok {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out
}

// jsonFields lists the JSON keys of a struct type's exported fields.
func jsonFields(t reflect.Type) map[string]struct{} {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]struct{}{}
	if t.Kind() != reflect.Struct {
		return out
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		out[name] = struct{}{}
	}
	return out
}
