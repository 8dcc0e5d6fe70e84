package operation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

type targetKind uint8

const (
	targetNone targetKind = iota
	targetID
	targetIndex
	targetIDs
	targetIndexes
)

// Target is one of: absent, an id, an index, an id list or an index list.
type Target struct {
	kind    targetKind
	id      string
	index   int
	ids     []string
	indexes []int
}

func ID(id string) Target      { return Target{kind: targetID, id: id} }
func Index(i int) Target       { return Target{kind: targetIndex, index: i} }
func IDs(ids ...string) Target { return Target{kind: targetIDs, ids: append([]string{}, ids...)} }
func Indexes(i ...int) Target  { return Target{kind: targetIndexes, indexes: append([]int{}, i...)} }
func (t Target) IsZero() bool  { return t.kind == targetNone }
func (t Target) IsList() bool  { return t.kind == targetIDs || t.kind == targetIndexes }
func (t Target) IsIndex() bool { return t.kind == targetIndex }
func (t Target) IsID() bool    { return t.kind == targetID }
func (t Target) ID() string    { return t.id }
func (t Target) Index() int    { return t.index }

// Empty reports whether the target names nothing at all.
func (t Target) Empty() bool {
	switch t.kind {
	case targetNone:
		return true
	case targetID:
		return t.id == ""
	case targetIDs:
		return len(t.ids) == 0
	case targetIndexes:
		return len(t.indexes) == 0
	}
	return false
}

// IDList returns the target as a list of ids. A single id becomes a list of one.
func (t Target) IDList() []string {
	switch t.kind {
	case targetID:
		if t.id == "" {
			return nil
		}
		return []string{t.id}
	case targetIDs:
		return append([]string(nil), t.ids...)
	}
	return nil
}

// IndexList returns the target as a list of indexes. A single index, or an id
// that spells an integer, becomes a list of one.
func (t Target) IndexList() []int {
	switch t.kind {
	case targetIndex:
		return []int{t.index}
	case targetIndexes:
		return append([]int(nil), t.indexes...)
	case targetID:
		if i, err := strconv.Atoi(t.id); err == nil {
			return []int{i}
		}
	}
	return nil
}

// AsIndex returns the single index the target names.
func (t Target) AsIndex() (int, bool) {
	list := t.IndexList()
	if t.kind == targetIndexes || len(list) != 1 {
		return 0, false
	}
	return list[0], true
}

func (t Target) String() string {
	raw, err := json.Marshal(t)
	if err != nil {
		return "?"
	}
	return string(raw)
}

func (t Target) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case targetID:
		return json.Marshal(t.id)
	case targetIndex:
		return json.Marshal(t.index)
	case targetIDs:
		return json.Marshal(t.ids)
	case targetIndexes:
		return json.Marshal(t.indexes)
	}
	return []byte("null"), nil
}

var errTargetShape = errors.New("target must be a string, a number, or a list of either")

func (t *Target) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*t = Target{}
		return nil
	}
	var value any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return err
	}
	parsed, err := targetFromValue(value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TargetFrom converts a loosely typed value, as found in operation data, into a Target.
func TargetFrom(value any) (Target, error) {
	return targetFromValue(value)
}

func targetFromValue(value any) (Target, error) {
	switch v := value.(type) {
	case nil:
		return Target{}, nil
	case string:
		return ID(v), nil
	case json.Number, float64, int:
		i, err := toIndex(v)
		if err != nil {
			return Target{}, err
		}
		return Index(i), nil
	case []string:
		return IDs(v...), nil
	case []int:
		return Indexes(v...), nil
	case []any:
		if len(v) == 0 {
			return IDs(), nil
		}
		if _, isString := v[0].(string); isString {
			ids := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return Target{}, errTargetShape
				}
				ids = append(ids, s)
			}
			return IDs(ids...), nil
		}
		indexes := make([]int, 0, len(v))
		for _, item := range v {
			i, err := toIndex(item)
			if err != nil {
				return Target{}, err
			}
			indexes = append(indexes, i)
		}
		return Indexes(indexes...), nil
	}
	return Target{}, errTargetShape
}

func toIndex(value any) (int, error) {
	var f float64
	switch v := value.(type) {
	case int:
		return v, nil
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	default:
		return 0, errTargetShape
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("index %v is not an integer", f)
	}
	return int(f), nil
}
