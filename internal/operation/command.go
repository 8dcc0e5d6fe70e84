package operation

import (
	"fmt"

	"atomdeck/api/internal/document"
	"github.com/go-viper/mapstructure/v2"
)

// Command is the typed form of an AtomicOperation, one variant per (op, type).
type Command interface {
	command()
}

// SlideRef names a slide by index or by id.
type SlideRef struct {
	Index int
	ID    string
}

type AddElement struct {
	Kind   document.Kind
	Slide  SlideRef
	Fields map[string]any
}

type RemoveElement struct{ ID string }

type RemoveElements struct{ IDs []string }

// RemoveAll removes every element of Kind from a slide; an empty Kind removes them all.
type RemoveAll struct {
	SlideIndex int
	Kind       document.Kind
}

type ModifyElement struct {
	ID      string
	Changes map[string]any
}

type ElementUpdate struct {
	ID      string         `json:"id"`
	Changes map[string]any `json:"changes"`
}

type ModifyBatch struct{ Updates []ElementUpdate }

// InsertAt is the position a CREATE derives from data.after.
type InsertAt struct {
	End   bool
	After int
}

type SlideSpec struct {
	Layout     string               `json:"layout"`
	Template   string               `json:"template"`
	Elements   []map[string]any     `json:"elements"`
	Background *document.Background `json:"background"`
	Transition *document.Transition `json:"transition"`
	Notes      string               `json:"notes"`
}

type CreateSlide struct {
	At   InsertAt
	Spec SlideSpec
}

type CreateSlides struct {
	At    InsertAt
	Specs []SlideSpec
}

type DeleteSlide struct{ Index int }

type DeleteSlides struct{ Indexes []int }

// DeleteSlideRange removes From..To inclusive. Ok is false when the request
// did not carry a usable range.
type DeleteSlideRange struct {
	From, To int
	Ok       bool
}

type ReorderSlides struct {
	Order      []int
	SortBy     string
	Descending bool
}

type ReorderElements struct {
	SlideIndex int
	Order      []string
}

type ApplyTheme struct {
	Name   string
	Colors map[string]string
	Fonts  map[string]string
}

type ApplyTransitions struct {
	Targets    Target
	Transition document.Transition
}

type ApplyLayout struct {
	Targets Target
	Layout  string
}

type ApplyAnimations struct {
	Targets   Target
	Animation document.Animation
}

type ApplyBrand struct {
	Name   string
	Colors map[string]string
	Fonts  map[string]string
	Logo   string
}

func (AddElement) command()       {}
func (RemoveElement) command()    {}
func (RemoveElements) command()   {}
func (RemoveAll) command()        {}
func (ModifyElement) command()    {}
func (ModifyBatch) command()      {}
func (CreateSlide) command()      {}
func (CreateSlides) command()     {}
func (DeleteSlide) command()      {}
func (DeleteSlides) command()     {}
func (DeleteSlideRange) command() {}
func (ReorderSlides) command()    {}
func (ReorderElements) command()  {}
func (ApplyTheme) command()       {}
func (ApplyTransitions) command() {}
func (ApplyLayout) command()      {}
func (ApplyAnimations) command()  {}
func (ApplyBrand) command()       {}

// missing marks an index that the operation did not supply.
const missing = -1

// Decode turns the loosely typed wire record into its typed command.
// Unknown (op, type) pairs yield *UnsupportedOperationError and payloads of
// the wrong shape yield *ValidationError.
func Decode(op AtomicOperation) (Command, error) {
	switch op.Op {
	case OpAdd:
		return decodeAdd(op)
	case OpRemove:
		return decodeRemove(op)
	case OpModify:
		return decodeModify(op)
	case OpCreate:
		return decodeCreate(op)
	case OpDelete:
		return decodeDelete(op)
	case OpReorder:
		return decodeReorder(op)
	case OpApply:
		return decodeApply(op)
	}
	return nil, unsupported(op)
}

func unsupported(op AtomicOperation) error {
	return &UnsupportedOperationError{Op: op.Op, Type: op.Type}
}

func decodeAdd(op AtomicOperation) (Command, error) {
	kind := document.Kind(op.Type)
	if !kind.Valid() {
		return nil, unsupported(op)
	}
	ref := SlideRef{Index: missing}
	switch {
	case op.Target.IsIndex():
		ref.Index = op.Target.Index()
	case op.Target.IsID():
		ref.ID = op.Target.ID()
	}
	return AddElement{Kind: kind, Slide: ref, Fields: op.Data}, nil
}

func decodeRemove(op AtomicOperation) (Command, error) {
	switch op.Type {
	case TypeElement:
		ids := op.Target.IDList()
		if len(ids) == 0 {
			return RemoveElement{}, nil
		}
		return RemoveElement{ID: ids[0]}, nil
	case TypeElements:
		return RemoveElements{IDs: op.Target.IDList()}, nil
	case TypeAll:
		cmd := RemoveAll{SlideIndex: missing}
		if i, ok := op.Target.AsIndex(); ok {
			cmd.SlideIndex = i
		}
		if kind, ok := op.Data["elementType"].(string); ok {
			cmd.Kind = document.Kind(kind)
		}
		return cmd, nil
	}
	return nil, unsupported(op)
}

func decodeModify(op AtomicOperation) (Command, error) {
	switch op.Type {
	case TypeElement:
		ids := op.Target.IDList()
		if len(ids) == 0 {
			return ModifyElement{Changes: op.Data}, nil
		}
		return ModifyElement{ID: ids[0], Changes: op.Data}, nil
	case TypeBatch:
		if raw, ok := op.Data["updates"]; ok {
			var updates []ElementUpdate
			if err := decodeInto(raw, &updates); err != nil {
				return nil, Invalid("data.updates: %v", err)
			}
			return ModifyBatch{Updates: updates}, nil
		}
		ids := op.Target.IDList()
		updates := make([]ElementUpdate, 0, len(ids))
		for _, id := range ids {
			updates = append(updates, ElementUpdate{ID: id, Changes: op.Data})
		}
		return ModifyBatch{Updates: updates}, nil
	}
	return nil, unsupported(op)
}

// MaxCreateCount bounds how many slides one CREATE slides operation may add.
const MaxCreateCount = 100

func decodeCreate(op AtomicOperation) (Command, error) {
	at := insertAt(op.Data["after"])
	switch op.Type {
	case TypeSlide:
		var spec SlideSpec
		if err := decodeInto(op.Data, &spec); err != nil {
			return nil, Invalid("data: %v", err)
		}
		return CreateSlide{At: at, Spec: spec}, nil
	case TypeSlides:
		var specs []SlideSpec
		if raw, ok := op.Data["slides"]; ok {
			if err := decodeInto(raw, &specs); err != nil {
				return nil, Invalid("data.slides: %v", err)
			}
			if len(specs) > MaxCreateCount {
				return nil, Invalid("data.slides may hold at most %d slides", MaxCreateCount)
			}
		} else {
			var spec SlideSpec
			if err := decodeInto(op.Data, &spec); err != nil {
				return nil, Invalid("data: %v", err)
			}
			count := 1
			if raw, ok := op.Data["count"]; ok {
				n, err := toIndex(raw)
				if err != nil || n < 1 {
					return nil, Invalid("data.count must be a positive integer")
				}
				if n > MaxCreateCount {
					return nil, Invalid("data.count must be at most %d", MaxCreateCount)
				}
				count = n
			}
			for range count {
				specs = append(specs, spec)
			}
		}
		return CreateSlides{At: at, Specs: specs}, nil
	}
	return nil, unsupported(op)
}

func insertAt(after any) InsertAt {
	switch v := after.(type) {
	case nil:
		return InsertAt{End: true}
	case string:
		if v == "end" {
			return InsertAt{End: true}
		}
	}
	if i, err := toIndex(after); err == nil {
		return InsertAt{After: i}
	}
	return InsertAt{End: true}
}

func decodeDelete(op AtomicOperation) (Command, error) {
	switch op.Type {
	case TypeSlide:
		if i, ok := op.Target.AsIndex(); ok {
			return DeleteSlide{Index: i}, nil
		}
		return DeleteSlide{Index: missing}, nil
	case TypeSlides:
		return DeleteSlides{Indexes: op.Target.IndexList()}, nil
	case TypeSlideRange:
		if bounds := op.Target.IndexList(); op.Target.IsList() && len(bounds) == 2 {
			return DeleteSlideRange{From: bounds[0], To: bounds[1], Ok: true}, nil
		}
		from, errFrom := toIndex(op.Data["from"])
		to, errTo := toIndex(op.Data["to"])
		if errFrom != nil || errTo != nil {
			return DeleteSlideRange{}, nil
		}
		return DeleteSlideRange{From: from, To: to, Ok: true}, nil
	}
	return nil, unsupported(op)
}

func decodeReorder(op AtomicOperation) (Command, error) {
	switch op.Type {
	case TypeSlides:
		cmd := ReorderSlides{}
		if raw, ok := op.Data["order"]; ok {
			order, err := TargetFrom(raw)
			if err != nil || (!order.IsList() && !order.Empty()) {
				return nil, Invalid("data.order must be a list of slide indexes")
			}
			cmd.Order = order.IndexList()
			if cmd.Order == nil {
				cmd.Order = []int{}
			}
		}
		cmd.SortBy, _ = op.Data["sortBy"].(string)
		direction, _ := op.Data["direction"].(string)
		cmd.Descending = direction == "desc"
		return cmd, nil
	case TypeElements:
		cmd := ReorderElements{SlideIndex: missing}
		if i, ok := op.Target.AsIndex(); ok {
			cmd.SlideIndex = i
		}
		order, err := TargetFrom(op.Data["order"])
		if err != nil {
			return nil, Invalid("data.order must be a list of element ids")
		}
		cmd.Order = order.IDList()
		return cmd, nil
	}
	return nil, unsupported(op)
}

func decodeApply(op AtomicOperation) (Command, error) {
	targets := op.Target
	if targets.Empty() {
		if raw, ok := op.Data["targets"]; ok {
			parsed, err := TargetFrom(raw)
			if err != nil {
				return nil, Invalid("data.targets: %v", err)
			}
			targets = parsed
		}
	}
	switch op.Type {
	case TypeTheme:
		var theme struct {
			Name   string            `json:"name"`
			Colors map[string]string `json:"colors"`
			Fonts  map[string]string `json:"fonts"`
		}
		if err := decodeInto(op.Data, &theme); err != nil {
			return nil, Invalid("data: %v", err)
		}
		return ApplyTheme{Name: theme.Name, Colors: theme.Colors, Fonts: theme.Fonts}, nil
	case TypeBrand:
		var brand struct {
			Name   string            `json:"name"`
			Colors map[string]string `json:"colors"`
			Fonts  map[string]string `json:"fonts"`
			Logo   string            `json:"logo"`
		}
		if err := decodeInto(op.Data, &brand); err != nil {
			return nil, Invalid("data: %v", err)
		}
		return ApplyBrand{Name: brand.Name, Colors: brand.Colors, Fonts: brand.Fonts, Logo: brand.Logo}, nil
	case TypeTransitions:
		var tr document.Transition
		if err := decodeInto(payloadOf(op.Data, "transition"), &tr); err != nil {
			return nil, Invalid("data: %v", err)
		}
		if tr.Type == "" {
			return nil, Invalid("transition type is required")
		}
		return ApplyTransitions{Targets: targets, Transition: tr}, nil
	case TypeLayout:
		layout, _ := op.Data["layout"].(string)
		if layout == "" {
			return nil, Invalid("data.layout is required")
		}
		return ApplyLayout{Targets: targets, Layout: layout}, nil
	case TypeAnimations:
		var an document.Animation
		if err := decodeInto(payloadOf(op.Data, "animation"), &an); err != nil {
			return nil, Invalid("data: %v", err)
		}
		if an.Type == "" {
			return nil, Invalid("animation type is required")
		}
		return ApplyAnimations{Targets: targets, Animation: an}, nil
	}
	return nil, unsupported(op)
}

// payloadOf returns data[key] when it holds an object, otherwise data itself.
func payloadOf(data map[string]any, key string) any {
	if nested, ok := data[key].(map[string]any); ok {
		return nested
	}
	return data
}

func decodeInto(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	return dec.Decode(input)
}
