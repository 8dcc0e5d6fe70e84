package engine

import (
	"fmt"
	"strconv"
	"time"

	"atomdeck/api/internal/document"
	"atomdeck/api/internal/operation"
)

// Result describes what an execution did. SlideIndex is -1 when the
// operation is not tied to one slide.
type Result struct {
	Applied    bool               `json:"applied"`
	Op         operation.Op       `json:"op"`
	Type       string             `json:"type"`
	SlideIndex int                `json:"slideIndex"`
	Element    *document.Element  `json:"element,omitempty"`
	Elements   []document.Element `json:"elements,omitempty"`
	Slides     []document.Slide   `json:"slides,omitempty"`
	Count      int                `json:"count"`
}

func noop() Result { return Result{SlideIndex: -1} }

// txn is one execution against a private working copy.
type txn struct {
	doc     *document.Presentation
	now     time.Time
	touched []int
}

func (t *txn) touch(slideIndex int) {
	t.touched = append(t.touched, slideIndex)
}

func (t *txn) validSlide(i int) bool {
	return i >= 0 && i < len(t.doc.Slides)
}

func (t *txn) resolveSlide(ref operation.SlideRef) (int, bool) {
	if ref.ID != "" {
		if i := t.doc.SlideIndex(ref.ID); i >= 0 {
			return i, true
		}
		if i, err := strconv.Atoi(ref.ID); err == nil && t.validSlide(i) {
			return i, true
		}
		return -1, false
	}
	return ref.Index, t.validSlide(ref.Index)
}

// resolveSlides turns an APPLY target into slide indexes. An empty target
// selects every slide.
func (t *txn) resolveSlides(target operation.Target) []int {
	if target.Empty() {
		all := make([]int, len(t.doc.Slides))
		for i := range all {
			all[i] = i
		}
		return all
	}
	var out []int
	seen := map[int]bool{}
	add := func(i int) {
		if t.validSlide(i) && !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	if ids := target.IDList(); ids != nil {
		for _, id := range ids {
			if i, ok := t.resolveSlide(operation.SlideRef{ID: id}); ok {
				add(i)
			}
		}
		return out
	}
	for _, i := range target.IndexList() {
		add(i)
	}
	return out
}

func (t *txn) apply(cmd operation.Command) (Result, error) {
	switch c := cmd.(type) {
	case operation.AddElement:
		return t.addElement(c)
	case operation.RemoveElement:
		return t.removeElements([]string{c.ID})
	case operation.RemoveElements:
		return t.removeElements(c.IDs)
	case operation.RemoveAll:
		return t.removeAll(c)
	case operation.ModifyElement:
		return t.modifyElement(c)
	case operation.ModifyBatch:
		return t.modifyBatch(c)
	case operation.CreateSlide:
		return t.createSlides(c.At, []operation.SlideSpec{c.Spec})
	case operation.CreateSlides:
		return t.createSlides(c.At, c.Specs)
	case operation.DeleteSlide:
		return t.deleteSlides([]int{c.Index})
	case operation.DeleteSlides:
		return t.deleteSlides(c.Indexes)
	case operation.DeleteSlideRange:
		return t.deleteRange(c)
	case operation.ReorderSlides:
		return t.reorderSlides(c)
	case operation.ReorderElements:
		return t.reorderElements(c)
	case operation.ApplyTheme:
		return t.applyTheme(c.Name, c.Colors, c.Fonts, nil)
	case operation.ApplyBrand:
		return t.applyTheme(c.Name, c.Colors, c.Fonts, &c.Logo)
	case operation.ApplyTransitions:
		return t.applyTransitions(c)
	case operation.ApplyLayout:
		return t.applyLayout(c)
	case operation.ApplyAnimations:
		return t.applyAnimations(c)
	}
	return Result{}, fmt.Errorf("no handler for %T", cmd)
}
