package engine

import (
	"atomdeck/api/internal/document"
	"atomdeck/api/internal/operation"
)

func (t *txn) addElement(c operation.AddElement) (Result, error) {
	si, ok := t.resolveSlide(c.Slide)
	if !ok {
		return Result{}, &operation.NotFoundError{Op: operation.OpAdd, Target: slideRefString(c.Slide)}
	}
	taken := t.doc.ElementIDs()
	id, _ := c.Fields["id"].(string)
	if _, dup := taken[id]; dup {
		id = ""
	}
	for id == "" {
		id = document.NewElementID()
		if _, dup := taken[id]; dup {
			id = ""
		}
	}

	el, err := document.NewElement(c.Kind, id)
	if err != nil {
		return Result{}, operation.Invalid("%v", err)
	}
	el, err = document.MergeElement(el, c.Fields)
	if err != nil {
		return Result{}, operation.Invalid("%v", err)
	}
	slide := &t.doc.Slides[si]
	if _, set := c.Fields["zIndex"]; !set {
		el.ZIndex = topZ(slide) + 1
	}
	slide.Elements = append(slide.Elements, el)
	t.touch(si)

	added := el.Clone()
	return Result{Applied: true, SlideIndex: si, Element: &added, Count: 1}, nil
}

func topZ(slide *document.Slide) int {
	top := -1
	for i := range slide.Elements {
		if slide.Elements[i].ZIndex > top {
			top = slide.Elements[i].ZIndex
		}
	}
	return top
}

// removeElements deletes every listed id it can find. Missing ids are not an
// error; if none is found the result is not applied.
func (t *txn) removeElements(ids []string) (Result, error) {
	res := noop()
	for _, id := range ids {
		si, ei, ok := t.doc.FindElement(id)
		if !ok {
			continue
		}
		slide := &t.doc.Slides[si]
		res.Elements = append(res.Elements, slide.Elements[ei].Clone())
		slide.Elements = append(slide.Elements[:ei], slide.Elements[ei+1:]...)
		if res.Count == 0 {
			res.SlideIndex = si
		}
		res.Count++
		t.touch(si)
	}
	if res.Count == 0 {
		return noop(), nil
	}
	res.Applied = true
	if res.Count == 1 {
		res.Element = &res.Elements[0]
	}
	return res, nil
}

func (t *txn) removeAll(c operation.RemoveAll) (Result, error) {
	if !t.validSlide(c.SlideIndex) {
		return noop(), nil
	}
	slide := &t.doc.Slides[c.SlideIndex]
	res := Result{SlideIndex: c.SlideIndex}
	kept := slide.Elements[:0:0]
	for _, el := range slide.Elements {
		if c.Kind == "" || el.Type == c.Kind {
			res.Elements = append(res.Elements, el.Clone())
			continue
		}
		kept = append(kept, el)
	}
	res.Count = len(res.Elements)
	if res.Count == 0 {
		return res, nil
	}
	slide.Elements = kept
	res.Applied = true
	t.touch(c.SlideIndex)
	return res, nil
}

func (t *txn) modifyElement(c operation.ModifyElement) (Result, error) {
	si, el, err := t.mergeInto(c.ID, c.Changes)
	if err != nil {
		return Result{}, err
	}
	return Result{Applied: true, SlideIndex: si, Element: &el, Count: 1}, nil
}

// modifyBatch applies every update or none: a missing id fails the whole batch.
func (t *txn) modifyBatch(c operation.ModifyBatch) (Result, error) {
	res := noop()
	for _, u := range c.Updates {
		si, el, err := t.mergeInto(u.ID, u.Changes)
		if err != nil {
			return Result{}, err
		}
		if res.Count == 0 {
			res.SlideIndex = si
		}
		res.Elements = append(res.Elements, el)
		res.Count++
	}
	res.Applied = res.Count > 0
	return res, nil
}

func (t *txn) mergeInto(id string, changes map[string]any) (int, document.Element, error) {
	si, ei, ok := t.doc.FindElement(id)
	if !ok {
		return -1, document.Element{}, &operation.NotFoundError{Op: operation.OpModify, Target: id}
	}
	slide := &t.doc.Slides[si]
	merged, err := document.MergeElement(slide.Elements[ei], changes)
	if err != nil {
		return -1, document.Element{}, operation.Invalid("%v", err)
	}
	slide.Elements[ei] = merged
	t.touch(si)
	return si, merged.Clone(), nil
}

func (t *txn) reorderElements(c operation.ReorderElements) (Result, error) {
	if !t.validSlide(c.SlideIndex) || len(c.Order) == 0 {
		return noop(), nil
	}
	slide := &t.doc.Slides[c.SlideIndex]
	// Ids absent from the order are dropped from the slide.
	ordered := make([]document.Element, 0, len(c.Order))
	used := map[string]bool{}
	for _, id := range c.Order {
		ei := slide.ElementIndex(id)
		if ei < 0 || used[id] {
			continue
		}
		used[id] = true
		el := slide.Elements[ei]
		el.ZIndex = len(ordered)
		ordered = append(ordered, el)
	}
	slide.Elements = ordered
	t.touch(c.SlideIndex)
	return Result{Applied: true, SlideIndex: c.SlideIndex, Count: len(ordered)}, nil
}

func slideRefString(ref operation.SlideRef) string {
	if ref.ID != "" {
		return ref.ID
	}
	return operation.Index(ref.Index).String()
}
