package engine

import (
	"cmp"
	"slices"
	"sort"
	"strings"

	"atomdeck/api/internal/document"
	"atomdeck/api/internal/operation"
)

func (t *txn) createSlides(at operation.InsertAt, specs []operation.SlideSpec) (Result, error) {
	if len(specs) == 0 {
		return noop(), nil
	}
	created := make([]document.Slide, 0, len(specs))
	for _, spec := range specs {
		slide, err := t.buildSlide(spec)
		if err != nil {
			return Result{}, err
		}
		created = append(created, slide)
	}

	pos := len(t.doc.Slides)
	if !at.End && at.After >= -1 && at.After < len(t.doc.Slides) {
		pos = at.After + 1
	}
	t.doc.Slides = slices.Insert(t.doc.Slides, pos, created...)

	res := Result{Applied: true, SlideIndex: pos, Count: len(created)}
	for i := range created {
		res.Slides = append(res.Slides, created[i].Clone())
	}
	return res, nil
}

func (t *txn) buildSlide(spec operation.SlideSpec) (document.Slide, error) {
	slide := document.NewSlide(t.now)
	if spec.Layout != "" {
		if !document.KnownLayout(spec.Layout) {
			return document.Slide{}, operation.Invalid("unknown layout %q", spec.Layout)
		}
		slide.Layout = spec.Layout
	}
	slide.Template = spec.Template
	slide.Notes = spec.Notes
	if spec.Background != nil {
		bg := *spec.Background
		slide.Background = &bg
	}
	if spec.Transition != nil {
		tr := *spec.Transition
		slide.Transition = &tr
	}
	if len(spec.Elements) == 0 {
		slide.Elements = document.LayoutElements(slide.Layout)
		return slide, nil
	}
	// Nested elements always get fresh ids.
	for i, fields := range spec.Elements {
		kind, _ := fields["type"].(string)
		el, err := document.NewElement(document.Kind(kind), "")
		if err != nil {
			return document.Slide{}, operation.Invalid("elements[%d]: %v", i, err)
		}
		el, err = document.MergeElement(el, fields)
		if err != nil {
			return document.Slide{}, operation.Invalid("elements[%d]: %v", i, err)
		}
		if _, set := fields["zIndex"]; !set {
			el.ZIndex = i
		}
		slide.Elements = append(slide.Elements, el)
	}
	return slide, nil
}

// deleteSlides removes the listed slides. Any invalid index turns the whole
// request into a no-op.
func (t *txn) deleteSlides(indexes []int) (Result, error) {
	if len(indexes) == 0 {
		return noop(), nil
	}
	unique := slices.Clone(indexes)
	slices.Sort(unique)
	unique = slices.Compact(unique)
	for _, i := range unique {
		if !t.validSlide(i) {
			return noop(), nil
		}
	}
	res := Result{Applied: true, SlideIndex: unique[0], Count: len(unique)}
	for _, i := range unique {
		res.Slides = append(res.Slides, t.doc.Slides[i].Clone())
	}
	for j := len(unique) - 1; j >= 0; j-- {
		t.doc.Slides = slices.Delete(t.doc.Slides, unique[j], unique[j]+1)
	}
	return res, nil
}

func (t *txn) deleteRange(c operation.DeleteSlideRange) (Result, error) {
	if !c.Ok || c.From > c.To || !t.validSlide(c.From) || !t.validSlide(c.To) {
		return noop(), nil
	}
	res := Result{Applied: true, SlideIndex: c.From, Count: c.To - c.From + 1}
	for i := c.From; i <= c.To; i++ {
		res.Slides = append(res.Slides, t.doc.Slides[i].Clone())
	}
	t.doc.Slides = slices.Delete(t.doc.Slides, c.From, c.To+1)
	return res, nil
}

var slideOrderings = map[string]func(a, b *document.Slide) int{
	"createdAt":    func(a, b *document.Slide) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updatedAt":    func(a, b *document.Slide) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	"layout":       func(a, b *document.Slide) int { return strings.Compare(a.Layout, b.Layout) },
	"elementCount": func(a, b *document.Slide) int { return cmp.Compare(len(a.Elements), len(b.Elements)) },
}

func (t *txn) reorderSlides(c operation.ReorderSlides) (Result, error) {
	n := len(t.doc.Slides)
	if c.Order != nil {
		if !isPermutation(c.Order, n) {
			return noop(), nil
		}
		reordered := make([]document.Slide, n)
		for pos, from := range c.Order {
			reordered[pos] = t.doc.Slides[from]
		}
		t.doc.Slides = reordered
		return Result{Applied: true, SlideIndex: -1, Count: n}, nil
	}

	compare, ok := slideOrderings[c.SortBy]
	if !ok {
		return noop(), nil
	}
	sort.SliceStable(t.doc.Slides, func(i, j int) bool {
		d := compare(&t.doc.Slides[i], &t.doc.Slides[j])
		if c.Descending {
			return d > 0
		}
		return d < 0
	})
	return Result{Applied: true, SlideIndex: -1, Count: n}, nil
}

func isPermutation(order []int, n int) bool {
	if len(order) != n || n == 0 {
		return false
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}
