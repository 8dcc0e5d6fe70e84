package engine

import (
	"atomdeck/api/internal/document"
	"atomdeck/api/internal/operation"
)

// applyTheme merges name, color and font tokens into the theme. Brand
// application also sets the logo.
func (t *txn) applyTheme(name string, colors, fonts map[string]string, logo *string) (Result, error) {
	theme := &t.doc.Theme
	changed := 0
	if name != "" {
		theme.Name = name
		changed++
	}
	if len(colors) > 0 && theme.Colors == nil {
		theme.Colors = make(map[string]string, len(colors))
	}
	for k, v := range colors {
		theme.Colors[k] = v
		changed++
	}
	if len(fonts) > 0 && theme.Fonts == nil {
		theme.Fonts = make(map[string]string, len(fonts))
	}
	for k, v := range fonts {
		theme.Fonts[k] = v
		changed++
	}
	if logo != nil && *logo != "" {
		theme.Logo = *logo
		changed++
	}
	if changed == 0 {
		return noop(), nil
	}
	return Result{Applied: true, SlideIndex: -1, Count: changed}, nil
}

func (t *txn) applyTransitions(c operation.ApplyTransitions) (Result, error) {
	slides := t.resolveSlides(c.Targets)
	for _, i := range slides {
		tr := c.Transition
		t.doc.Slides[i].Transition = &tr
		t.touch(i)
	}
	return slidesResult(slides), nil
}

// applyLayout only retags slides; existing elements keep their geometry.
func (t *txn) applyLayout(c operation.ApplyLayout) (Result, error) {
	if !document.KnownLayout(c.Layout) {
		return Result{}, operation.Invalid("unknown layout %q", c.Layout)
	}
	slides := t.resolveSlides(c.Targets)
	for _, i := range slides {
		t.doc.Slides[i].Layout = c.Layout
		t.touch(i)
	}
	return slidesResult(slides), nil
}

// applyAnimations targets element ids. Index targets select every element
// of those slides and an empty target selects every element.
func (t *txn) applyAnimations(c operation.ApplyAnimations) (Result, error) {
	res := noop()
	animate := func(si, ei int) {
		an := c.Animation
		t.doc.Slides[si].Elements[ei].Animation = &an
		if res.Count == 0 {
			res.SlideIndex = si
		}
		res.Count++
		t.touch(si)
	}
	if ids := c.Targets.IDList(); ids != nil {
		for _, id := range ids {
			if si, ei, ok := t.doc.FindElement(id); ok {
				animate(si, ei)
			}
		}
	} else {
		for _, si := range t.resolveSlides(c.Targets) {
			for ei := range t.doc.Slides[si].Elements {
				animate(si, ei)
			}
		}
	}
	res.Applied = res.Count > 0
	return res, nil
}

func slidesResult(slides []int) Result {
	res := Result{Applied: len(slides) > 0, SlideIndex: -1, Count: len(slides)}
	if len(slides) == 1 {
		res.SlideIndex = slides[0]
	}
	return res
}
