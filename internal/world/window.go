package world

import (
	"fmt"
	"math"

	"worldstream/internal/mathx"
)

// Window is the materialized horizontal interval [Start, End). It keeps its
// width and slides by whole buffers.
type Window struct {
	Start  int
	End    int
	Buffer int
	Unit   int
}

// NewWindow centres a window of the given width on x, aligned to unit.
func NewWindow(x float64, width, buffer, unit int) Window {
	start := mathx.SnapDown(int(math.Floor(x))-width/2, unit)
	return Window{Start: start, End: start + width, Buffer: buffer, Unit: unit}
}

func (w Window) Width() int { return w.End - w.Start }

// Contains reports whether column x lies inside the retention bound
// [Start-Unit, End+Unit).
func (w Window) Contains(x int) bool {
	return x >= w.Start-w.Unit && x < w.End+w.Unit
}

// Strip is a newly exposed span that must be materialized.
type Strip struct {
	From int
	To   int
}

// Step applies at most one buffer shift toward the observer. ok is false
// when the observer is comfortably inside the window.
func (w Window) Step(observerX float64) (Window, Strip, bool) {
	switch {
	case !finite(observerX):
		return w, Strip{}, false
	case float64(w.Start) > observerX-float64(w.Buffer):
		next := w
		next.Start -= w.Buffer
		next.End -= w.Buffer
		return next, Strip{From: next.Start, To: w.Start}, true
	case float64(w.End) < observerX+float64(w.Buffer):
		next := w
		next.Start += w.Buffer
		next.End += w.Buffer
		return next, Strip{From: w.End, To: next.End}, true
	default:
		return w, Strip{}, false
	}
}

func (w Window) String() string {
	return fmt.Sprintf("[%d,%d)", w.Start, w.End)
}

// Leap moves the window by the whole number of buffers that brings a
// distant observer back inside its buffered zone. ok is false unless the
// observer is more than one window width beyond either edge; nearer moves
// are left to Step.
func (w Window) Leap(observerX float64) (Window, int, bool) {
	if !finite(observerX) || w.Buffer <= 0 {
		return w, 0, false
	}
	b := float64(w.Buffer)
	var k int
	switch {
	case observerX > float64(w.End+w.Width()):
		k = int(math.Ceil((observerX + b - float64(w.End)) / b))
	case observerX < float64(w.Start-w.Width()):
		k = -int(math.Ceil((float64(w.Start) - (observerX - b)) / b))
	default:
		return w, 0, false
	}
	next := w
	next.Start += k * w.Buffer
	next.End += k * w.Buffer
	if k < 0 {
		k = -k
	}
	return next, k, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
