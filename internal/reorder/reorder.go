// Package reorder implements the drag protocol used to reorder todos: the
// pairwise swap applied to the list and a small state machine that turns
// pointer, touch and keyboard gestures into swaps.
package reorder

// ReorderItems returns a copy of items with the elements at from and to
// exchanged. Every other element keeps its position. Out-of-range indices
// return an unchanged copy.
func ReorderItems[T any](items []T, from, to int) []T {
	out := make([]T, len(items))
	copy(out, items)
	if from < 0 || to < 0 || from >= len(out) || to >= len(out) {
		return out
	}
	out[from], out[to] = out[to], out[from]
	return out
}

// Rect is the vertical extent of one rendered row.
type Rect struct {
	Top    float64
	Bottom float64
}

func (r Rect) center() float64 { return r.Top + (r.Bottom-r.Top)/2 }

// NearestTarget returns the index of the row under y. A row that contains y
// wins outright; otherwise the row whose center is closest to y is chosen.
// It returns -1 when rects is empty.
func NearestTarget(y float64, rects []Rect) int {
	target := -1
	best := 0.0
	for i, r := range rects {
		if y >= r.Top && y <= r.Bottom {
			return i
		}
		d := y - r.center()
		if d < 0 {
			d = -d
		}
		if target == -1 || d < best {
			target, best = i, d
		}
	}
	return target
}
