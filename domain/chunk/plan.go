package chunk

import "iter"

// Plan is the ordered partition of [start, end] into closed intervals of at
// most nEach indices. A Plan holds no cursor; every call to All starts a new
// sequence.
type Plan struct {
	start int
	end   int
	nEach int
}

// Slice plans the division of [start, end] into contiguous intervals of
// nEach indices, the residual interval last.
//
// Example: Slice(-1, 7, 4) yields (-1, 2), (3, 6), (7, 7).
func Slice(start, end, nEach int) (Plan, error) {
	if end < start || nEach <= 0 {
		return Plan{}, &InvalidRangeError{Start: start, End: end, NEach: nEach}
	}
	return Plan{start: start, end: end, nEach: nEach}, nil
}

// Start returns the first index of the planned range.
func (p Plan) Start() int { return p.start }

// End returns the last index of the planned range.
func (p Plan) End() int { return p.end }

// Size returns the maximum interval length.
func (p Plan) Size() int { return p.nEach }

// Len returns the number of intervals the plan yields.
func (p Plan) Len() int {
	if p.nEach <= 0 {
		return 0
	}
	total := p.end - p.start + 1
	return (total + p.nEach - 1) / p.nEach
}

// All yields the intervals in ascending order.
//
// Full-size intervals are stepped out while a whole chunk still fits below
// end+1. The last interval, from the cursor through end, is always yielded
// on its own, so an exact multiple gets its final full chunk from that step.
func (p Plan) All() iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		if p.nEach <= 0 {
			return
		}
		cursor := p.start
		for next := p.start + p.nEach; next <= p.end; next += p.nEach {
			if !yield(Interval{low: next - p.nEach, high: next - 1}) {
				return
			}
			cursor = next
		}
		yield(Interval{low: cursor, high: p.end})
	}
}

// Intervals collects All into a slice.
func (p Plan) Intervals() []Interval {
	out := make([]Interval, 0, p.Len())
	for iv := range p.All() {
		out = append(out, iv)
	}
	return out
}
