package sfz

import "cmp"

// Range is an inclusive-start interval over note numbers, normalized
// controller values, BPM and the like. Contains treats the end as
// exclusive; ContainsWithEnd includes it.
type Range[T cmp.Ordered] struct {
	Start T
	End   T
}

func NewRange[T cmp.Ordered](start, end T) Range[T] {
	return Range[T]{Start: start, End: end}
}

// Contains reports whether v lies in [Start, End).
func (r Range[T]) Contains(v T) bool {
	return v >= r.Start && v < r.End
}

// ContainsWithEnd reports whether v lies in [Start, End].
func (r Range[T]) ContainsWithEnd(v T) bool {
	return v >= r.Start && v <= r.End
}

// IsValid reports whether the range is non-empty, i.e. Start <= End.
func (r Range[T]) IsValid() bool {
	return r.Start <= r.End
}
