package timeline

// Phase names one of the three temporal segments of an object
type Phase string

// Phase constants
const (
	BeforeStart Phase = "before_start"
	Active      Phase = "active"
	AfterEnd    Phase = "after_end"
)

// Interval is an inclusive frame range. It is empty when End < Start.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the interval holds no frame
func (i Interval) Empty() bool { return i.End < i.Start }

// Contains reports whether frame lies inside
func (i Interval) Contains(frame int) bool {
	return frame >= i.Start && frame <= i.End
}

// Len is the number of frames covered
func (i Interval) Len() int {
	if i.Empty() {
		return 0
	}
	return i.End - i.Start + 1
}

// split tiles [first, last] around the active range [s, f]. Callers keep
// first <= s <= f+1 and s-1 <= f <= last.
func split(first, last, s, f int) [3]Interval {
	return [3]Interval{
		{Start: first, End: s - 1},
		{Start: s, End: f},
		{Start: f + 1, End: last},
	}
}

// Tiles reports whether the non-empty intervals cover [first, last] in
// order with no gap and no overlap
func Tiles(first, last int, intervals []Interval) bool {
	next := first
	for _, iv := range intervals {
		if iv.Empty() {
			continue
		}
		if iv.Start != next {
			return false
		}
		next = iv.End + 1
	}
	return next == last+1
}
