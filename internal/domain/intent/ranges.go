package intent

import (
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeRange builds a range in UTC, swapping inverted bounds.
func NewTimeRange(start, end time.Time) TimeRange {
	start, end = start.UTC(), end.UTC()
	if start.After(end) {
		start, end = end, start
	}
	return TimeRange{Start: start, End: end}
}

// Year returns the range covering one calendar year.
func Year(y int) TimeRange {
	return NewTimeRange(
		time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(y+1, time.January, 1, 0, 0, 0, 0, time.UTC),
	)
}

// Contains reports whether t lies in [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

func (r TimeRange) String() string {
	return r.Start.Format(dateLayout) + " to " + r.End.Format(dateLayout)
}

// DepthRange bounds depth in meters. A nil Max is unbounded below.
type DepthRange struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max,omitempty"`
}

// NewDepthRange takes absolute values, swaps inverted bounds and maps +Inf to unbounded.
func NewDepthRange(lo, hi float64) DepthRange {
	lo, hi = math.Abs(lo), math.Abs(hi)
	if lo > hi {
		lo, hi = hi, lo
	}
	if math.IsInf(hi, 1) {
		return DepthRange{Min: lo}
	}
	return DepthRange{Min: lo, Max: &hi}
}

// Below returns the unbounded range starting at lo.
func Below(lo float64) DepthRange {
	return DepthRange{Min: math.Abs(lo)}
}

// Upper returns Max or +Inf.
func (d DepthRange) Upper() float64 {
	if d.Max == nil {
		return math.Inf(1)
	}
	return *d.Max
}

// Overlaps reports whether [lo, hi] intersects the range.
func (d DepthRange) Overlaps(lo, hi float64) bool {
	return hi >= d.Min && lo <= d.Upper()
}

func (d DepthRange) String() string {
	if d.Max == nil {
		return fmt.Sprintf("%g m and deeper", d.Min)
	}
	return fmt.Sprintf("%g-%g m", d.Min, *d.Max)
}
