// Package interval implements set algebra over half-open UTC time intervals.
//
// Every operation accepts arbitrary input (unsorted, overlapping, empty
// members) and returns a normalized Set: sorted by start, pairwise disjoint,
// with touching or overlapping members coalesced. Provenance tags ride along
// for diagnostics and never influence the result bounds.
package interval

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const sourceSeparator = ","

// Interval is the half-open range [Start, End) in UTC.
type Interval struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Source string    `json:"source,omitempty"`
}

// Set is a normalized collection of intervals.
type Set []Interval

func New(start, end time.Time, source string) Interval {
	return Interval{Start: start.UTC(), End: end.UTC(), Source: source}
}

func (i Interval) IsEmpty() bool {
	return !i.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	if i.IsEmpty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Overlaps reports whether i and o share at least one instant. Intervals that
// only touch at a boundary do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies entirely within i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}

// Normalize drops empty members, converts to UTC, sorts and coalesces.
func Normalize(in []Interval) Set {
	out := make(Set, 0, len(in))
	for _, iv := range in {
		if iv.IsEmpty() {
			continue
		}
		out = append(out, New(iv.Start, iv.End, iv.Source))
	}
	if len(out) == 0 {
		return Set{}
	}

	slices.SortStableFunc(out, func(a, b Interval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})

	merged := out[:1]
	for _, iv := range out[1:] {
		last := &merged[len(merged)-1]
		if iv.Start.After(last.End) {
			merged = append(merged, iv)
			continue
		}
		if iv.End.After(last.End) {
			last.End = iv.End
		}
		last.Source = mergeSource(last.Source, iv.Source)
	}
	return merged
}

func Union(a, b []Interval) Set {
	all := make([]Interval, 0, len(a)+len(b))
	all = append(all, a...)
	all = append(all, b...)
	return Normalize(all)
}

// Intersect keeps the instants present in both a and b. Result members carry
// the provenance of the a side.
func Intersect(a, b []Interval) Set {
	na, nb := Normalize(a), Normalize(b)
	out := Set{}
	i, j := 0, 0
	for i < len(na) && j < len(nb) {
		lo := later(na[i].Start, nb[j].Start)
		hi := earlier(na[i].End, nb[j].End)
		if lo.Before(hi) {
			out = append(out, Interval{Start: lo, End: hi, Source: na[i].Source})
		}
		if na[i].End.Before(nb[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}

// Subtract removes from a every instant covered by b.
func Subtract(a, b []Interval) Set {
	na, nb := Normalize(a), Normalize(b)
	out := Set{}
	j := 0
	for _, x := range na {
		for j < len(nb) && !nb[j].End.After(x.Start) {
			j++
		}
		cur := x.Start
		for k := j; k < len(nb) && nb[k].Start.Before(x.End); k++ {
			if nb[k].Start.After(cur) {
				out = append(out, Interval{Start: cur, End: nb[k].Start, Source: x.Source})
			}
			cur = later(cur, nb[k].End)
		}
		if cur.Before(x.End) {
			out = append(out, Interval{Start: cur, End: x.End, Source: x.Source})
		}
	}
	return out
}

// Equal compares the covered instants of a and b, ignoring provenance.
func Equal(a, b []Interval) bool {
	na, nb := Normalize(a), Normalize(b)
	return slices.EqualFunc(na, nb, func(x, y Interval) bool {
		return x.Start.Equal(y.Start) && x.End.Equal(y.End)
	})
}

// Clip restricts s to [start, end).
func (s Set) Clip(start, end time.Time) Set {
	return Intersect(s, []Interval{New(start, end, "")})
}

// Covers reports whether every instant of iv is in s.
func (s Set) Covers(iv Interval) bool {
	if iv.IsEmpty() {
		return true
	}
	return Equal(Intersect(Normalize([]Interval{iv}), s), []Interval{iv})
}

func (s Set) TotalDuration() time.Duration {
	var total time.Duration
	for _, iv := range s {
		total += iv.Duration()
	}
	return total
}

func (s Set) IsEmpty() bool {
	return len(s) == 0
}

func mergeSource(a, b string) string {
	if b == "" || a == b {
		return a
	}
	if a == "" {
		return b
	}
	parts := strings.Split(a, sourceSeparator)
	for _, p := range strings.Split(b, sourceSeparator) {
		if !slices.Contains(parts, p) {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, sourceSeparator)
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
