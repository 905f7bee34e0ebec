// Package timezone places wall-clock intervals into IANA time zones.
//
// Wall-clock values are time.Time values in time.UTC whose fields are read
// as local values. Projection policy, stable for identical input:
//
//   - a wall time inside a spring-forward gap maps to the transition instant;
//   - a wall time inside a fall-back overlap has two candidates, and the pair
//     of start/end candidates that stays inside one zone period wins;
//   - when no pair stays inside one period the earliest start and latest end
//     are used, so the interval spans the transition.
package timezone

import (
	"errors"
	"fmt"
	"medsched/pkg/interval"
	"medsched/pkg/recurrence"
	"slices"
	"sync"
	"time"
	_ "time/tzdata"
)

var ErrUnknownZone = errors.New("unknown time zone")

// Loader resolves zone identifiers with a fallback chain: the requested
// name, then the configured default, then UTC. An identifier that is set but
// unknown is an error and never falls back.
type Loader struct {
	fallback string
	cache    sync.Map
}

func NewLoader(fallback string) *Loader {
	return &Loader{fallback: fallback}
}

func (l *Loader) Load(name string) (*time.Location, error) {
	if name == "" {
		name = l.fallback
	}
	if name == "" || name == "UTC" {
		return time.UTC, nil
	}
	if cached, ok := l.cache.Load(name); ok {
		return cached.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, name)
	}
	l.cache.Store(name, loc)
	return loc, nil
}

// Wall returns the wall-clock reading of instant t in loc.
func Wall(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), time.UTC)
}

// LocalDate returns the calendar date of instant t in loc.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	return recurrence.DateOf(t.In(loc))
}

// Candidates lists, ascending, every UTC instant whose reading in loc is
// wall. It is empty for a wall time skipped by a transition and has two
// members for a repeated one.
func Candidates(wall time.Time, loc *time.Location) []time.Time {
	naive := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), time.UTC)

	var out []time.Time
	for _, instant := range []time.Time{naive.Add(-24 * time.Hour), naive, naive.Add(24 * time.Hour)} {
		_, offset := instant.In(loc).Zone()
		u := naive.Add(-time.Duration(offset) * time.Second)
		if _, actual := u.In(loc).Zone(); actual != offset {
			continue
		}
		if !slices.ContainsFunc(out, u.Equal) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// Localize resolves a single wall time: the earliest candidate, or the
// transition instant when wall falls in a gap.
func Localize(wall time.Time, loc *time.Location) time.Time {
	return resolve(wall, loc)[0]
}

func resolve(wall time.Time, loc *time.Location) []time.Time {
	if c := Candidates(wall, loc); len(c) > 0 {
		return c
	}
	naive := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), time.UTC)
	_, before := naive.Add(-24 * time.Hour).In(loc).Zone()
	start, _ := naive.Add(-time.Duration(before) * time.Second).In(loc).ZoneBounds()
	return []time.Time{start.UTC()}
}

// Project converts the wall-clock interval [wallStart, wallEnd) into UTC.
func Project(wallStart, wallEnd time.Time, loc *time.Location) (time.Time, time.Time) {
	starts, ends := resolve(wallStart, loc), resolve(wallEnd, loc)
	for _, s := range starts {
		for _, e := range ends {
			if s.Before(e) && samePeriod(s, e, loc) {
				return s.UTC(), e.UTC()
			}
		}
	}
	return starts[0].UTC(), ends[len(ends)-1].UTC()
}

// ProjectInterval projects an expanded rule occurrence into an interval
// tagged with the occurrence's source.
func ProjectInterval(li recurrence.LocalInterval, loc *time.Location) interval.Interval {
	s, e := Project(li.Start, li.End, loc)
	return interval.New(s, e, li.Source)
}

func samePeriod(start, end time.Time, loc *time.Location) bool {
	a, _ := start.In(loc).ZoneBounds()
	b, _ := end.Add(-time.Nanosecond).In(loc).ZoneBounds()
	return a.Equal(b)
}
