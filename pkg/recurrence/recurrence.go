// Package recurrence expands weekly attendance rules into concrete wall-clock
// intervals for a range of calendar dates.
//
// Dates and wall-clock instants are carried as time.Time values in time.UTC
// whose fields read as local values; they are not instants until a
// timezone.Projector places them in a zone.
package recurrence

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"time"

	"github.com/teambition/rrule-go"
)

var (
	ErrInvalidDayOfWeek   = errors.New("day of week must be between 0 (Monday) and 6 (Sunday)")
	ErrInvalidHourRange   = errors.New("hours must satisfy 0 <= start < end <= 24")
	ErrInvalidEffective   = errors.New("rule effective range is inverted")
	ErrInvalidDateRange   = errors.New("date range is inverted")
	ErrInvalidScheduleEnd = errors.New("schedule validity ends before it starts")
)

// weekdays maps day-of-week 0 (Monday) .. 6 (Sunday) onto rrule weekdays.
var weekdays = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

// Rule is one weekly recurring working window.
type Rule struct {
	DayOfWeek     int
	StartHour     float64
	EndHour       float64
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
	Source        string
}

// Window bounds the dates a schedule applies to. A nil To is open-ended.
type Window struct {
	From time.Time
	To   *time.Time
}

// LocalInterval is a wall-clock interval on Date.
type LocalInterval struct {
	Date   time.Time
	Start  time.Time
	End    time.Time
	Source string
}

func (r Rule) Validate() error {
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return fmt.Errorf("%w: got %d", ErrInvalidDayOfWeek, r.DayOfWeek)
	}
	if r.StartHour < 0 || r.StartHour >= 24 || r.EndHour <= 0 || r.EndHour > 24 || r.EndHour <= r.StartHour {
		return fmt.Errorf("%w: got %.2f-%.2f", ErrInvalidHourRange, r.StartHour, r.EndHour)
	}
	if r.EffectiveFrom != nil && r.EffectiveTo != nil && DateOf(*r.EffectiveTo).Before(DateOf(*r.EffectiveFrom)) {
		return ErrInvalidEffective
	}
	return nil
}

func (r Rule) applies(d time.Time) bool {
	if r.EffectiveFrom != nil && d.Before(DateOf(*r.EffectiveFrom)) {
		return false
	}
	if r.EffectiveTo != nil && d.After(DateOf(*r.EffectiveTo)) {
		return false
	}
	return true
}

// DateOf truncates t to its calendar date as read in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HoursToDuration converts fractional hours (9.5 = 09:30) to a duration
// rounded to the second.
func HoursToDuration(h float64) time.Duration {
	return time.Duration(math.Round(h*3600)) * time.Second
}

// Expand yields one LocalInterval per (date, matching rule) over the
// inclusive date range [from, to] intersected with validity. Intervals come
// out ordered by date, then start hour. The sequence is recomputed on every
// range over it.
func Expand(rules []Rule, from, to time.Time, validity Window) (iter.Seq[LocalInterval], error) {
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	if validity.To != nil && DateOf(*validity.To).Before(DateOf(validity.From)) {
		return nil, ErrInvalidScheduleEnd
	}

	from, to = DateOf(from), DateOf(to)
	if to.Before(from) {
		return nil, ErrInvalidDateRange
	}
	if vf := DateOf(validity.From); from.Before(vf) {
		from = vf
	}
	if validity.To != nil {
		if vt := DateOf(*validity.To); to.After(vt) {
			to = vt
		}
	}

	ordered := slices.Clone(rules)
	slices.SortStableFunc(ordered, func(a, b Rule) int {
		if a.StartHour < b.StartHour {
			return -1
		}
		if a.StartHour > b.StartHour {
			return 1
		}
		return 0
	})

	if len(ordered) == 0 || to.Before(from) {
		return func(func(LocalInterval) bool) {}, nil
	}

	days := make([]rrule.Weekday, 0, len(weekdays))
	for _, r := range ordered {
		if wd := weekdays[r.DayOfWeek]; !slices.Contains(days, wd) {
			days = append(days, wd)
		}
	}

	rr, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   from,
		Until:     to,
		Byweekday: days,
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence: %w", err)
	}

	return func(yield func(LocalInterval) bool) {
		for _, occurrence := range rr.Between(from, to, true) {
			d := DateOf(occurrence)
			dow := (int(d.Weekday()) + 6) % 7
			for _, r := range ordered {
				if r.DayOfWeek != dow || !r.applies(d) {
					continue
				}
				li := LocalInterval{
					Date:   d,
					Start:  d.Add(HoursToDuration(r.StartHour)),
					End:    d.Add(HoursToDuration(r.EndHour)),
					Source: r.Source,
				}
				if !yield(li) {
					return
				}
			}
		}
	}, nil
}
