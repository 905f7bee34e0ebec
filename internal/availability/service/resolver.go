package service

import (
	"cmp"
	"context"
	"fmt"
	availabilityerrors "medsched/internal/availability/errors"
	"medsched/pkg/interval"
	"medsched/pkg/model"
	"medsched/pkg/recurrence"
	"medsched/pkg/timezone"
	"slices"
	"time"
)

// ScheduleSource reads the schedules that may apply to a date range.
type ScheduleSource interface {
	FindActiveCovering(ctx context.Context, practitionerID string, from, to model.Date) ([]*model.Schedule, error)
}

// ExceptionSource returns active exceptions clipped to [start, end).
type ExceptionSource interface {
	Query(ctx context.Context, practitionerID, companyID string, start, end time.Time) (interval.Set, error)
}

type PractitionerSource interface {
	GetByID(ctx context.Context, id string) (*model.Practitioner, error)
	ResolveLocation(p *model.Practitioner) (*time.Location, error)
}

type segment struct {
	schedule *model.Schedule
	from, to time.Time
}

// resolver computes availability for one practitioner whose zone is known.
type resolver struct {
	schedules  ScheduleSource
	exceptions ExceptionSource
	padding    time.Duration
}

// resolve returns the bookable intervals inside [start, end). Practitioner
// local dates are expanded by the padding on both sides so occurrences that
// cross midnight in UTC are not lost before clipping.
func (r *resolver) resolve(ctx context.Context, p *model.Practitioner, loc *time.Location, start, end time.Time) (*model.AvailabilitySet, error) {
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return nil, availabilityerrors.ErrInvalidRange
	}

	padFrom := timezone.LocalDate(start.Add(-r.padding), loc)
	padTo := timezone.LocalDate(end.Add(r.padding), loc)

	schedules, err := r.schedules.FindActiveCovering(ctx, p.ID, model.DateOf(padFrom), model.DateOf(padTo))
	if err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}
	schedules = slices.DeleteFunc(slices.Clone(schedules), func(sc *model.Schedule) bool {
		return sc == nil || !sc.Active
	})
	slices.SortStableFunc(schedules, newestFirst)

	segments := planSegments(schedules, padFrom, padTo)

	set := &model.AvailabilitySet{
		PractitionerID: p.ID,
		Start:          start,
		End:            end,
		TimeZone:       loc.String(),
		Intervals:      interval.Set{},
	}

	firstDay := timezone.LocalDate(start, loc)
	lastDay := timezone.LocalDate(end.Add(-time.Nanosecond), loc)
	for d := firstDay; !d.After(lastDay); d = d.AddDate(0, 0, 1) {
		if winner(schedules, d) != nil {
			set.CoveredDates = append(set.CoveredDates, model.DateOf(d))
		}
	}
	if len(set.CoveredDates) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", availabilityerrors.ErrNoSchedule, firstDay.Format(model.DateLayout), lastDay.Format(model.DateLayout))
	}

	working := make(map[string][]interval.Interval)
	var companies []string
	for _, seg := range segments {
		occurrences, err := recurrence.Expand(seg.schedule.RecurrenceRules(), seg.from, seg.to, seg.schedule.Window())
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", seg.schedule.ID, err)
		}
		company := seg.schedule.CompanyID
		if _, seen := working[company]; !seen {
			companies = append(companies, company)
			working[company] = nil
		}
		for li := range occurrences {
			working[company] = append(working[company], timezone.ProjectInterval(li, loc))
		}
		if !slices.Contains(set.ScheduleIDs, seg.schedule.ID) {
			set.ScheduleIDs = append(set.ScheduleIDs, seg.schedule.ID)
		}
	}

	for _, company := range companies {
		clipped := interval.Normalize(working[company]).Clip(start, end)
		if clipped.IsEmpty() {
			continue
		}
		blocked, err := r.exceptions.Query(ctx, p.ID, company, start, end)
		if err != nil {
			return nil, err
		}
		set.Intervals = interval.Union(set.Intervals, interval.Subtract(clipped, blocked))
	}

	return set, nil
}

// newestFirst orders schedules so the most recently established one wins a
// date: latest date_from, then latest creation, then highest id.
func newestFirst(a, b *model.Schedule) int {
	if c := b.DateFrom.Compare(a.DateFrom.Time); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func winner(ordered []*model.Schedule, day time.Time) *model.Schedule {
	for _, sc := range ordered {
		if sc.CoversDate(day) {
			return sc
		}
	}
	return nil
}

// planSegments assigns every local date in [from, to] to its winning
// schedule and merges consecutive dates won by the same schedule.
func planSegments(ordered []*model.Schedule, from, to time.Time) []segment {
	var segments []segment
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		sc := winner(ordered, d)
		if sc == nil {
			continue
		}
		if n := len(segments); n > 0 && segments[n-1].schedule == sc && segments[n-1].to.AddDate(0, 0, 1).Equal(d) {
			segments[n-1].to = d
			continue
		}
		segments = append(segments, segment{schedule: sc, from: d, to: d})
	}
	return segments
}
