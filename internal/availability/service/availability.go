package service

import (
	"context"
	"errors"
	"fmt"
	availabilityerrors "medsched/internal/availability/errors"
	"medsched/internal/availability/validator"
	"medsched/pkg/config"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/interval"
	"medsched/pkg/model"
	"medsched/pkg/recurrence"
	"medsched/pkg/timezone"
	"strings"
	"time"
)

const (
	labelLayout    = "15:04"
	maxRangeSpan   = 62 * 24 * time.Hour
	defaultPadding = 24 * time.Hour
)

type AvailabilityService interface {
	// Availability returns the bookable time of a practitioner in [start, end).
	Availability(ctx context.Context, practitionerID string, start, end time.Time) (*model.AvailabilitySet, error)
	// Validate decides whether the requested slot is bookable. Rejections
	// are decisions, not errors.
	Validate(ctx context.Context, req *model.SlotRequest) (*model.SlotDecision, error)
	// Check is Validate for callers that want a rejection as an AppError.
	Check(ctx context.Context, req *model.SlotRequest) error
}

type availabilityService struct {
	resolver      *resolver
	practitioners PractitionerSource
	validator     *validator.SlotValidator
	zones         *timezone.Loader
	cfg           *config.Config
}

func NewAvailabilityService(
	schedules ScheduleSource,
	exceptions ExceptionSource,
	practitioners PractitionerSource,
	validator *validator.SlotValidator,
	zones *timezone.Loader,
	cfg *config.Config,
) AvailabilityService {
	padding := cfg.AvailabilityPadding
	if padding < defaultPadding {
		padding = defaultPadding
	}
	return &availabilityService{
		resolver: &resolver{
			schedules:  schedules,
			exceptions: exceptions,
			padding:    padding,
		},
		practitioners: practitioners,
		validator:     validator,
		zones:         zones,
		cfg:           cfg,
	}
}

func (s *availabilityService) Availability(ctx context.Context, practitionerID string, start, end time.Time) (*model.AvailabilitySet, error) {
	if practitionerID == "" {
		return nil, apperrors.InvalidInput("Practitioner ID cannot be empty")
	}
	if !start.Before(end) {
		return nil, apperrors.InvalidInput("start must be before end")
	}
	if end.Sub(start) > maxRangeSpan {
		return nil, apperrors.InvalidInput(fmt.Sprintf("range must not exceed %d days", int(maxRangeSpan.Hours()/24)))
	}

	p, loc, err := s.practitioner(ctx, practitionerID)
	if err != nil {
		return nil, err
	}

	set, err := s.resolver.resolve(ctx, p, loc, start, end)
	if err != nil {
		return nil, s.resolveError(p, loc, start, err)
	}

	s.cfg.Log.Debug("Availability resolved",
		"practitioner_id", practitionerID,
		"start", set.Start,
		"end", set.End,
		"schedules", set.ScheduleIDs,
		"intervals", len(set.Intervals),
	)
	return set, nil
}

func (s *availabilityService) Validate(ctx context.Context, req *model.SlotRequest) (*model.SlotDecision, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("Slot request validation failed", map[string]any{"error": err.Error()})
	}

	p, loc, err := s.practitioner(ctx, req.PractitionerID)
	if err != nil {
		return nil, err
	}

	start := req.Start.UTC()
	end := start.Add(recurrence.HoursToDuration(req.DurationHours))
	requested := interval.New(start, end, "request")
	decision := &model.SlotDecision{Start: start, End: end}

	set, err := s.resolver.resolve(ctx, p, loc, start.Add(-s.resolver.padding), end.Add(s.resolver.padding))
	if err != nil && !errors.Is(err, availabilityerrors.ErrNoSchedule) {
		return nil, s.resolveError(p, loc, start, err)
	}
	if err != nil || !set.CoversDate(timezone.LocalDate(start, loc)) {
		decision.Code = model.RejectNoSchedule
		decision.Reason = noScheduleMessage(p, timezone.LocalDate(start, loc))
		s.cfg.Log.Warn("Slot rejected, no schedule",
			"practitioner_id", p.ID,
			"start", start,
		)
		return decision, nil
	}

	window := []interval.Interval{requested}
	if interval.Equal(interval.Intersect(set.Intervals, window), window) {
		decision.Accepted = true
		s.cfg.Log.Debug("Slot accepted", "practitioner_id", p.ID, "start", start, "end", end)
		return decision, nil
	}

	display, err := s.displayLocation(req.DisplayTimeZone)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.suggestions(ctx, p, loc, start, display)
	if err != nil {
		return nil, err
	}

	decision.Code = model.RejectSlotUnavailable
	decision.Suggestions = suggestions
	decision.Reason = unavailableMessage(p, timezone.LocalDate(start, display), suggestions)
	s.cfg.Log.Warn("Slot rejected, unavailable",
		"practitioner_id", p.ID,
		"start", start,
		"end", end,
		"suggestions", len(suggestions),
	)
	return decision, nil
}

func (s *availabilityService) Check(ctx context.Context, req *model.SlotRequest) error {
	decision, err := s.Validate(ctx, req)
	if err != nil {
		return err
	}
	switch {
	case decision.Accepted:
		return nil
	case decision.Code == model.RejectNoSchedule:
		return apperrors.NoSchedule(decision.Reason)
	default:
		return apperrors.SlotUnavailable(decision.Reason, decision.Suggestions)
	}
}

// suggestions lists the availability of the requested day as seen in the
// display zone.
func (s *availabilityService) suggestions(ctx context.Context, p *model.Practitioner, loc *time.Location, start time.Time, display *time.Location) ([]model.Suggestion, error) {
	day := timezone.LocalDate(start, display)
	dayStart := timezone.Localize(day, display)
	dayEnd := timezone.Localize(day.AddDate(0, 0, 1), display)

	set, err := s.resolver.resolve(ctx, p, loc, dayStart, dayEnd)
	if errors.Is(err, availabilityerrors.ErrNoSchedule) {
		return []model.Suggestion{}, nil
	}
	if err != nil {
		return nil, s.resolveError(p, loc, start, err)
	}

	out := make([]model.Suggestion, 0, len(set.Intervals))
	for _, iv := range set.Intervals {
		from, to := iv.Start.In(display), iv.End.In(display)
		out = append(out, model.Suggestion{
			Start: from,
			End:   to,
			Label: suggestionLabel(from, to),
		})
	}
	return out, nil
}

// suggestionLabel renders an interval ending at the next local midnight
// as ending at 24:00.
func suggestionLabel(from, to time.Time) string {
	end := to.Format(labelLayout)
	if end == "00:00" && to.After(from) {
		end = "24:00"
	}
	return from.Format(labelLayout) + "–" + end
}

func (s *availabilityService) practitioner(ctx context.Context, id string) (*model.Practitioner, *time.Location, error) {
	p, err := s.practitioners.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	loc, err := s.practitioners.ResolveLocation(p)
	if err != nil {
		return nil, nil, err
	}
	return p, loc, nil
}

// displayLocation picks the zone suggestions are rendered in: the request's,
// then the configured default, then UTC.
func (s *availabilityService) displayLocation(name string) (*time.Location, error) {
	if name == "" {
		name = s.cfg.DefaultDisplayTimeZone
	}
	if name == "" {
		return time.UTC, nil
	}
	loc, err := s.zones.Load(name)
	if err != nil {
		return nil, apperrors.InvalidInput("Unknown display time zone: " + name)
	}
	return loc, nil
}

func (s *availabilityService) resolveError(p *model.Practitioner, loc *time.Location, start time.Time, err error) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, availabilityerrors.ErrNoSchedule):
		s.cfg.Log.Warn("No schedule defined", "practitioner_id", p.ID, "error", err)
		return apperrors.NoSchedule(noScheduleMessage(p, timezone.LocalDate(start, loc)))
	case errors.Is(err, availabilityerrors.ErrInvalidRange):
		return apperrors.InvalidInput("start must be before end")
	case errors.Is(err, recurrence.ErrInvalidDayOfWeek),
		errors.Is(err, recurrence.ErrInvalidHourRange),
		errors.Is(err, recurrence.ErrInvalidEffective),
		errors.Is(err, recurrence.ErrInvalidDateRange),
		errors.Is(err, recurrence.ErrInvalidScheduleEnd):
		s.cfg.Log.Error("Stored schedule has invalid rules", "practitioner_id", p.ID, "error", err)
		return apperrors.Configuration("A stored schedule has invalid attendance rules", err)
	default:
		s.cfg.Log.Error("Failed to resolve availability", "practitioner_id", p.ID, "error", err)
		return apperrors.Internal("Failed to resolve availability", err)
	}
}

func noScheduleMessage(p *model.Practitioner, day time.Time) string {
	return fmt.Sprintf("Dr. %s does not have an active schedule covering %s. Please define a schedule first.",
		p.Name, day.Format(model.DateLayout))
}

func unavailableMessage(p *model.Practitioner, day time.Time, suggestions []model.Suggestion) string {
	if len(suggestions) == 0 {
		return fmt.Sprintf("There are no available slots for Dr. %s on %s.", p.Name, day.Format(model.DateLayout))
	}
	labels := make([]string, 0, len(suggestions))
	for _, sg := range suggestions {
		labels = append(labels, sg.Label)
	}
	return fmt.Sprintf("The selected time for Dr. %s is not available. Available slots on %s: %s.",
		p.Name, day.Format(model.DateLayout), strings.Join(labels, ", "))
}
