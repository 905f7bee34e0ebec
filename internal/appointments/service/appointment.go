package service

import (
	"context"
	"errors"
	"fmt"
	appointmenterrors "medsched/internal/appointments/errors"
	"medsched/internal/appointments/repository"
	"medsched/internal/appointments/validator"
	calendarsync "medsched/internal/calendarsync/service"
	lockerrors "medsched/internal/locks/errors"
	"medsched/internal/locks/service"
	"medsched/pkg/config"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/model"
	"medsched/pkg/recurrence"
	"medsched/pkg/sanitizer"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// SlotChecker is the availability gate. A rejection is returned as a
// NO_SCHEDULE_DEFINED or SLOT_UNAVAILABLE AppError.
type SlotChecker interface {
	Check(ctx context.Context, req *model.SlotRequest) error
}

type PractitionerLookup interface {
	GetByID(ctx context.Context, id string) (*model.Practitioner, error)
}

type AppointmentService interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id string) (*model.Appointment, error)
	ListByPractitioner(ctx context.Context, practitionerID string, start, end *time.Time, limit int, offset int64) ([]*model.Appointment, int64, error)
	Reschedule(ctx context.Context, id string, change *model.AppointmentReschedule) (*model.Appointment, error)
	Confirm(ctx context.Context, id string) (*model.Appointment, error)
	MarkDone(ctx context.Context, id string) (*model.Appointment, error)
	Cancel(ctx context.Context, id string) (*model.Appointment, error)
	ResetToDraft(ctx context.Context, id string) (*model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

// transitions lists the states each target state may be entered from.
var transitions = map[string][]string{
	model.AppointmentConfirmed: {model.AppointmentDraft},
	model.AppointmentDone:      {model.AppointmentConfirmed},
	model.AppointmentCancelled: {model.AppointmentDraft, model.AppointmentConfirmed},
	model.AppointmentDraft:     {model.AppointmentConfirmed, model.AppointmentCancelled},
}

type appointmentService struct {
	repo          repository.AppointmentRepository
	validator     *validator.AppointmentValidator
	locker        service.Locker
	slots         SlotChecker
	practitioners PractitionerLookup
	publisher     calendarsync.Publisher
	cfg           *config.Config
}

func NewAppointmentService(
	repo repository.AppointmentRepository,
	validator *validator.AppointmentValidator,
	locker service.Locker,
	slots SlotChecker,
	practitioners PractitionerLookup,
	publisher calendarsync.Publisher,
	cfg *config.Config,
) AppointmentService {
	return &appointmentService{
		repo:          repo,
		validator:     validator,
		locker:        locker,
		slots:         slots,
		practitioners: practitioners,
		publisher:     publisher,
		cfg:           cfg,
	}
}

func (s *appointmentService) Create(ctx context.Context, appt *model.Appointment) error {
	s.sanitize(appt)
	if appt.State == "" {
		appt.State = model.AppointmentDraft
	}
	if appt.CompanyID == "" {
		appt.CompanyID = s.cfg.DefaultCompanyID
	}
	if err := s.validate(appt); err != nil {
		return err
	}

	practitioner, err := s.practitioners.GetByID(ctx, appt.PractitionerID)
	if err != nil {
		return err
	}
	if err := s.checkSlot(ctx, appt); err != nil {
		return err
	}

	err = s.withSlotGuard(ctx, appt, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Create(sessCtx, appt); err != nil {
			return apperrors.Internal("Failed to create appointment", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create appointment", "practitioner_id", appt.PractitionerID, "error", err)
		return err
	}

	s.cfg.Log.Info("Appointment created",
		"id", appt.ID,
		"practitioner_id", appt.PractitionerID,
		"patient_id", appt.PatientID,
		"start", appt.Start,
		"end", appt.End,
	)
	s.publish(ctx, appt, practitioner)
	return nil
}

func (s *appointmentService) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Appointment ID cannot be empty")
	}
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return appt, nil
}

func (s *appointmentService) ListByPractitioner(ctx context.Context, practitionerID string, start, end *time.Time, limit int, offset int64) ([]*model.Appointment, int64, error) {
	if practitionerID == "" {
		return nil, 0, apperrors.InvalidInput("Practitioner ID cannot be empty")
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, 0, apperrors.InvalidInput("start must be before end")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		wg           sync.WaitGroup
		count        int64
		appointments []*model.Appointment
		errCount     error
		errFind      error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByPractitioner(ctx, practitionerID, start, end)
	}()
	go func() {
		defer wg.Done()
		appointments, errFind = s.repo.FindByPractitioner(ctx, practitionerID, start, end, limit, offset)
	}()
	wg.Wait()

	if err := errors.Join(errCount, errFind); err != nil {
		s.cfg.Log.Error("Failed to list appointments", "practitioner_id", practitionerID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve appointments", err)
	}

	s.cfg.Log.Debug("Appointments listed",
		"practitioner_id", practitionerID,
		"count", len(appointments),
		"total_count", count,
	)
	return appointments, count, nil
}

func (s *appointmentService) Reschedule(ctx context.Context, id string, change *model.AppointmentReschedule) (*model.Appointment, error) {
	if err := s.validator.ValidateReschedule(change); err != nil {
		s.cfg.Log.Warn("Appointment reschedule validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid reschedule input", map[string]any{"error": err.Error()})
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Live() {
		return nil, s.transitionError(existing, "reschedule")
	}

	merged := *existing
	if change.PractitionerID != nil {
		merged.PractitionerID = *change.PractitionerID
	}
	if change.Start != nil {
		merged.Start = *change.Start
	}
	if change.DurationHours != nil {
		merged.DurationHours = *change.DurationHours
	}
	if change.Notes != nil {
		merged.Notes = *change.Notes
	}
	if change.DisplayTimeZone != nil {
		merged.DisplayTimeZone = *change.DisplayTimeZone
	}
	s.sanitize(&merged)
	if err := s.validate(&merged); err != nil {
		return nil, err
	}

	practitioner, err := s.practitioners.GetByID(ctx, merged.PractitionerID)
	if err != nil {
		return nil, err
	}

	slotChanged := merged.PractitionerID != existing.PractitionerID ||
		!merged.Start.Equal(existing.Start) ||
		merged.DurationHours != existing.DurationHours

	store := func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Update(sessCtx, &merged); err != nil {
			return s.lookupError(id, err)
		}
		return nil
	}
	if slotChanged {
		if err := s.checkSlot(ctx, &merged); err != nil {
			return nil, err
		}
		err = s.withSlotGuard(ctx, &merged, store)
	} else {
		err = s.repo.ExecuteTransaction(ctx, store)
	}
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Appointment rescheduled",
		"id", id,
		"practitioner_id", merged.PractitionerID,
		"start", merged.Start,
		"end", merged.End,
		"slot_changed", slotChanged,
	)
	s.publish(ctx, &merged, practitioner)
	return &merged, nil
}

func (s *appointmentService) Confirm(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentConfirmed)
}

func (s *appointmentService) MarkDone(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentDone)
}

func (s *appointmentService) Cancel(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentCancelled)
}

func (s *appointmentService) ResetToDraft(ctx context.Context, id string) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentDraft)
}

func (s *appointmentService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Appointment ID cannot be empty")
	}

	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Delete(sessCtx, id); err != nil {
			return s.lookupError(id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Appointment deleted", "id", id)
	s.emit(ctx, id, calendarsync.DeleteEvent(model.CalendarSourceAppointment, id))
	return nil
}

// transition moves the appointment into target. Entering a live state
// re-validates the slot against availability and other appointments.
func (s *appointmentService) transition(ctx context.Context, id, target string) (*model.Appointment, error) {
	appt, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(transitions[target], appt.State) {
		return nil, s.transitionError(appt, target)
	}

	practitioner, err := s.practitioners.GetByID(ctx, appt.PractitionerID)
	if err != nil {
		return nil, err
	}

	from := appt.State
	appt.State = target
	store := func(sessCtx mongo.SessionContext) error {
		if err := s.repo.SetState(sessCtx, id, target); err != nil {
			return s.lookupError(id, err)
		}
		return nil
	}

	if appt.NeedsAvailabilityCheck() {
		if err := s.checkSlot(ctx, appt); err != nil {
			return nil, err
		}
	}
	if appt.Live() {
		err = s.withSlotGuard(ctx, appt, store)
	} else {
		err = s.repo.ExecuteTransaction(ctx, store)
	}
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Appointment state changed", "id", id, "from", from, "to", target)
	s.publish(ctx, appt, practitioner)
	return appt, nil
}

// withSlotGuard serializes writers for the practitioner and runs store in a
// transaction once no other live appointment overlaps appt.
func (s *appointmentService) withSlotGuard(ctx context.Context, appt *model.Appointment, store func(mongo.SessionContext) error) error {
	key := service.Key("appointment", appt.PractitionerID)
	token, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, lockerrors.ErrLockHeld) {
			return apperrors.Conflict("This time slot is currently being booked by another request. Please try again.")
		}
		return apperrors.Internal("Failed to acquire appointment lock", err)
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.cfg.Log.Warn("Failed to release appointment lock", "key", key, "error", err)
		}
	}()

	return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindLiveOverlapping(sessCtx, appt.PractitionerID, appt.Start, appt.End, appt.ID)
		if err != nil {
			return apperrors.Internal("Failed to check existing appointments", err)
		}
		if len(existing) > 0 {
			other := existing[0]
			s.cfg.Log.Warn("Appointment overlaps",
				"practitioner_id", appt.PractitionerID,
				"start", appt.Start,
				"end", appt.End,
				"conflicting_id", other.ID,
			)
			return apperrors.Conflict(fmt.Sprintf(
				"Appointment time overlaps with existing appointment (%s - %s)",
				other.Start.Format(time.RFC3339),
				other.End.Format(time.RFC3339),
			)).WithDetails(map[string]any{"conflicting_id": other.ID})
		}
		return store(sessCtx)
	})
}

func (s *appointmentService) checkSlot(ctx context.Context, appt *model.Appointment) error {
	err := s.slots.Check(ctx, &model.SlotRequest{
		PractitionerID:  appt.PractitionerID,
		Start:           appt.Start,
		DurationHours:   appt.DurationHours,
		DisplayTimeZone: appt.DisplayTimeZone,
	})
	if err != nil {
		s.cfg.Log.Warn("Appointment slot rejected",
			"practitioner_id", appt.PractitionerID,
			"start", appt.Start,
			"error", err,
		)
	}
	return err
}

func (s *appointmentService) sanitize(appt *model.Appointment) {
	appt.PractitionerID = sanitizer.TrimString(appt.PractitionerID)
	appt.PatientID = sanitizer.TrimString(appt.PatientID)
	appt.CompanyID = sanitizer.TrimString(appt.CompanyID)
	appt.Notes = sanitizer.NormalizeText(appt.Notes)
	appt.DisplayTimeZone = sanitizer.NormalizeTimeZone(appt.DisplayTimeZone)
	appt.Start = appt.Start.UTC()
	appt.End = appt.Start.Add(recurrence.HoursToDuration(appt.DurationHours))
}

func (s *appointmentService) validate(appt *model.Appointment) error {
	if err := s.validator.Validate(appt); err != nil {
		s.cfg.Log.Warn("Appointment validation failed", "practitioner_id", appt.PractitionerID, "error", err)
		return apperrors.Validation("Appointment validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *appointmentService) transitionError(appt *model.Appointment, target string) error {
	s.cfg.Log.Warn("Appointment transition rejected", "id", appt.ID, "state", appt.State, "target", target)
	return apperrors.Conflict(fmt.Sprintf("Cannot %s an appointment in state %s", verb(target), appt.State)).
		WithDetails(map[string]any{"state": appt.State, "error": appointmenterrors.ErrInvalidTransition.Error()})
}

func verb(target string) string {
	switch target {
	case model.AppointmentConfirmed:
		return "confirm"
	case model.AppointmentDone:
		return "complete"
	case model.AppointmentCancelled:
		return "cancel"
	case model.AppointmentDraft:
		return "reset"
	default:
		return target
	}
}

func (s *appointmentService) lookupError(id string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, appointmenterrors.ErrNotFound):
		return apperrors.NotFoundWithID("Appointment", id)
	case errors.Is(err, appointmenterrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid appointment ID format")
	default:
		s.cfg.Log.Error("Appointment repository failure", "id", id, "error", err)
		return apperrors.Internal("Failed to access appointment", err)
	}
}

// publish mirrors the appointment into the calendar. Cancelled appointments
// leave the calendar; every other state keeps an entry.
func (s *appointmentService) publish(ctx context.Context, appt *model.Appointment, practitioner *model.Practitioner) {
	var event *model.CalendarEvent
	if appt.State == model.AppointmentCancelled || !appt.Start.Before(appt.End) {
		event = calendarsync.DeleteEvent(model.CalendarSourceAppointment, appt.ID)
	} else {
		title := fmt.Sprintf("Appointment: %s with Dr. %s", appt.PatientID, practitioner.Name)
		event = calendarsync.UpsertEvent(model.CalendarSourceAppointment, appt.ID, title, appt.Start, appt.End,
			[]string{appt.PatientID, appt.PractitionerID}, model.CalendarPrivacyPrivate)
	}
	s.emit(ctx, appt.ID, event)
}

func (s *appointmentService) emit(ctx context.Context, id string, event *model.CalendarEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Calendar sync for appointment failed", "id", id, "action", event.Action, "error", err)
	}
}
