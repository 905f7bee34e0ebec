package service

import (
	"context"
	"fmt"
	appointmenterrors "medsched/internal/appointments/errors"
	"medsched/internal/appointments/validator"
	lockerrors "medsched/internal/locks/errors"
	"medsched/pkg/config"
	mongotx "medsched/pkg/db/mongo"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"sort"
	"sync"
	"testing"
	"time"
)

const (
	testPractitionerID  = "507f1f77bcf86cd799439011"
	otherPractitionerID = "507f1f77bcf86cd799439012"
)

type memoryAppointmentRepository struct {
	mu     sync.Mutex
	byID   map[string]*model.Appointment
	nextID int
}

func newMemoryRepo() *memoryAppointmentRepository {
	return &memoryAppointmentRepository{byID: map[string]*model.Appointment{}}
}

func (r *memoryAppointmentRepository) Create(_ context.Context, appt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	appt.ID = fmt.Sprintf("66a0000000000000000000%02d", r.nextID)
	cp := *appt
	r.byID[appt.ID] = &cp
	return nil
}

func (r *memoryAppointmentRepository) FindByID(_ context.Context, id string) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", appointmenterrors.ErrNotFound, id)
	}
	cp := *appt
	return &cp, nil
}

func (r *memoryAppointmentRepository) matching(practitionerID string, start, end *time.Time) []*model.Appointment {
	var out []*model.Appointment
	for _, appt := range r.byID {
		if appt.PractitionerID != practitionerID {
			continue
		}
		if end != nil && !appt.Start.Before(*end) {
			continue
		}
		if start != nil && !appt.End.After(*start) {
			continue
		}
		cp := *appt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (r *memoryAppointmentRepository) FindByPractitioner(_ context.Context, practitionerID string, start, end *time.Time, limit int, offset int64) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.matching(practitionerID, start, end)
	if int(offset) >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	return out[:min(limit, len(out))], nil
}

func (r *memoryAppointmentRepository) CountByPractitioner(_ context.Context, practitionerID string, start, end *time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(practitionerID, start, end))), nil
}

func (r *memoryAppointmentRepository) FindLiveOverlapping(_ context.Context, practitionerID string, start, end time.Time, excludeID string) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, appt := range r.matching(practitionerID, &start, &end) {
		if appt.Live() && appt.ID != excludeID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (r *memoryAppointmentRepository) Update(_ context.Context, appt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[appt.ID]; !ok {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrNotFound, appt.ID)
	}
	cp := *appt
	r.byID[appt.ID] = &cp
	return nil
}

func (r *memoryAppointmentRepository) SetState(_ context.Context, id, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrNotFound, id)
	}
	appt.State = state
	return nil
}

func (r *memoryAppointmentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("%w: %s", appointmenterrors.ErrNotFound, id)
	}
	delete(r.byID, id)
	return nil
}

func (r *memoryAppointmentRepository) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockLocker struct {
	mu   sync.Mutex
	held map[string]bool
	busy bool
}

func (l *mockLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy || l.held[key] {
		return "", fmt.Errorf("%w: %s", lockerrors.ErrLockHeld, key)
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	l.held[key] = true
	return "token", nil
}

func (l *mockLocker) Release(_ context.Context, key, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// workingHours accepts slots between 09:00 and 17:00 UTC on 2024-03-04 only.
type workingHours struct {
	mu    sync.Mutex
	calls int
}

func (w *workingHours) Check(_ context.Context, req *model.SlotRequest) error {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()

	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	start := req.Start.UTC()
	end := start.Add(time.Duration(req.DurationHours * float64(time.Hour)))
	if start.Before(day) || !start.Before(day.Add(24*time.Hour)) {
		return apperrors.NoSchedule("Dr. Gregory House does not have an active schedule covering " + start.Format(model.DateLayout) + ". Please define a schedule first.")
	}
	if start.Before(day.Add(9*time.Hour)) || end.After(day.Add(17*time.Hour)) {
		return apperrors.SlotUnavailable("The selected time for Dr. Gregory House is not available.", []model.Suggestion{{Label: "09:00–17:00"}})
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.CalendarEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event *model.CalendarEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) last() *model.CalendarEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

type stubPractitioners struct{}

func (stubPractitioners) GetByID(_ context.Context, id string) (*model.Practitioner, error) {
	switch id {
	case testPractitionerID:
		return &model.Practitioner{ID: id, Name: "Gregory House"}, nil
	case otherPractitionerID:
		return &model.Practitioner{ID: id, Name: "James Wilson"}, nil
	default:
		return nil, apperrors.NotFoundWithID("Practitioner", id)
	}
}

type fixture struct {
	svc       AppointmentService
	repo      *memoryAppointmentRepository
	locker    *mockLocker
	slots     *workingHours
	publisher *recordingPublisher
}

func newFixture() *fixture {
	log := logger.Discard()
	cfg := &config.Config{Log: log, DefaultCompanyID: "clinic", LockTTL: time.Second}
	f := &fixture{
		repo:      newMemoryRepo(),
		locker:    &mockLocker{},
		slots:     &workingHours{},
		publisher: &recordingPublisher{},
	}
	f.svc = NewAppointmentService(f.repo, validator.NewAppointmentValidator(log), f.locker, f.slots, stubPractitioners{}, f.publisher, cfg)
	return f
}

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 4, hour, minute, 0, 0, time.UTC)
}

func appointment(start time.Time, hours float64) *model.Appointment {
	return &model.Appointment{
		PractitionerID: testPractitionerID,
		PatientID:      "patient-42",
		Start:          start,
		DurationHours:  hours,
	}
}

func (f *fixture) create(t *testing.T, start time.Time, hours float64) *model.Appointment {
	t.Helper()
	appt := appointment(start, hours)
	if err := f.svc.Create(context.Background(), appt); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return appt
}

func TestAppointmentService_Create(t *testing.T) {
	f := newFixture()
	appt := f.create(t, at(10, 0), 0.5)

	if appt.ID == "" || appt.State != model.AppointmentDraft || appt.CompanyID != "clinic" {
		t.Errorf("created = %+v", appt)
	}
	if !appt.End.Equal(at(10, 30)) {
		t.Errorf("end = %v", appt.End)
	}
	event := f.publisher.last()
	if event == nil || event.Action != model.CalendarActionUpsert || event.SourceID != appt.ID {
		t.Fatalf("event = %+v", event)
	}
	if event.Title != "Appointment: patient-42 with Dr. Gregory House" || event.Privacy != model.CalendarPrivacyPrivate {
		t.Errorf("event = %+v", event)
	}
	if len(event.PartnerIDs) != 2 || !event.Stop.Equal(at(10, 30)) {
		t.Errorf("event = %+v", event)
	}
	if len(f.locker.held) != 0 {
		t.Error("lock not released")
	}
}

func TestAppointmentService_CreateRejects(t *testing.T) {
	tests := []struct {
		name     string
		appt     *model.Appointment
		wantCode string
	}{
		{name: "outside working hours", appt: appointment(at(8, 0), 1), wantCode: apperrors.CodeSlotUnavailable},
		{name: "runs past closing", appt: appointment(at(16, 30), 1), wantCode: apperrors.CodeSlotUnavailable},
		{name: "no schedule that day", appt: appointment(at(10, 0).AddDate(0, 0, 1), 1), wantCode: apperrors.CodeNoSchedule},
		{name: "zero duration", appt: appointment(at(10, 0), 0), wantCode: apperrors.CodeValidation},
		{name: "missing patient", appt: &model.Appointment{PractitionerID: testPractitionerID, Start: at(10, 0), DurationHours: 1}, wantCode: apperrors.CodeValidation},
		{name: "unknown practitioner", appt: &model.Appointment{PractitionerID: "507f1f77bcf86cd799439099", PatientID: "p", Start: at(10, 0), DurationHours: 1}, wantCode: apperrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			err := f.svc.Create(context.Background(), tt.appt)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if len(f.repo.byID) != 0 || len(f.publisher.events) != 0 {
				t.Error("rejected appointment must not be persisted or published")
			}
		})
	}
}

func TestAppointmentService_SlotUnavailableCarriesSuggestions(t *testing.T) {
	f := newFixture()
	err := f.svc.Create(context.Background(), appointment(at(8, 0), 1))
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeSlotUnavailable || appErr.Details == nil {
		t.Fatalf("error = %+v", appErr)
	}
}

func TestAppointmentService_DoubleBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first := f.create(t, at(10, 0), 1)

	err := f.svc.Create(ctx, appointment(at(10, 30), 1))
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("overlap: expected conflict, got %v", err)
	}

	// touching slots do not overlap
	f.create(t, at(11, 0), 1)

	other := appointment(at(10, 0), 1)
	other.PractitionerID = otherPractitionerID
	if err := f.svc.Create(ctx, other); err != nil {
		t.Fatalf("other practitioner: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, first.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	f.create(t, at(10, 0), 1)
}

func TestAppointmentService_LockBusy(t *testing.T) {
	f := newFixture()
	f.locker.busy = true
	err := f.svc.Create(context.Background(), appointment(at(10, 0), 1))
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAppointmentService_ConcurrentCreatesForSameSlot(t *testing.T) {
	f := newFixture()
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.Create(context.Background(), appointment(at(10, 0), 1))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case !apperrors.HasCode(err, apperrors.CodeConflict):
			t.Errorf("unexpected error %v", err)
		}
	}
	if created != 1 || len(f.repo.byID) != 1 {
		t.Errorf("created = %d, stored = %d", created, len(f.repo.byID))
	}
}

func TestAppointmentService_Reschedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	appt := f.create(t, at(10, 0), 1)
	f.create(t, at(14, 0), 1)

	start := at(12, 0)
	moved, err := f.svc.Reschedule(ctx, appt.ID, &model.AppointmentReschedule{Start: &start})
	if err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if !moved.End.Equal(at(13, 0)) {
		t.Errorf("end = %v", moved.End)
	}
	stored, _ := f.repo.FindByID(ctx, appt.ID)
	if !stored.Start.Equal(at(12, 0)) {
		t.Errorf("stored start = %v", stored.Start)
	}

	// the appointment does not collide with itself
	longer := 1.5
	if _, err := f.svc.Reschedule(ctx, appt.ID, &model.AppointmentReschedule{DurationHours: &longer}); err != nil {
		t.Fatalf("extend: %v", err)
	}

	evening := at(18, 0)
	if _, err := f.svc.Reschedule(ctx, appt.ID, &model.AppointmentReschedule{Start: &evening}); !apperrors.HasCode(err, apperrors.CodeSlotUnavailable) {
		t.Errorf("evening: expected SLOT_UNAVAILABLE, got %v", err)
	}
	clash := at(13, 30)
	if _, err := f.svc.Reschedule(ctx, appt.ID, &model.AppointmentReschedule{Start: &clash}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("clash: expected conflict, got %v", err)
	}
}

func TestAppointmentService_RescheduleNotesSkipsAvailability(t *testing.T) {
	f := newFixture()
	appt := f.create(t, at(10, 0), 1)
	calls := f.slots.calls

	notes := "  bring   lab results "
	updated, err := f.svc.Reschedule(context.Background(), appt.ID, &model.AppointmentReschedule{Notes: &notes})
	if err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if f.slots.calls != calls {
		t.Error("availability must not be checked when the slot is unchanged")
	}
	if updated.Notes == notes {
		t.Errorf("notes not normalized: %q", updated.Notes)
	}
}

func TestAppointmentService_Lifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	appt := f.create(t, at(10, 0), 1)

	steps := []struct {
		name   string
		do     func(context.Context, string) (*model.Appointment, error)
		want   string
		action string
	}{
		{name: "confirm", do: f.svc.Confirm, want: model.AppointmentConfirmed, action: model.CalendarActionUpsert},
		{name: "done", do: f.svc.MarkDone, want: model.AppointmentDone, action: model.CalendarActionUpsert},
	}
	for _, step := range steps {
		got, err := step.do(ctx, appt.ID)
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got.State != step.want || f.publisher.last().Action != step.action {
			t.Errorf("%s: state = %s, event = %s", step.name, got.State, f.publisher.last().Action)
		}
	}

	if _, err := f.svc.Cancel(ctx, appt.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("cancel done: expected conflict, got %v", err)
	}
	start := at(11, 0)
	if _, err := f.svc.Reschedule(ctx, appt.ID, &model.AppointmentReschedule{Start: &start}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("reschedule done: expected conflict, got %v", err)
	}
}

func TestAppointmentService_CancelAndReset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	appt := f.create(t, at(10, 0), 1)

	cancelled, err := f.svc.Cancel(ctx, appt.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.State != model.AppointmentCancelled || f.publisher.last().Action != model.CalendarActionDelete {
		t.Errorf("cancel: state = %s, event = %+v", cancelled.State, f.publisher.last())
	}

	// the slot was taken while the appointment was cancelled
	f.create(t, at(10, 0), 1)
	if _, err := f.svc.ResetToDraft(ctx, appt.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("reset onto a taken slot: expected conflict, got %v", err)
	}
	stored, _ := f.repo.FindByID(ctx, appt.ID)
	if stored.State != model.AppointmentCancelled {
		t.Errorf("state = %s", stored.State)
	}
}

func TestAppointmentService_ResetRechecksAvailability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	appt := f.create(t, at(10, 0), 1)
	if _, err := f.svc.Cancel(ctx, appt.ID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	calls := f.slots.calls
	reset, err := f.svc.ResetToDraft(ctx, appt.ID)
	if err != nil {
		t.Fatalf("ResetToDraft() error = %v", err)
	}
	if reset.State != model.AppointmentDraft || f.slots.calls != calls+1 {
		t.Errorf("state = %s, checks = %d", reset.State, f.slots.calls-calls)
	}
	if f.publisher.last().Action != model.CalendarActionUpsert {
		t.Errorf("event = %+v", f.publisher.last())
	}
}

func TestAppointmentService_Delete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	appt := f.create(t, at(10, 0), 1)

	if err := f.svc.Delete(ctx, appt.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if event := f.publisher.last(); event.Action != model.CalendarActionDelete || event.SourceID != appt.ID {
		t.Errorf("event = %+v", event)
	}
	if err := f.svc.Delete(ctx, appt.ID); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("second delete: %v", err)
	}
	if _, err := f.svc.GetByID(ctx, ""); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("empty id: %v", err)
	}
}

func TestAppointmentService_ListByPractitioner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.create(t, at(9, 0), 1)
	f.create(t, at(11, 0), 1)
	f.create(t, at(15, 0), 1)

	from, to := at(10, 0), at(16, 0)
	appointments, total, err := f.svc.ListByPractitioner(ctx, testPractitionerID, &from, &to, 1, 0)
	if err != nil {
		t.Fatalf("ListByPractitioner() error = %v", err)
	}
	if total != 2 || len(appointments) != 1 || !appointments[0].Start.Equal(at(11, 0)) {
		t.Errorf("total = %d, appointments = %+v", total, appointments)
	}

	if _, _, err := f.svc.ListByPractitioner(ctx, testPractitionerID, &to, &from, 10, 0); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("inverted range: %v", err)
	}
}
