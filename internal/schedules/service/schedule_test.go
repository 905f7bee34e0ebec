package service

import (
	"context"
	"errors"
	"fmt"
	scheduleerrors "medsched/internal/schedules/errors"
	"medsched/internal/schedules/validator"
	"medsched/pkg/config"
	mongotx "medsched/pkg/db/mongo"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testPractitionerID = "507f1f77bcf86cd799439011"
	testScheduleID     = "507f1f77bcf86cd799439022"
)

type mockScheduleRepository struct {
	createFunc             func(ctx context.Context, sc *model.Schedule) error
	findByIDFunc           func(ctx context.Context, id string) (*model.Schedule, error)
	findByStartFunc        func(ctx context.Context, practitionerID, companyID string, dateFrom model.Date) (*model.Schedule, error)
	findByPractitionerFunc func(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, error)
	countFunc              func(ctx context.Context, practitionerID string) (int64, error)
	updateRulesFunc        func(ctx context.Context, id string, rules []model.AttendanceRule) error
	setActiveFunc          func(ctx context.Context, id string, active bool) error
	deleteFunc             func(ctx context.Context, id string) error
}

func (m *mockScheduleRepository) Create(ctx context.Context, sc *model.Schedule) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, sc)
	}
	sc.ID = testScheduleID
	return nil
}

func (m *mockScheduleRepository) FindByID(ctx context.Context, id string) (*model.Schedule, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrNotFound, id)
}

func (m *mockScheduleRepository) FindByStart(ctx context.Context, practitionerID, companyID string, dateFrom model.Date) (*model.Schedule, error) {
	if m.findByStartFunc != nil {
		return m.findByStartFunc(ctx, practitionerID, companyID, dateFrom)
	}
	return nil, nil
}

func (m *mockScheduleRepository) FindByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, error) {
	if m.findByPractitionerFunc != nil {
		return m.findByPractitionerFunc(ctx, practitionerID, limit, offset)
	}
	return nil, nil
}

func (m *mockScheduleRepository) CountByPractitioner(ctx context.Context, practitionerID string) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, practitionerID)
	}
	return 0, nil
}

func (m *mockScheduleRepository) FindActiveCovering(context.Context, string, model.Date, model.Date) ([]*model.Schedule, error) {
	return nil, nil
}

func (m *mockScheduleRepository) UpdateRules(ctx context.Context, id string, rules []model.AttendanceRule) error {
	if m.updateRulesFunc != nil {
		return m.updateRulesFunc(ctx, id, rules)
	}
	return nil
}

func (m *mockScheduleRepository) SetActive(ctx context.Context, id string, active bool) error {
	if m.setActiveFunc != nil {
		return m.setActiveFunc(ctx, id, active)
	}
	return nil
}

func (m *mockScheduleRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockScheduleRepository) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockPractitionerLookup struct {
	getByIDFunc func(ctx context.Context, id string) (*model.Practitioner, error)
}

func (m *mockPractitionerLookup) GetByID(ctx context.Context, id string) (*model.Practitioner, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &model.Practitioner{ID: id, Name: "Gregory House", TimeZone: "Europe/Brussels"}, nil
}

func newTestService(repo *mockScheduleRepository, practitioners *mockPractitionerLookup) ScheduleService {
	log := logger.Discard()
	cfg := &config.Config{Log: log, DefaultCompanyID: "clinic", ReadTimeout: time.Second}
	if practitioners == nil {
		practitioners = &mockPractitionerLookup{}
	}
	return NewScheduleService(repo, validator.NewScheduleValidator(log), practitioners, cfg)
}

func weekdayRules() []model.AttendanceRule {
	var rules []model.AttendanceRule
	for day := 0; day < 5; day++ {
		rules = append(rules,
			model.AttendanceRule{DayOfWeek: day, HourFrom: 9, HourTo: 12},
			model.AttendanceRule{DayOfWeek: day, HourFrom: 14, HourTo: 17},
		)
	}
	return rules
}

func validSchedule() *model.Schedule {
	return &model.Schedule{
		PractitionerID: testPractitionerID,
		DateFrom:       model.NewDate(2024, time.March, 1),
		Rules:          weekdayRules(),
		Active:         true,
	}
}

func TestScheduleService_Create(t *testing.T) {
	svc := newTestService(&mockScheduleRepository{}, nil)

	sc := validSchedule()
	if err := svc.Create(context.Background(), sc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sc.ID != testScheduleID {
		t.Errorf("ID = %q", sc.ID)
	}
	if sc.CompanyID != "clinic" {
		t.Errorf("CompanyID = %q, want default company", sc.CompanyID)
	}
	if sc.Name != "Schedule for Gregory House from 2024-03-01" {
		t.Errorf("Name = %q", sc.Name)
	}
}

func TestScheduleService_CreateValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(sc *model.Schedule)
		wantCode string
	}{
		{
			name:     "missing practitioner",
			mutate:   func(sc *model.Schedule) { sc.PractitionerID = "" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "missing start date",
			mutate:   func(sc *model.Schedule) { sc.DateFrom = model.Date{} },
			wantCode: apperrors.CodeValidation,
		},
		{
			name: "end before start",
			mutate: func(sc *model.Schedule) {
				to := model.NewDate(2024, time.February, 1)
				sc.DateTo = &to
			},
			wantCode: apperrors.CodeInvalidRuleDefinition,
		},
		{
			name:     "day of week out of range",
			mutate:   func(sc *model.Schedule) { sc.Rules[0].DayOfWeek = 7 },
			wantCode: apperrors.CodeInvalidRuleDefinition,
		},
		{
			name:     "inverted hours",
			mutate:   func(sc *model.Schedule) { sc.Rules[0].HourFrom, sc.Rules[0].HourTo = 12, 9 },
			wantCode: apperrors.CodeInvalidRuleDefinition,
		},
		{
			name:     "hour beyond midnight",
			mutate:   func(sc *model.Schedule) { sc.Rules[0].HourTo = 25 },
			wantCode: apperrors.CodeInvalidRuleDefinition,
		},
		{
			name: "effective range inverted",
			mutate: func(sc *model.Schedule) {
				from := model.NewDate(2024, time.May, 1)
				to := model.NewDate(2024, time.April, 1)
				sc.Rules[0].EffectiveFrom = &from
				sc.Rules[0].EffectiveTo = &to
			},
			wantCode: apperrors.CodeInvalidRuleDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created bool
			repo := &mockScheduleRepository{createFunc: func(context.Context, *model.Schedule) error {
				created = true
				return nil
			}}
			sc := validSchedule()
			tt.mutate(sc)

			err := newTestService(repo, nil).Create(context.Background(), sc)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if created {
				t.Error("invalid schedule must not be stored")
			}
		})
	}
}

func TestScheduleService_CreateWithoutRules(t *testing.T) {
	sc := validSchedule()
	sc.Rules = nil
	if err := newTestService(&mockScheduleRepository{}, nil).Create(context.Background(), sc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sc.Rules == nil {
		t.Error("rules should be stored as an empty list")
	}
}

func TestScheduleService_CreateConflicts(t *testing.T) {
	t.Run("existing start date", func(t *testing.T) {
		repo := &mockScheduleRepository{
			findByStartFunc: func(_ context.Context, _, _ string, d model.Date) (*model.Schedule, error) {
				return &model.Schedule{ID: "507f1f77bcf86cd799439099", DateFrom: d}, nil
			},
		}
		err := newTestService(repo, nil).Create(context.Background(), validSchedule())
		if !apperrors.HasCode(err, apperrors.CodeConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("unique index race", func(t *testing.T) {
		repo := &mockScheduleRepository{
			createFunc: func(context.Context, *model.Schedule) error {
				return fmt.Errorf("%w: 2024-03-01", scheduleerrors.ErrDuplicateStart)
			},
		}
		err := newTestService(repo, nil).Create(context.Background(), validSchedule())
		if !apperrors.HasCode(err, apperrors.CodeConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
}

func TestScheduleService_CreateUnknownPractitioner(t *testing.T) {
	lookup := &mockPractitionerLookup{getByIDFunc: func(_ context.Context, id string) (*model.Practitioner, error) {
		return nil, apperrors.NotFoundWithID("Practitioner", id)
	}}
	err := newTestService(&mockScheduleRepository{}, lookup).Create(context.Background(), validSchedule())
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestScheduleService_GetByID(t *testing.T) {
	repo := &mockScheduleRepository{findByIDFunc: func(_ context.Context, id string) (*model.Schedule, error) {
		switch id {
		case testScheduleID:
			return &model.Schedule{ID: id}, nil
		case "bad":
			return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrInvalidID, id)
		case "broken":
			return nil, errors.New("connection reset")
		}
		return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrNotFound, id)
	}}
	svc := newTestService(repo, nil)

	tests := []struct {
		id       string
		wantCode string
	}{
		{id: "", wantCode: apperrors.CodeInvalidInput},
		{id: "bad", wantCode: apperrors.CodeInvalidInput},
		{id: "broken", wantCode: apperrors.CodeInternal},
		{id: "507f1f77bcf86cd799439033", wantCode: apperrors.CodeNotFound},
		{id: testScheduleID},
	}
	for _, tt := range tests {
		sc, err := svc.GetByID(context.Background(), tt.id)
		if tt.wantCode == "" {
			if err != nil || sc.ID != tt.id {
				t.Errorf("GetByID(%q) = %+v, %v", tt.id, sc, err)
			}
			continue
		}
		if !apperrors.HasCode(err, tt.wantCode) {
			t.Errorf("GetByID(%q) error = %v, want %s", tt.id, err, tt.wantCode)
		}
	}
}

func TestScheduleService_ListByPractitioner(t *testing.T) {
	var calls atomic.Int32
	repo := &mockScheduleRepository{
		countFunc: func(context.Context, string) (int64, error) {
			calls.Add(1)
			return 3, nil
		},
		findByPractitionerFunc: func(_ context.Context, _ string, limit int, offset int64) ([]*model.Schedule, error) {
			calls.Add(1)
			if limit != 10 || offset != 0 {
				t.Errorf("limit=%d offset=%d", limit, offset)
			}
			return []*model.Schedule{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil
		},
	}
	schedules, total, err := newTestService(repo, nil).ListByPractitioner(context.Background(), testPractitionerID, 0, -5)
	if err != nil {
		t.Fatalf("ListByPractitioner() error = %v", err)
	}
	if total != 3 || len(schedules) != 3 {
		t.Errorf("got %d schedules, total %d", len(schedules), total)
	}
	if calls.Load() != 2 {
		t.Errorf("expected count and find, got %d calls", calls.Load())
	}

	repo.countFunc = func(context.Context, string) (int64, error) { return 0, errors.New("timeout") }
	if _, _, err := newTestService(repo, nil).ListByPractitioner(context.Background(), testPractitionerID, 10, 0); !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Errorf("expected internal error, got %v", err)
	}

	if _, _, err := newTestService(repo, nil).ListByPractitioner(context.Background(), "", 10, 0); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestScheduleService_UpdateRules(t *testing.T) {
	var stored []model.AttendanceRule
	repo := &mockScheduleRepository{
		updateRulesFunc: func(_ context.Context, _ string, rules []model.AttendanceRule) error {
			stored = rules
			return nil
		},
		findByIDFunc: func(_ context.Context, id string) (*model.Schedule, error) {
			return &model.Schedule{ID: id, Rules: stored}, nil
		},
	}
	svc := newTestService(repo, nil)

	rules := []model.AttendanceRule{{Name: "  morning  ", DayOfWeek: 2, HourFrom: 8.5, HourTo: 12}}
	sc, err := svc.UpdateRules(context.Background(), testScheduleID, rules)
	if err != nil {
		t.Fatalf("UpdateRules() error = %v", err)
	}
	if len(sc.Rules) != 1 || sc.Rules[0].Name != "morning" {
		t.Errorf("rules = %+v", sc.Rules)
	}

	stored = nil
	_, err = svc.UpdateRules(context.Background(), testScheduleID, []model.AttendanceRule{{DayOfWeek: -1, HourFrom: 8, HourTo: 9}})
	if !apperrors.HasCode(err, apperrors.CodeInvalidRuleDefinition) {
		t.Fatalf("expected invalid rule definition, got %v", err)
	}
	if stored != nil {
		t.Error("invalid rules must not be stored")
	}
}

func TestScheduleService_SetActiveAndDelete(t *testing.T) {
	var active *bool
	repo := &mockScheduleRepository{
		setActiveFunc: func(_ context.Context, id string, a bool) error {
			if id != testScheduleID {
				return fmt.Errorf("%w: %s", scheduleerrors.ErrNotFound, id)
			}
			active = &a
			return nil
		},
		deleteFunc: func(_ context.Context, id string) error {
			if id != testScheduleID {
				return fmt.Errorf("%w: %s", scheduleerrors.ErrNotFound, id)
			}
			return nil
		},
	}
	svc := newTestService(repo, nil)

	if err := svc.SetActive(context.Background(), testScheduleID, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if active == nil || *active {
		t.Error("schedule should be deactivated")
	}
	if err := svc.SetActive(context.Background(), "507f1f77bcf86cd799439044", true); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := svc.Delete(context.Background(), testScheduleID); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	err := svc.Delete(context.Background(), "507f1f77bcf86cd799439044")
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if id := apperrors.AsAppError(err).Details["id"]; id != "507f1f77bcf86cd799439044" {
		t.Errorf("details id = %v", id)
	}
}
