package service

import (
	"context"
	"errors"
	scheduleerrors "medsched/internal/schedules/errors"
	"medsched/internal/schedules/repository"
	"medsched/internal/schedules/validator"
	"medsched/pkg/config"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/model"
	"medsched/pkg/sanitizer"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
)

// PractitionerLookup is the part of the practitioner directory schedules need.
type PractitionerLookup interface {
	GetByID(ctx context.Context, id string) (*model.Practitioner, error)
}

type ScheduleService interface {
	Create(ctx context.Context, sc *model.Schedule) error
	GetByID(ctx context.Context, id string) (*model.Schedule, error)
	ListByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, int64, error)
	UpdateRules(ctx context.Context, id string, rules []model.AttendanceRule) (*model.Schedule, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

type scheduleService struct {
	repo          repository.ScheduleRepository
	validator     *validator.ScheduleValidator
	practitioners PractitionerLookup
	cfg           *config.Config
}

func NewScheduleService(
	repo repository.ScheduleRepository,
	validator *validator.ScheduleValidator,
	practitioners PractitionerLookup,
	cfg *config.Config,
) ScheduleService {
	return &scheduleService{
		repo:          repo,
		validator:     validator,
		practitioners: practitioners,
		cfg:           cfg,
	}
}

func (s *scheduleService) Create(ctx context.Context, sc *model.Schedule) error {
	s.sanitize(sc)
	if sc.CompanyID == "" {
		sc.CompanyID = s.cfg.DefaultCompanyID
	}
	// New schedules start active; Deactivate retires them.
	sc.Active = true

	if err := s.validator.Validate(sc); err != nil {
		s.cfg.Log.Warn("Schedule validation failed",
			"practitioner_id", sc.PractitionerID,
			"date_from", sc.DateFrom,
			"error", err,
		)
		return s.validationError(err)
	}

	practitioner, err := s.practitioners.GetByID(ctx, sc.PractitionerID)
	if err != nil {
		return err
	}
	sc.Name = sc.DisplayName(practitioner.Name)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindByStart(sessCtx, sc.PractitionerID, sc.CompanyID, sc.DateFrom)
		if err != nil {
			return apperrors.Internal("Failed to check for existing schedules", err)
		}
		if existing != nil {
			return apperrors.Conflict("A schedule already starts on this date for this practitioner").WithDetails(map[string]any{
				"existing_id": existing.ID,
				"date_from":   sc.DateFrom.String(),
			})
		}
		if err := s.repo.Create(sessCtx, sc); err != nil {
			if errors.Is(err, scheduleerrors.ErrDuplicateStart) {
				return apperrors.Conflict("A schedule already starts on this date for this practitioner")
			}
			return apperrors.Internal("Failed to create schedule", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create schedule",
			"practitioner_id", sc.PractitionerID,
			"date_from", sc.DateFrom,
			"error", err,
		)
		return err
	}

	s.cfg.Log.Info("Schedule created successfully",
		"id", sc.ID,
		"practitioner_id", sc.PractitionerID,
		"company_id", sc.CompanyID,
		"rules", len(sc.Rules),
	)
	return nil
}

func (s *scheduleService) GetByID(ctx context.Context, id string) (*model.Schedule, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule ID cannot be empty")
	}

	sc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return sc, nil
}

func (s *scheduleService) ListByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.Schedule, int64, error) {
	if practitionerID == "" {
		return nil, 0, apperrors.InvalidInput("Practitioner ID cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	sharedCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	var count int64
	var schedules []*model.Schedule
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByPractitioner(sharedCtx, practitionerID)
		if err != nil {
			s.cfg.Log.Error("Failed to count schedules", "practitioner_id", practitionerID, "error", err)
			errCount = apperrors.Internal("Failed to count schedules", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		schedules, err = s.repo.FindByPractitioner(sharedCtx, practitionerID, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list schedules",
				"practitioner_id", practitionerID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve schedules", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return schedules, count, nil
}

func (s *scheduleService) UpdateRules(ctx context.Context, id string, rules []model.AttendanceRule) (*model.Schedule, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule ID cannot be empty")
	}

	for i := range rules {
		rules[i].Name = sanitizer.NormalizeName(rules[i].Name)
	}
	if err := s.validator.ValidateRules(rules); err != nil {
		s.cfg.Log.Warn("Schedule rules validation failed", "id", id, "error", err)
		return nil, s.validationError(err)
	}

	if err := s.repo.UpdateRules(ctx, id, rules); err != nil {
		return nil, s.lookupError(id, err)
	}

	s.cfg.Log.Info("Schedule rules updated", "id", id, "rules", len(rules))
	return s.GetByID(ctx, id)
}

func (s *scheduleService) SetActive(ctx context.Context, id string, active bool) error {
	if id == "" {
		return apperrors.InvalidInput("Schedule ID cannot be empty")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return s.lookupError(id, err)
	}
	s.cfg.Log.Info("Schedule activation changed", "id", id, "active", active)
	return nil
}

func (s *scheduleService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Schedule ID cannot be empty")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupError(id, err)
	}
	s.cfg.Log.Info("Schedule deleted", "id", id)
	return nil
}

func (s *scheduleService) lookupError(id string, err error) error {
	switch {
	case errors.Is(err, scheduleerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Schedule", id)
	case errors.Is(err, scheduleerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid schedule ID format")
	default:
		s.cfg.Log.Error("Schedule repository failure", "id", id, "error", err)
		return apperrors.Internal("Failed to access schedule", err)
	}
}

func (s *scheduleService) validationError(err error) error {
	details := map[string]any{"error": err.Error()}
	if validator.RuleErrors(err) {
		return apperrors.InvalidRuleDefinition("Schedule rules are invalid", details)
	}
	return apperrors.Validation("Schedule validation failed", details)
}

func (s *scheduleService) sanitize(sc *model.Schedule) {
	sc.PractitionerID = sanitizer.TrimString(sc.PractitionerID)
	sc.CompanyID = sanitizer.TrimString(sc.CompanyID)
	for i := range sc.Rules {
		sc.Rules[i].Name = sanitizer.NormalizeName(sc.Rules[i].Name)
	}
	if sc.Rules == nil {
		sc.Rules = []model.AttendanceRule{}
	}
}
