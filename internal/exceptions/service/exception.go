package service

import (
	"context"
	"errors"
	calendarsync "medsched/internal/calendarsync/service"
	exceptionerrors "medsched/internal/exceptions/errors"
	"medsched/internal/exceptions/repository"
	"medsched/internal/exceptions/validator"
	lockerrors "medsched/internal/locks/errors"
	"medsched/internal/locks/service"
	"medsched/pkg/config"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/interval"
	"medsched/pkg/model"
	"medsched/pkg/sanitizer"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type PractitionerLookup interface {
	GetByID(ctx context.Context, id string) (*model.Practitioner, error)
}

type ExceptionService interface {
	Create(ctx context.Context, ex *model.ScheduleException) error
	Update(ctx context.Context, id string, update *model.ExceptionUpdate) (*model.ScheduleException, error)
	SetActive(ctx context.Context, id string, active bool) error
	GetByID(ctx context.Context, id string) (*model.ScheduleException, error)
	ListByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.ScheduleException, int64, error)
	// Query returns the active exceptions overlapping [start, end), clipped to it.
	Query(ctx context.Context, practitionerID, companyID string, start, end time.Time) (interval.Set, error)
}

type exceptionService struct {
	repo          repository.ExceptionRepository
	validator     *validator.ExceptionValidator
	locker        service.Locker
	practitioners PractitionerLookup
	publisher     calendarsync.Publisher
	cfg           *config.Config
}

func NewExceptionService(
	repo repository.ExceptionRepository,
	validator *validator.ExceptionValidator,
	locker service.Locker,
	practitioners PractitionerLookup,
	publisher calendarsync.Publisher,
	cfg *config.Config,
) ExceptionService {
	return &exceptionService{
		repo:          repo,
		validator:     validator,
		locker:        locker,
		practitioners: practitioners,
		publisher:     publisher,
		cfg:           cfg,
	}
}

func (s *exceptionService) Create(ctx context.Context, ex *model.ScheduleException) error {
	ex.PractitionerID = sanitizer.TrimString(ex.PractitionerID)
	ex.CompanyID = sanitizer.TrimString(ex.CompanyID)
	ex.Name = sanitizer.NormalizeName(ex.Name)
	ex.Reason = sanitizer.NormalizeText(ex.Reason)
	ex.Start = ex.Start.UTC()
	ex.End = ex.End.UTC()
	if ex.CompanyID == "" {
		ex.CompanyID = s.cfg.DefaultCompanyID
	}
	ex.Active = true

	if err := s.validate(ex); err != nil {
		return err
	}
	if _, err := s.practitioners.GetByID(ctx, ex.PractitionerID); err != nil {
		return err
	}

	err := s.withOverlapGuard(ctx, ex, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Create(sessCtx, ex); err != nil {
			return apperrors.Internal("Failed to create schedule exception", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Schedule exception created",
		"id", ex.ID,
		"practitioner_id", ex.PractitionerID,
		"company_id", ex.CompanyID,
		"start", ex.Start,
		"end", ex.End,
	)
	s.publish(ctx, ex)
	return nil
}

func (s *exceptionService) Update(ctx context.Context, id string, update *model.ExceptionUpdate) (*model.ScheduleException, error) {
	if err := s.validator.ValidateUpdate(update); err != nil {
		return nil, apperrors.Validation("Schedule exception validation failed", map[string]any{"error": err.Error()})
	}

	ex, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		ex.Name = sanitizer.NormalizeName(*update.Name)
	}
	if update.Reason != nil {
		ex.Reason = sanitizer.NormalizeText(*update.Reason)
	}
	if update.Start != nil {
		ex.Start = update.Start.UTC()
	}
	if update.End != nil {
		ex.End = update.End.UTC()
	}

	if err := s.validate(ex); err != nil {
		return nil, err
	}

	store := func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Update(sessCtx, ex); err != nil {
			return s.lookupError(id, err)
		}
		return nil
	}
	if ex.Active {
		err = s.withOverlapGuard(ctx, ex, store)
	} else {
		err = s.repo.ExecuteTransaction(ctx, store)
	}
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Schedule exception updated", "id", id, "start", ex.Start, "end", ex.End)
	s.publish(ctx, ex)
	return ex, nil
}

func (s *exceptionService) SetActive(ctx context.Context, id string, active bool) error {
	ex, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ex.Active == active {
		return nil
	}

	store := func(sessCtx mongo.SessionContext) error {
		if err := s.repo.SetActive(sessCtx, id, active); err != nil {
			return s.lookupError(id, err)
		}
		return nil
	}
	if active {
		err = s.withOverlapGuard(ctx, ex, store)
	} else {
		err = s.repo.ExecuteTransaction(ctx, store)
	}
	if err != nil {
		return err
	}

	ex.Active = active
	s.cfg.Log.Info("Schedule exception activation changed", "id", id, "active", active)
	s.publish(ctx, ex)
	return nil
}

func (s *exceptionService) GetByID(ctx context.Context, id string) (*model.ScheduleException, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Schedule exception ID cannot be empty")
	}
	ex, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}
	return ex, nil
}

func (s *exceptionService) ListByPractitioner(ctx context.Context, practitionerID string, limit int, offset int64) ([]*model.ScheduleException, int64, error) {
	if practitionerID == "" {
		return nil, 0, apperrors.InvalidInput("Practitioner ID cannot be empty")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var (
		wg         sync.WaitGroup
		count      int64
		exceptions []*model.ScheduleException
		errCount   error
		errFind    error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByPractitioner(ctx, practitionerID)
	}()
	go func() {
		defer wg.Done()
		exceptions, errFind = s.repo.FindByPractitioner(ctx, practitionerID, limit, offset)
	}()
	wg.Wait()

	if err := errors.Join(errCount, errFind); err != nil {
		s.cfg.Log.Error("Failed to list schedule exceptions", "practitioner_id", practitionerID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve schedule exceptions", err)
	}
	return exceptions, count, nil
}

func (s *exceptionService) Query(ctx context.Context, practitionerID, companyID string, start, end time.Time) (interval.Set, error) {
	if !start.Before(end) {
		return nil, nil
	}
	if companyID == "" {
		companyID = s.cfg.DefaultCompanyID
	}

	found, err := s.repo.FindActiveOverlapping(ctx, practitionerID, companyID, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to query schedule exceptions", "practitioner_id", practitionerID, "error", err)
		return nil, apperrors.Internal("Failed to query schedule exceptions", err)
	}

	blocks := make([]interval.Interval, 0, len(found))
	for _, ex := range found {
		if ex.Active {
			blocks = append(blocks, ex.Interval())
		}
	}
	s.cfg.Log.Debug("Schedule exceptions resolved", "practitioner_id", practitionerID, "count", len(blocks))
	return interval.Normalize(blocks).Clip(start, end), nil
}

// withOverlapGuard serializes writers for the practitioner and company, then
// runs store in a transaction after confirming no other active exception
// overlaps ex.
func (s *exceptionService) withOverlapGuard(ctx context.Context, ex *model.ScheduleException, store func(mongo.SessionContext) error) error {
	key := service.Key("exception", ex.PractitionerID, ex.CompanyID)
	token, err := s.locker.Acquire(ctx, key, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, lockerrors.ErrLockHeld) {
			return apperrors.Conflict("Another change to this practitioner's exceptions is in progress, please retry")
		}
		return apperrors.Internal("Failed to acquire exception lock", err)
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.cfg.Log.Warn("Failed to release exception lock", "key", key, "error", err)
		}
	}()

	return s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		conflicts, err := s.repo.FindConflicts(sessCtx, ex.PractitionerID, ex.CompanyID, ex.Start, ex.End, ex.ID)
		if err != nil {
			return apperrors.Internal("Failed to check overlapping exceptions", err)
		}
		if len(conflicts) > 0 {
			ids := make([]string, 0, len(conflicts))
			for _, c := range conflicts {
				ids = append(ids, c.ID)
			}
			s.cfg.Log.Warn("Schedule exception overlaps",
				"practitioner_id", ex.PractitionerID,
				"start", ex.Start,
				"end", ex.End,
				"conflicts", ids,
			)
			return apperrors.InvalidExceptionWindow("The exception overlaps another active exception for this practitioner", map[string]any{
				"conflicting_ids": ids,
			})
		}
		return store(sessCtx)
	})
}

func (s *exceptionService) validate(ex *model.ScheduleException) error {
	err := s.validator.Validate(ex)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, validator.ErrInvalidWindow):
		s.cfg.Log.Warn("Schedule exception window rejected", "start", ex.Start, "end", ex.End)
		return apperrors.InvalidExceptionWindow("The exception must start before it ends", map[string]any{
			"start": ex.Start,
			"end":   ex.End,
		})
	default:
		s.cfg.Log.Warn("Schedule exception validation failed", "practitioner_id", ex.PractitionerID, "error", err)
		return apperrors.Validation("Schedule exception validation failed", map[string]any{"error": err.Error()})
	}
}

func (s *exceptionService) lookupError(id string, err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, exceptionerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Schedule exception", id)
	case errors.Is(err, exceptionerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid schedule exception ID format")
	default:
		s.cfg.Log.Error("Schedule exception repository failure", "id", id, "error", err)
		return apperrors.Internal("Failed to access schedule exception", err)
	}
}

// publish mirrors the exception into the calendar. Failures are logged; the
// stored exception stays authoritative.
func (s *exceptionService) publish(ctx context.Context, ex *model.ScheduleException) {
	var event *model.CalendarEvent
	if ex.Active {
		event = calendarsync.UpsertEvent(model.CalendarSourceException, ex.ID, ex.Name, ex.Start, ex.End,
			[]string{ex.PractitionerID}, model.CalendarPrivacyPublic)
	} else {
		event = calendarsync.DeleteEvent(model.CalendarSourceException, ex.ID)
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Calendar sync for exception failed", "id", ex.ID, "error", err)
	}
}
