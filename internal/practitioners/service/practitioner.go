package service

import (
	"context"
	"errors"
	practitionererrors "medsched/internal/practitioners/errors"
	"medsched/internal/practitioners/repository"
	"medsched/internal/practitioners/validator"
	"medsched/pkg/config"
	apperrors "medsched/pkg/errors"
	"medsched/pkg/model"
	"medsched/pkg/sanitizer"
	"medsched/pkg/timezone"
	"time"
)

type PractitionerService interface {
	Create(ctx context.Context, p *model.Practitioner) error
	GetByID(ctx context.Context, id string) (*model.Practitioner, error)
	// ResolveLocation returns the zone the practitioner's schedules are
	// written in: their own preference, else the configured default, else UTC.
	ResolveLocation(p *model.Practitioner) (*time.Location, error)
}

type practitionerService struct {
	repo      repository.PractitionerRepository
	validator *validator.PractitionerValidator
	zones     *timezone.Loader
	cfg       *config.Config
}

func NewPractitionerService(
	repo repository.PractitionerRepository,
	validator *validator.PractitionerValidator,
	zones *timezone.Loader,
	cfg *config.Config,
) PractitionerService {
	return &practitionerService{
		repo:      repo,
		validator: validator,
		zones:     zones,
		cfg:       cfg,
	}
}

func (s *practitionerService) Create(ctx context.Context, p *model.Practitioner) error {
	p.Name = sanitizer.NormalizeName(p.Name)
	p.TimeZone = sanitizer.NormalizeTimeZone(p.TimeZone)
	if p.CompanyID == "" {
		p.CompanyID = s.cfg.DefaultCompanyID
	}

	if err := s.validator.Validate(p); err != nil {
		s.cfg.Log.Warn("Practitioner validation failed", "name", p.Name, "error", err)
		return apperrors.Validation("Practitioner validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.cfg.Log.Error("Failed to create practitioner", "name", p.Name, "error", err)
		return apperrors.Internal("Failed to create practitioner", err)
	}

	s.cfg.Log.Info("Practitioner created", "id", p.ID, "time_zone", p.TimeZone)
	return nil
}

func (s *practitionerService) GetByID(ctx context.Context, id string) (*model.Practitioner, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Practitioner ID cannot be empty")
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, practitionererrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid practitioner ID format")
		case errors.Is(err, practitionererrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("Practitioner", id)
		default:
			s.cfg.Log.Error("Failed to get practitioner", "id", id, "error", err)
			return nil, apperrors.Internal("Failed to retrieve practitioner", err)
		}
	}
	return p, nil
}

func (s *practitionerService) ResolveLocation(p *model.Practitioner) (*time.Location, error) {
	loc, err := s.zones.Load(p.TimeZone)
	if err != nil {
		s.cfg.Log.Error("Practitioner time zone cannot be resolved",
			"practitioner_id", p.ID,
			"time_zone", p.TimeZone,
			"error", err,
		)
		return nil, apperrors.Configuration("Practitioner time zone cannot be resolved", err).WithDetails(map[string]any{
			"practitioner_id": p.ID,
			"time_zone":       p.TimeZone,
		})
	}
	return loc, nil
}
