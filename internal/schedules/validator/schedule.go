package validator

import (
	"errors"
	"fmt"
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"medsched/pkg/validation"
	"strings"
)

type ScheduleValidator struct {
	v *validation.Validator
}

func NewScheduleValidator(log *logger.Logger) *ScheduleValidator {
	return &ScheduleValidator{
		v: validation.New(log, nil, map[string]string{
			"gtfield": "hour_to must be after hour_from",
		}),
	}
}

// Validate checks field constraints plus the cross-field date ordering the
// struct tags cannot express.
func (sv *ScheduleValidator) Validate(sc *model.Schedule) error {
	var errs validation.ValidationErrors
	if err := sv.v.Struct(sc); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}
	if sc.DateTo != nil && !sc.DateFrom.IsZero() && sc.DateTo.Before(sc.DateFrom.Time) {
		errs = append(errs, validation.ValidationError{Field: "date_to", Message: "date_to must not be before date_from"})
	}
	errs = append(errs, ruleRangeErrors(sc.Rules)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (sv *ScheduleValidator) ValidateRules(rules []model.AttendanceRule) error {
	var errs validation.ValidationErrors
	if err := sv.v.Struct(&model.ScheduleRulesUpdate{Rules: rules}); err != nil {
		if !errors.As(err, &errs) {
			return err
		}
	}
	errs = append(errs, ruleRangeErrors(rules)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RuleErrors reports whether every error concerns attendance rules or the
// validity window, which callers surface as an invalid rule definition.
func RuleErrors(err error) bool {
	var errs validation.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		if !strings.HasPrefix(e.Field, "rules") && e.Field != "date_to" {
			return false
		}
	}
	return true
}

func ruleRangeErrors(rules []model.AttendanceRule) validation.ValidationErrors {
	var errs validation.ValidationErrors
	for i, r := range rules {
		if r.EffectiveFrom != nil && r.EffectiveTo != nil && r.EffectiveTo.Before(r.EffectiveFrom.Time) {
			errs = append(errs, validation.ValidationError{
				Field:   fmt.Sprintf("rules[%d].effective_to", i),
				Message: "effective_to must not be before effective_from",
			})
		}
	}
	return errs
}
