package validator

import (
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"medsched/pkg/validation"
)

type PractitionerValidator struct {
	v *validation.Validator
}

func NewPractitionerValidator(log *logger.Logger) *PractitionerValidator {
	return &PractitionerValidator{v: validation.New(log, nil, nil)}
}

func (pv *PractitionerValidator) Validate(p *model.Practitioner) error {
	return pv.v.Struct(p)
}
