package validator

import (
	"medsched/pkg/logger"
	"medsched/pkg/model"
	"medsched/pkg/validation"
)

type SlotValidator struct {
	v *validation.Validator
}

func NewSlotValidator(log *logger.Logger) *SlotValidator {
	return &SlotValidator{
		v: validation.New(log, nil, map[string]string{
			"lte": "duration_hours must not exceed 24",
		}),
	}
}

func (sv *SlotValidator) Validate(req *model.SlotRequest) error {
	return sv.v.Struct(req)
}
