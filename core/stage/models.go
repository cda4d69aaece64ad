package stage

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schoolms/core"
)

// Stage is an educational stage (e.g. primary, secondary), grouping grades.
type Stage struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewStage contains information needed to create a new Stage.
type NewStage struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (ns *NewStage) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// UpdateStage defines what information may be provided to modify an existing Stage.
type UpdateStage struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (us *UpdateStage) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	return validate.Struct(us)
}
