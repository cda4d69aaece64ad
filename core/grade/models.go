package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/stage"
)

type Grade struct {
	ID        int          `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	StageID   int          `json:"educational_stage_id" db:"educational_stage_id"`
	Stage     *stage.Stage `json:"educational_stage,omitempty" db:"-"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"` // UTC
}

// NewGrade contains information needed to create a new Grade.
type NewGrade struct {
	Name    string `json:"name" validate:"required,max=100"`
	StageID int    `json:"educational_stage_id" validate:"required,gt=0"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

// UpdateGrade defines what information may be provided to modify an existing Grade.
type UpdateGrade struct {
	Name    string `json:"name" validate:"required,max=100"`
	StageID int    `json:"educational_stage_id" validate:"required,gt=0"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	return validate.Struct(ug)
}
