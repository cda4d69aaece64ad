package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/grade"
)

// Student is enrolled in a Grade. ParentsName and PhoneNumber identify the guardian
// who receives payment notifications.
type Student struct {
	ID          int          `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	ParentsName string       `json:"parents_name" db:"parents_name"`
	Address     string       `json:"address" db:"address"`
	PhoneNumber string       `json:"phone_number" db:"phone_number"`
	DateOfBirth time.Time    `json:"date_of_birth" db:"date_of_birth"`
	GradeID     int          `json:"grade_id" db:"grade_id"`
	Grade       *grade.Grade `json:"grade,omitempty" db:"-"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name        string    `json:"name" validate:"required,max=100"`
	ParentsName string    `json:"parents_name" validate:"required,max=100"`
	Address     string    `json:"address" validate:"max=255"`
	PhoneNumber string    `json:"phone_number" validate:"required,phone"`
	DateOfBirth time.Time `json:"date_of_birth" validate:"required"`
	GradeID     int       `json:"grade_id" validate:"required,gt=0"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ParentsName = core.CleanString(ns.ParentsName)
	ns.Address = core.CleanString(ns.Address)
	ns.PhoneNumber = core.CleanString(ns.PhoneNumber)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
type UpdateStudent NewStudent

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	ns := (*NewStudent)(us)
	return ns.Validate(validate)
}
