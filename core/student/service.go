package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/grade"
)

var (
	ErrNotFound     = core.NewNotFoundError("student not found")
	ErrInvalidGrade = core.NewValidationError(
		errors.New("invalid grade"),
		core.FieldError{Field: "grade_id", Error: "grade does not exist"},
	)
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		QueryStudents(ctx context.Context) ([]Student, error)
		GetStudent(ctx context.Context, id int) (Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		// DeleteStudent deletes the Student along with their fees and installments.
		DeleteStudent(ctx context.Context, id int) error
	}

	Service struct {
		repo      Repository
		gradeRepo grade.Repository
	}
)

func NewService(repo Repository, gradeRepo grade.Repository) *Service {
	return &Service{repo: repo, gradeRepo: gradeRepo}
}

func (svc *Service) getGrade(ctx context.Context, id int) (grade.Grade, error) {
	grd, err := svc.gradeRepo.GetGrade(ctx, id)
	if err != nil {
		if errors.Cause(err) == grade.ErrNotFound {
			return grade.Grade{}, ErrInvalidGrade
		}
		return grade.Grade{}, errors.Wrap(err, "finding grade")
	}
	return grd, nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	grd, err := svc.getGrade(ctx, ns.GradeID)
	if err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	std, err := svc.repo.CreateStudent(ctx, Student{
		Name:        ns.Name,
		ParentsName: ns.ParentsName,
		Address:     ns.Address,
		PhoneNumber: ns.PhoneNumber,
		DateOfBirth: ns.DateOfBirth.UTC(),
		GradeID:     grd.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	std.Grade = &grd
	return std, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	students, err := svc.repo.QueryStudents(ctx)
	return students, errors.Wrap(err, "querying students")
}

// GetByID returns the Student with their Grade.
func (svc *Service) GetByID(ctx context.Context, id int) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	grd, err := svc.gradeRepo.GetGrade(ctx, std.GradeID)
	if err != nil {
		return Student{}, errors.Wrap(err, "finding grade")
	}
	std.Grade = &grd
	return std, nil
}

func (svc *Service) Update(ctx context.Context, id int, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	grd, err := svc.getGrade(ctx, us.GradeID)
	if err != nil {
		return Student{}, err
	}

	std.Name = us.Name
	std.ParentsName = us.ParentsName
	std.Address = us.Address
	std.PhoneNumber = us.PhoneNumber
	std.DateOfBirth = us.DateOfBirth.UTC()
	std.GradeID = grd.ID
	std.UpdatedAt = time.Now().UTC()
	if std, err = svc.repo.UpdateStudent(ctx, std); err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}
	std.Grade = &grd
	return std, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetStudent(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteStudent(ctx, id), "deleting student")
}
