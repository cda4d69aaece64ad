package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/stage"
)

var (
	ErrNotFound     = core.NewNotFoundError("grade not found")
	ErrInvalidStage = core.NewValidationError(
		errors.New("invalid educational stage"),
		core.FieldError{Field: "educational_stage_id", Error: "educational stage does not exist"},
	)
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		QueryGrades(ctx context.Context) ([]Grade, error)
		GetGrade(ctx context.Context, id int) (Grade, error)
		UpdateGrade(ctx context.Context, grd Grade) (Grade, error)
		// DeleteGrade deletes the Grade along with its students, fees and installments,
		// and its Stage if no other grade is left in it. All or nothing.
		DeleteGrade(ctx context.Context, id int) error
	}

	Service struct {
		repo      Repository
		stageRepo stage.Repository
	}
)

func NewService(repo Repository, stageRepo stage.Repository) *Service {
	return &Service{repo: repo, stageRepo: stageRepo}
}

func (svc *Service) getStage(ctx context.Context, id int) (stage.Stage, error) {
	stg, err := svc.stageRepo.GetStage(ctx, id)
	if err != nil {
		if errors.Cause(err) == stage.ErrNotFound {
			return stage.Stage{}, ErrInvalidStage
		}
		return stage.Stage{}, errors.Wrap(err, "finding stage")
	}
	return stg, nil
}

func (svc *Service) Create(ctx context.Context, ng NewGrade) (Grade, error) {
	stg, err := svc.getStage(ctx, ng.StageID)
	if err != nil {
		return Grade{}, err
	}

	now := time.Now().UTC()
	grd, err := svc.repo.CreateGrade(ctx, Grade{
		Name:      ng.Name,
		StageID:   stg.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Grade{}, errors.Wrap(err, "creating grade")
	}
	grd.Stage = &stg
	return grd, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Grade, error) {
	grades, err := svc.repo.QueryGrades(ctx)
	return grades, errors.Wrap(err, "querying grades")
}

// GetByID returns the Grade with its Stage.
func (svc *Service) GetByID(ctx context.Context, id int) (Grade, error) {
	grd, err := svc.repo.GetGrade(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	stg, err := svc.stageRepo.GetStage(ctx, grd.StageID)
	if err != nil {
		return Grade{}, errors.Wrap(err, "finding stage")
	}
	grd.Stage = &stg
	return grd, nil
}

func (svc *Service) Update(ctx context.Context, id int, ug UpdateGrade) (Grade, error) {
	grd, err := svc.repo.GetGrade(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	stg, err := svc.getStage(ctx, ug.StageID)
	if err != nil {
		return Grade{}, err
	}

	grd.Name = ug.Name
	grd.StageID = stg.ID
	grd.UpdatedAt = time.Now().UTC()
	if grd, err = svc.repo.UpdateGrade(ctx, grd); err != nil {
		return Grade{}, errors.Wrap(err, "updating grade")
	}
	grd.Stage = &stg
	return grd, nil
}

// Delete deletes a Grade. A Stage left without grades is deleted too.
func (svc *Service) Delete(ctx context.Context, id int) error {
	if err := svc.repo.DeleteGrade(ctx, id); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return err
		}
		return errors.Wrap(err, "deleting grade")
	}
	return nil
}
