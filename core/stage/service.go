package stage

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
)

var ErrNotFound = core.NewNotFoundError("educational stage not found")

type (
	Repository interface {
		CreateStage(ctx context.Context, stg Stage) (Stage, error)
		QueryStages(ctx context.Context) ([]Stage, error)
		GetStage(ctx context.Context, id int) (Stage, error)
		UpdateStage(ctx context.Context, stg Stage) (Stage, error)
		// DeleteStage deletes the Stage along with its grades, students, fees and installments.
		DeleteStage(ctx context.Context, id int) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewStage) (Stage, error) {
	now := time.Now().UTC()
	stg, err := svc.repo.CreateStage(ctx, Stage{
		Name:      ns.Name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return stg, errors.Wrap(err, "creating stage")
}

func (svc *Service) QueryAll(ctx context.Context) ([]Stage, error) {
	stages, err := svc.repo.QueryStages(ctx)
	return stages, errors.Wrap(err, "querying stages")
}

func (svc *Service) GetByID(ctx context.Context, id int) (Stage, error) {
	return svc.repo.GetStage(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id int, us UpdateStage) (Stage, error) {
	stg, err := svc.repo.GetStage(ctx, id)
	if err != nil {
		return Stage{}, err
	}
	stg.Name = us.Name
	stg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStage(ctx, stg)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	if _, err := svc.repo.GetStage(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteStage(ctx, id), "deleting stage")
}
