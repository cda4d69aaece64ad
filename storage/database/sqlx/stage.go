package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/stage"
)

const stageColumns = `id, name, created_at, updated_at`

type stageRepository struct {
	db core.DB
}

var _ stage.Repository = (*stageRepository)(nil) // interface compliance check

func NewStageRepository(db core.DB) *stageRepository {
	return &stageRepository{db: db}
}

func (repo stageRepository) CreateStage(ctx context.Context, stg stage.Stage) (stage.Stage, error) {
	q := `INSERT INTO educational_stage (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id`
	if err := repo.db.QueryRowxContext(ctx, q, stg.Name, stg.CreatedAt, stg.UpdatedAt).Scan(&stg.ID); err != nil {
		return stage.Stage{}, errors.Wrap(err, "inserting stage")
	}
	return stg, nil
}

func (repo stageRepository) QueryStages(ctx context.Context) ([]stage.Stage, error) {
	stages := make([]stage.Stage, 0)
	if err := repo.db.SelectContext(ctx, &stages, `SELECT `+stageColumns+` FROM educational_stage ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "selecting stages")
	}
	return stages, nil
}

func (repo stageRepository) GetStage(ctx context.Context, id int) (stage.Stage, error) {
	var stg stage.Stage
	if err := repo.db.GetContext(ctx, &stg, `SELECT `+stageColumns+` FROM educational_stage WHERE id = $1`, id); err != nil {
		return stage.Stage{}, trapNoRowsErr(err, stage.ErrNotFound, "selecting stage")
	}
	return stg, nil
}

func (repo stageRepository) UpdateStage(ctx context.Context, stg stage.Stage) (stage.Stage, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE educational_stage SET name = $1, updated_at = $2 WHERE id = $3`,
		stg.Name, stg.UpdatedAt, stg.ID,
	)
	if err != nil {
		return stage.Stage{}, errors.Wrap(err, "updating stage")
	}
	if err = checkAffected(res, stage.ErrNotFound, "updating stage"); err != nil {
		return stage.Stage{}, err
	}
	return stg, nil
}

func (repo stageRepository) DeleteStage(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM educational_stage WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting stage")
	}
	return checkAffected(res, stage.ErrNotFound, "deleting stage")
}
