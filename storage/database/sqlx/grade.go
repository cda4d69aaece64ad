package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/grade"
)

const gradeColumns = `id, name, educational_stage_id, created_at, updated_at`

type gradeRepository struct {
	db core.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db core.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	q := `INSERT INTO grade (name, educational_stage_id, created_at, updated_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := repo.db.QueryRowxContext(ctx, q, grd.Name, grd.StageID, grd.CreatedAt, grd.UpdatedAt).Scan(&grd.ID); err != nil {
		return grade.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return grd, nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context) ([]grade.Grade, error) {
	grades := make([]grade.Grade, 0)
	if err := repo.db.SelectContext(ctx, &grades, `SELECT `+gradeColumns+` FROM grade ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "selecting grades")
	}
	return grades, nil
}

func (repo gradeRepository) GetGrade(ctx context.Context, id int) (grade.Grade, error) {
	var grd grade.Grade
	if err := repo.db.GetContext(ctx, &grd, `SELECT `+gradeColumns+` FROM grade WHERE id = $1`, id); err != nil {
		return grade.Grade{}, trapNoRowsErr(err, grade.ErrNotFound, "selecting grade")
	}
	return grd, nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE grade SET name = $1, educational_stage_id = $2, updated_at = $3 WHERE id = $4`,
		grd.Name, grd.StageID, grd.UpdatedAt, grd.ID,
	)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	if err = checkAffected(res, grade.ErrNotFound, "updating grade"); err != nil {
		return grade.Grade{}, err
	}
	return grd, nil
}

func (repo gradeRepository) DeleteGrade(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx core.DBExecutor) error {
		var stageID int
		err := tx.GetContext(ctx, &stageID, `DELETE FROM grade WHERE id = $1 RETURNING educational_stage_id`, id)
		if err != nil {
			return trapNoRowsErr(err, grade.ErrNotFound, "deleting grade")
		}
		q := `DELETE FROM educational_stage s WHERE s.id = $1
			AND NOT EXISTS (SELECT 1 FROM grade g WHERE g.educational_stage_id = s.id)`
		if _, err = tx.ExecContext(ctx, q, stageID); err != nil {
			return errors.Wrap(err, "deleting empty stage")
		}
		return nil
	})
}
