package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolms/core/grade"
	"github.com/trezcool/schoolms/core/stage"
	sqlxrepos "github.com/trezcool/schoolms/storage/database/sqlx"
	"github.com/trezcool/schoolms/tests"
)

func TestGradeRepository_DeleteGrade(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()
	stageRepo := sqlxrepos.NewStageRepository(db)
	repo := sqlxrepos.NewGradeRepository(db)

	primary := testutil.CreateStage(t, stageRepo, "Primary")
	grade1 := testutil.CreateGrade(t, repo, primary.ID, "Grade 1")
	grade2 := testutil.CreateGrade(t, repo, primary.ID, "Grade 2")

	require.NoError(t, repo.DeleteGrade(ctx, grade1.ID))
	_, err := stageRepo.GetStage(ctx, primary.ID)
	assert.NoError(t, err)

	assert.Equal(t, grade.ErrNotFound, repo.DeleteGrade(ctx, grade1.ID))

	require.NoError(t, repo.DeleteGrade(ctx, grade2.ID))
	_, err = stageRepo.GetStage(ctx, primary.ID)
	assert.Equal(t, stage.ErrNotFound, err)
}
