package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolms/core/fee"
	inmemdb "github.com/trezcool/schoolms/storage/database/inmem"
	"github.com/trezcool/schoolms/tests"
)

func TestFeeRepository_CreateSchedule(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.NewDB()
	stg := testutil.CreateStage(t, inmemdb.NewStageRepository(db), "Primary")
	grd := testutil.CreateGrade(t, inmemdb.NewGradeRepository(db), stg.ID, "Grade 1")
	std := testutil.CreateStudent(t, inmemdb.NewStudentRepository(db), grd.ID, "Junior", "Mr Kabila", "243810000000")
	repo := inmemdb.NewFeeRepository(db)

	unscheduled := testutil.CreateFee(t, repo, std.ID, "1000", 9)

	first := unscheduled
	require.NoError(t, fee.GenerateSchedule(&first, time.Now()))
	stored, err := repo.CreateSchedule(ctx, first)
	require.NoError(t, err)
	require.Len(t, stored.Installments, 9)
	assert.Equal(t, 1, stored.Version)

	// a second schedule built from the same unscheduled copy
	second := unscheduled
	require.NoError(t, fee.GenerateSchedule(&second, time.Now()))
	_, err = repo.CreateSchedule(ctx, second)
	assert.Equal(t, fee.ErrAlreadyScheduled, err)

	got, err := repo.GetFee(ctx, unscheduled.ID)
	require.NoError(t, err)
	assert.Len(t, got.Installments, 9)

	ghost := unscheduled
	ghost.ID = 999
	ghost.Installments = nil
	require.NoError(t, fee.GenerateSchedule(&ghost, time.Now()))
	_, err = repo.CreateSchedule(ctx, ghost)
	assert.Equal(t, fee.ErrNotFound, err)
}
