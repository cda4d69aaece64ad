package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/fee"
	"github.com/trezcool/schoolms/core/stage"
	"github.com/trezcool/schoolms/core/student"
	locksvc "github.com/trezcool/schoolms/services/lock"
	notifysvc "github.com/trezcool/schoolms/services/notify"
	sqlxrepos "github.com/trezcool/schoolms/storage/database/sqlx"
	"github.com/trezcool/schoolms/tests"
)

func TestFeeRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	ctx := context.Background()

	stg := testutil.CreateStage(t, sqlxrepos.NewStageRepository(db), "Primary")
	grd := testutil.CreateGrade(t, sqlxrepos.NewGradeRepository(db), stg.ID, "Grade 1")
	stdRepo := sqlxrepos.NewStudentRepository(db)
	std := testutil.CreateStudent(t, stdRepo, grd.ID, "Junior", "Mr Kabila", "243810000000")
	repo := sqlxrepos.NewFeeRepository(db)

	f := testutil.CreateScheduledFee(t, repo, std.ID, "1000", 9)
	assert.Equal(t, 1, f.Version)
	require.Len(t, f.Installments, 9)

	t.Run("GetFee", func(t *testing.T) {
		got, err := repo.GetFee(ctx, f.ID)
		require.NoError(t, err)
		require.Len(t, got.Installments, 9)
		assert.Equal(t, "111.12", got.Installments[8].Amount.StringFixed(2))
		for i := 1; i < len(got.Installments); i++ {
			assert.True(t, got.Installments[i-1].DueDate.Before(got.Installments[i].DueDate))
		}

		_, err = repo.GetFee(ctx, 999)
		assert.Equal(t, fee.ErrNotFound, err)
	})

	t.Run("CreateSchedule twice", func(t *testing.T) {
		again := f
		again.Installments = nil
		again.NumberOfInstallments = 9
		require.NoError(t, fee.GenerateSchedule(&again, f.CreatedAt))
		_, err := repo.CreateSchedule(ctx, again)
		assert.Equal(t, fee.ErrAlreadyScheduled, err)
	})

	t.Run("SaveAtomic with a stale version", func(t *testing.T) {
		stored, err := repo.GetFee(ctx, f.ID)
		require.NoError(t, err)
		stale, err := repo.GetFee(ctx, f.ID)
		require.NoError(t, err)

		_, err = fee.Apply(&stored, decimal.RequireFromString("100"), stored.UpdatedAt)
		require.NoError(t, err)
		_, err = repo.SaveAtomic(ctx, stored)
		require.NoError(t, err)

		_, err = fee.Apply(&stale, decimal.RequireFromString("100"), stale.UpdatedAt)
		require.NoError(t, err)
		_, err = repo.SaveAtomic(ctx, stale)
		assert.Equal(t, fee.ErrConcurrencyConflict, err)

		got, err := repo.GetFee(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, "900.00", got.RemainingBalance.StringFixed(2))
	})

	t.Run("Cascading delete", func(t *testing.T) {
		other := testutil.CreateScheduledFee(t, repo, std.ID, "8000", 8)
		require.NoError(t, repo.DeleteFee(ctx, other.ID))
		_, err := repo.GetInstallment(ctx, other.Installments[0].ID)
		assert.Equal(t, fee.ErrInstallmentNotFound, err)
		assert.Equal(t, fee.ErrNotFound, repo.DeleteFee(ctx, other.ID))

		require.NoError(t, sqlxrepos.NewStageRepository(db).DeleteStage(ctx, stg.ID))
		_, err = stdRepo.GetStudent(ctx, std.ID)
		assert.Equal(t, student.ErrNotFound, err)
		_, err = repo.GetFee(ctx, f.ID)
		assert.Equal(t, fee.ErrNotFound, err)
		_, err = sqlxrepos.NewStageRepository(db).GetStage(ctx, stg.ID)
		assert.Equal(t, stage.ErrNotFound, err)
	})
}

func TestFeeService_ConcurrentPayments(t *testing.T) {
	db := testutil.PrepareDB(t)
	conf := core.NewTestConfig()
	ctx := context.Background()

	stg := testutil.CreateStage(t, sqlxrepos.NewStageRepository(db), "Primary")
	grd := testutil.CreateGrade(t, sqlxrepos.NewGradeRepository(db), stg.ID, "Grade 1")
	stdRepo := sqlxrepos.NewStudentRepository(db)
	std := testutil.CreateStudent(t, stdRepo, grd.ID, "Junior", "Mr Kabila", "243810000000")
	repo := sqlxrepos.NewFeeRepository(db)
	f := testutil.CreateScheduledFee(t, repo, std.ID, "8000", 8)

	svc := fee.NewService(
		repo, stdRepo, locksvc.NewLocalLocker(), notifysvc.NewConsoleServiceMock(conf), conf, testutil.NewLogger(conf),
	)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyPayment(ctx, fee.PaymentRequest{FeeID: f.ID, AmountPaid: decimal.RequireFromString("150")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetFee(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "5000.00", got.RemainingBalance.StringFixed(2))
	paid := decimal.Zero
	for _, inst := range got.Installments {
		paid = paid.Add(inst.AmountPaid)
	}
	assert.Equal(t, "3000.00", paid.StringFixed(2))
}
