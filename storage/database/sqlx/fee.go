package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/fee"
)

const (
	feeColumns = `id, student_id, total_amount, number_of_installments, amount_per_installment, remaining_balance,
		version, created_at, updated_at`
	installmentColumns = `id, fee_id, due_date, amount, amount_paid, remaining_balance, is_paid, paid_at`
)

type feeRepository struct {
	db core.DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db core.DB) *feeRepository {
	return &feeRepository{db: db}
}

func (repo feeRepository) CreateFee(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	q := `INSERT INTO fee (
			student_id, total_amount, number_of_installments, amount_per_installment, remaining_balance,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 0, $6, $7) RETURNING id, version`
	err := repo.db.QueryRowxContext(ctx, q,
		f.StudentID, f.TotalAmount, f.NumberOfInstallments, f.AmountPerInstallment, f.RemainingBalance,
		f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID, &f.Version)
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "inserting fee")
	}
	return f, nil
}

func (repo feeRepository) QueryFees(ctx context.Context, filter fee.QueryFilter) ([]fee.Fee, error) {
	fees := make([]fee.Fee, 0)
	q := `SELECT ` + feeColumns + ` FROM fee`
	var args []interface{}
	if filter.StudentID != 0 {
		q += ` WHERE student_id = $1`
		args = append(args, filter.StudentID)
	}
	q += ` ORDER BY id`
	if err := repo.db.SelectContext(ctx, &fees, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting fees")
	}
	if len(fees) == 0 {
		return fees, nil
	}

	ids := make([]int64, 0, len(fees))
	for _, f := range fees {
		ids = append(ids, int64(f.ID))
	}
	var insts []fee.Installment
	q = `SELECT ` + installmentColumns + ` FROM installment WHERE fee_id = ANY($1) ORDER BY due_date, id`
	if err := repo.db.SelectContext(ctx, &insts, q, pq.Int64Array(ids)); err != nil {
		return nil, errors.Wrap(err, "selecting installments")
	}
	byFee := make(map[int][]fee.Installment, len(fees))
	for _, inst := range insts {
		byFee[inst.FeeID] = append(byFee[inst.FeeID], inst)
	}
	for i := range fees {
		fees[i].Installments = byFee[fees[i].ID]
	}
	return fees, nil
}

func (repo feeRepository) getFee(ctx context.Context, exec core.DBExecutor, id int, forUpdate bool) (fee.Fee, error) {
	q := `SELECT ` + feeColumns + ` FROM fee WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var f fee.Fee
	if err := exec.GetContext(ctx, &f, q, id); err != nil {
		return fee.Fee{}, trapNoRowsErr(err, fee.ErrNotFound, "selecting fee")
	}
	insts, err := repo.getInstallments(ctx, exec, id)
	if err != nil {
		return fee.Fee{}, err
	}
	f.Installments = insts
	return f, nil
}

func (repo feeRepository) getInstallments(ctx context.Context, exec core.DBExecutor, feeID int) ([]fee.Installment, error) {
	var insts []fee.Installment
	q := `SELECT ` + installmentColumns + ` FROM installment WHERE fee_id = $1 ORDER BY due_date, id`
	if err := exec.SelectContext(ctx, &insts, q, feeID); err != nil {
		return nil, errors.Wrap(err, "selecting installments")
	}
	return insts, nil
}

func (repo feeRepository) GetFee(ctx context.Context, id int) (fee.Fee, error) {
	return repo.getFee(ctx, repo.db, id, false)
}

// updateFee saves the fee columns if f.Version is still the stored version, then bumps the version.
func (repo feeRepository) updateFee(ctx context.Context, exec core.DBExecutor, f fee.Fee) (fee.Fee, error) {
	q := `UPDATE fee SET
			total_amount = $1, number_of_installments = $2, amount_per_installment = $3, remaining_balance = $4,
			updated_at = $5, version = version + 1
		WHERE id = $6 AND version = $7`
	res, err := exec.ExecContext(ctx, q,
		f.TotalAmount, f.NumberOfInstallments, f.AmountPerInstallment, f.RemainingBalance,
		f.UpdatedAt, f.ID, f.Version,
	)
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "updating fee")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "updating fee")
	}
	if n == 0 {
		var exists bool
		if err = exec.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM fee WHERE id = $1)`, f.ID); err != nil {
			return fee.Fee{}, errors.Wrap(err, "checking fee")
		}
		if !exists {
			return fee.Fee{}, fee.ErrNotFound
		}
		return fee.Fee{}, fee.ErrConcurrencyConflict
	}
	f.Version++
	return f, nil
}

func (repo feeRepository) UpdateFee(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	insts := f.Installments
	f, err := repo.updateFee(ctx, repo.db, f)
	if err != nil {
		return fee.Fee{}, err
	}
	f.Installments = insts
	return f, nil
}

func (repo feeRepository) DeleteFee(ctx context.Context, id int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM fee WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting fee")
	}
	return checkAffected(res, fee.ErrNotFound, "deleting fee")
}

func (repo feeRepository) GetInstallment(ctx context.Context, id int) (fee.Installment, error) {
	var inst fee.Installment
	q := `SELECT ` + installmentColumns + ` FROM installment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &inst, q, id); err != nil {
		return fee.Installment{}, trapNoRowsErr(err, fee.ErrInstallmentNotFound, "selecting installment")
	}
	return inst, nil
}

func (repo feeRepository) CreateSchedule(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	err := withTx(ctx, repo.db, func(tx core.DBExecutor) error {
		// lock the fee row: concurrent schedule generations wait here
		stored, err := repo.getFee(ctx, tx, f.ID, true)
		if err != nil {
			return err
		}
		if stored.IsScheduled() {
			return fee.ErrAlreadyScheduled
		}

		insts := f.Installments
		if f, err = repo.updateFee(ctx, tx, f); err != nil {
			return err
		}

		q := `INSERT INTO installment (fee_id, due_date, amount, amount_paid, remaining_balance, is_paid, paid_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
		for i := range insts {
			inst := &insts[i]
			inst.FeeID = f.ID
			err = tx.QueryRowxContext(ctx, q,
				inst.FeeID, inst.DueDate, inst.Amount, inst.AmountPaid, inst.RemainingBalance, inst.IsPaid, inst.PaidAt,
			).Scan(&inst.ID)
			if err != nil {
				return errors.Wrap(err, "inserting installment")
			}
		}
		f.Installments = insts
		return nil
	})
	if err != nil {
		return fee.Fee{}, err
	}
	return f, nil
}

func (repo feeRepository) SaveAtomic(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	err := withTx(ctx, repo.db, func(tx core.DBExecutor) error {
		insts := f.Installments
		var err error
		if f, err = repo.updateFee(ctx, tx, f); err != nil {
			return err
		}

		q := `UPDATE installment SET
				amount = $1, amount_paid = $2, remaining_balance = $3, is_paid = $4, paid_at = $5
			WHERE id = $6 AND fee_id = $7`
		for _, inst := range insts {
			res, err := tx.ExecContext(ctx, q,
				inst.Amount, inst.AmountPaid, inst.RemainingBalance, inst.IsPaid, inst.PaidAt, inst.ID, f.ID,
			)
			if err != nil {
				return errors.Wrap(err, "updating installment")
			}
			if err = checkAffected(res, fee.ErrInstallmentNotFound, "updating installment"); err != nil {
				return err
			}
		}
		f.Installments = insts
		return nil
	})
	if err != nil {
		return fee.Fee{}, err
	}
	return f, nil
}
