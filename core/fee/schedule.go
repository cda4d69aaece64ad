package fee

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schoolms/core"
)

// GenerateSchedule creates the installments of f: NumberOfInstallments monthly installments,
// the first one due a month after now.
// Each installment is worth PerInstallment(TotalAmount, n); the last one also carries the remainder cents,
// so that the schedule always sums up to TotalAmount.
// It resets f.RemainingBalance to TotalAmount.
// Fails with ErrAlreadyScheduled if f already has installments.
func GenerateSchedule(f *Fee, now time.Time) error {
	if f.IsScheduled() {
		return ErrAlreadyScheduled
	}
	if !f.TotalAmount.IsPositive() {
		return core.NewValidationError(
			errors.New("invalid total amount"),
			core.FieldError{Field: "total_amount", Error: "total_amount must be greater than 0"},
		)
	}
	n := f.NumberOfInstallments
	if !ValidInstallmentCount(n) {
		return core.NewValidationError(
			errors.New("invalid number of installments"),
			core.FieldError{Field: "number_of_installments", Error: "number_of_installments must be 8 or 9"},
		)
	}

	now = now.UTC()
	per := PerInstallment(f.TotalAmount, n)
	last := f.TotalAmount.Sub(per.Mul(decimal.NewFromInt(int64(n - 1))))

	insts := make([]Installment, 0, n)
	for i := 1; i <= n; i++ {
		amount := per
		if i == n {
			amount = last
		}
		insts = append(insts, Installment{
			FeeID:            f.ID,
			DueDate:          now.AddDate(0, i, 0),
			Amount:           amount,
			AmountPaid:       decimal.Zero,
			RemainingBalance: f.TotalAmount,
		})
	}

	f.AmountPerInstallment = per
	f.RemainingBalance = f.TotalAmount
	f.Installments = insts
	return nil
}
