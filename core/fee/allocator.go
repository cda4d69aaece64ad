package fee

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// Allocation describes how a payment was spread over the installments of a Fee.
type Allocation struct {
	Applied              decimal.Decimal // the payment amount
	PrimaryInstallmentID int             // the first unpaid installment at the time of payment
	Touched              []int           // IDs of the installments the payment went to, in order
	Unallocated          decimal.Decimal // left over once every installment was paid
}

// Apply allocates amountPaid to the unpaid installments of f, in due date order.
//
// The first unpaid installment is the primary target. An installment the payment covers becomes paid
// and its Amount drops to zero; otherwise its Amount is reduced by what is left of the payment.
// Overflow goes to the next unpaid installments until the payment is exhausted.
// Then f.RemainingBalance is reduced by amountPaid and copied to the primary installment's snapshot.
//
// f is left untouched when the payment is rejected:
//   - ErrInvalidPaymentAmount: amountPaid <= 0 or amountPaid > f.RemainingBalance
//   - ErrNotScheduled: f has no installments
//   - ErrFeeFullyPaid: every installment is already paid
func Apply(f *Fee, amountPaid decimal.Decimal, now time.Time) (Allocation, error) {
	if !amountPaid.IsPositive() || amountPaid.GreaterThan(f.RemainingBalance) {
		return Allocation{}, ErrInvalidPaymentAmount
	}

	if !f.IsScheduled() {
		return Allocation{}, ErrNotScheduled
	}
	if f.IsFullyPaid() {
		return Allocation{}, ErrFeeFullyPaid
	}

	f.SortInstallments()
	primary := 0
	for f.Installments[primary].IsPaid {
		primary++
	}

	now = now.UTC()
	alloc := Allocation{
		Applied:              amountPaid,
		PrimaryInstallmentID: f.Installments[primary].ID,
	}

	remaining := amountPaid
	for i := primary; i < len(f.Installments) && remaining.IsPositive(); i++ {
		inst := &f.Installments[i]
		if inst.IsPaid {
			continue
		}
		remaining = pay(inst, remaining, now)
		alloc.Touched = append(alloc.Touched, inst.ID)
	}
	alloc.Unallocated = remaining

	f.RemainingBalance = f.RemainingBalance.Sub(amountPaid)
	f.Installments[primary].RemainingBalance = f.RemainingBalance
	return alloc, nil
}

// pay applies amount to inst and returns what is left of it.
func pay(inst *Installment, amount decimal.Decimal, now time.Time) decimal.Decimal {
	if amount.GreaterThanOrEqual(inst.Amount) {
		amount = amount.Sub(inst.Amount)
		inst.AmountPaid = inst.AmountPaid.Add(inst.Amount)
		inst.Amount = decimal.Zero
		inst.IsPaid = true
		inst.PaidAt = null.TimeFrom(now)
		return amount
	}
	inst.Amount = inst.Amount.Sub(amount)
	inst.AmountPaid = inst.AmountPaid.Add(amount)
	return decimal.Zero
}
