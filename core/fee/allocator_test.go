package fee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scheduledFee returns a Fee of total with its n installments, numbered from 1.
func scheduledFee(t *testing.T, total string, n int) Fee {
	f := Fee{ID: 1, StudentID: 1, TotalAmount: dec(total), NumberOfInstallments: n}
	require.NoError(t, GenerateSchedule(&f, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	for i := range f.Installments {
		f.Installments[i].ID = i + 1
	}
	return f
}

func TestApply_PartialThenOverflow(t *testing.T) {
	now := time.Date(2024, time.February, 3, 9, 30, 0, 0, time.UTC)
	f := scheduledFee(t, "8000", 8)

	// 1500: pays the 1st installment, 500 goes to the 2nd
	alloc, err := Apply(&f, dec("1500"), now)
	require.NoError(t, err)
	assert.Equal(t, 1, alloc.PrimaryInstallmentID)
	assert.Equal(t, []int{1, 2}, alloc.Touched)
	assertDecimal(t, "1500", alloc.Applied)
	assertDecimal(t, "0", alloc.Unallocated)

	assertDecimal(t, "6500", f.RemainingBalance)
	first, second := f.Installments[0], f.Installments[1]
	assert.True(t, first.IsPaid)
	assert.Equal(t, now, first.PaidAt.Time)
	assertDecimal(t, "0", first.Amount)
	assertDecimal(t, "1000", first.AmountPaid)
	assertDecimal(t, "6500", first.RemainingBalance)
	assert.False(t, second.IsPaid)
	assert.False(t, second.PaidAt.Valid)
	assertDecimal(t, "500", second.Amount)
	assertDecimal(t, "500", second.AmountPaid)
	assertDecimal(t, "8000", second.RemainingBalance) // not the primary: snapshot untouched

	// 1200: the 2nd installment is now the primary; 500 pays it, 700 goes to the 3rd
	alloc, err = Apply(&f, dec("1200"), now)
	require.NoError(t, err)
	assert.Equal(t, 2, alloc.PrimaryInstallmentID)
	assert.Equal(t, []int{2, 3}, alloc.Touched)

	assertDecimal(t, "5300", f.RemainingBalance)
	second, third := f.Installments[1], f.Installments[2]
	assert.True(t, second.IsPaid)
	assertDecimal(t, "0", second.Amount)
	assertDecimal(t, "1000", second.AmountPaid)
	assertDecimal(t, "5300", second.RemainingBalance)
	assert.False(t, third.IsPaid)
	assertDecimal(t, "300", third.Amount)
	assertDecimal(t, "700", third.AmountPaid)

	// the 1st installment is left as it was
	assertDecimal(t, "6500", f.Installments[0].RemainingBalance)
}

func TestApply_ExactInstallment(t *testing.T) {
	f := scheduledFee(t, "9000", 9)

	alloc, err := Apply(&f, dec("1000"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, alloc.Touched)
	assert.True(t, f.Installments[0].IsPaid)
	assert.False(t, f.Installments[1].IsPaid)
	assertDecimal(t, "1000", f.Installments[1].Amount)
	assertDecimal(t, "8000", f.RemainingBalance)
}

func TestApply_SmallPayment(t *testing.T) {
	f := scheduledFee(t, "8000", 8)

	alloc, err := Apply(&f, dec("0.01"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, alloc.Touched)
	assert.False(t, f.Installments[0].IsPaid)
	assertDecimal(t, "999.99", f.Installments[0].Amount)
	assertDecimal(t, "0.01", f.Installments[0].AmountPaid)
	assertDecimal(t, "7999.99", f.RemainingBalance)
}

func TestApply_FullBalance(t *testing.T) {
	f := scheduledFee(t, "1000", 9)

	alloc, err := Apply(&f, dec("1000"), time.Now())
	require.NoError(t, err)
	assert.Len(t, alloc.Touched, 9)
	assertDecimal(t, "0", alloc.Unallocated)
	assertDecimal(t, "0", f.RemainingBalance)
	assert.True(t, f.IsFullyPaid())
	for _, inst := range f.Installments {
		assertDecimal(t, "0", inst.Amount)
		assert.True(t, inst.PaidAt.Valid)
	}
	assertDecimal(t, "111.12", f.Installments[8].AmountPaid)

	// nothing left to pay
	_, err = Apply(&f, dec("1"), time.Now())
	assert.Equal(t, ErrInvalidPaymentAmount, err)
}

func TestApply_OutOfOrderInstallments(t *testing.T) {
	f := scheduledFee(t, "8000", 8)
	// stored order is not due date order
	f.Installments[0], f.Installments[7] = f.Installments[7], f.Installments[0]

	alloc, err := Apply(&f, dec("1000"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, alloc.PrimaryInstallmentID)
	assert.Equal(t, 1, f.Installments[0].ID)
	assert.True(t, f.Installments[0].IsPaid)
}

func TestApply_PaidInstallmentsAreSkipped(t *testing.T) {
	f := scheduledFee(t, "8000", 8)
	_, err := Apply(&f, dec("2000"), time.Now())
	require.NoError(t, err)
	paidAt := f.Installments[0].PaidAt

	alloc, err := Apply(&f, dec("1500"), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, alloc.PrimaryInstallmentID)
	assert.Equal(t, []int{3, 4}, alloc.Touched)
	assert.Equal(t, paidAt, f.Installments[0].PaidAt)
	assertDecimal(t, "1000", f.Installments[0].AmountPaid)
	assertDecimal(t, "4500", f.RemainingBalance)
}

func TestApply_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		fee     func() Fee
		amount  string
		wantErr error
	}{
		{name: "zero", fee: func() Fee { return scheduledFee(t, "8000", 8) }, amount: "0", wantErr: ErrInvalidPaymentAmount},
		{name: "negative", fee: func() Fee { return scheduledFee(t, "8000", 8) }, amount: "-5", wantErr: ErrInvalidPaymentAmount},
		{name: "more than balance", fee: func() Fee { return scheduledFee(t, "8000", 8) }, amount: "8000.01", wantErr: ErrInvalidPaymentAmount},
		{
			name:    "not scheduled",
			fee:     func() Fee { return Fee{TotalAmount: dec("8000"), RemainingBalance: dec("8000"), NumberOfInstallments: 8} },
			amount:  "100",
			wantErr: ErrNotScheduled,
		},
		{
			name: "fully paid with a balance left",
			fee: func() Fee {
				f := scheduledFee(t, "8000", 8)
				for i := range f.Installments {
					f.Installments[i].IsPaid = true
				}
				return f
			},
			amount:  "100",
			wantErr: ErrFeeFullyPaid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.fee()
			before := tt.fee()

			alloc, err := Apply(&f, dec(tt.amount), time.Now())
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, Allocation{}, alloc)
			assert.Equal(t, before, f, "a rejected payment must not change the fee")
		})
	}
}
