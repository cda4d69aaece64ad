package fee

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolms/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestPerInstallment(t *testing.T) {
	tests := []struct {
		total string
		n     int
		want  string
	}{
		{total: "8000", n: 8, want: "1000"},
		{total: "9000", n: 9, want: "1000"},
		{total: "1000", n: 9, want: "111.11"},
		{total: "100", n: 8, want: "12.5"},
		{total: "0.05", n: 8, want: "0"},
		{total: "100", n: 0, want: "0"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.total, tt.n), func(t *testing.T) {
			assertDecimal(t, tt.want, PerInstallment(dec(tt.total), tt.n))
		})
	}
}

func TestGenerateSchedule(t *testing.T) {
	now := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		total    string
		n        int
		wantPer  string
		wantLast string
	}{
		{name: "even split", total: "8000", n: 8, wantPer: "1000", wantLast: "1000"},
		{name: "remainder on last", total: "1000", n: 9, wantPer: "111.11", wantLast: "111.12"},
		{name: "cents", total: "1234.56", n: 8, wantPer: "154.32", wantLast: "154.32"},
		{name: "uneven cents", total: "1000.01", n: 8, wantPer: "125", wantLast: "125.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Fee{ID: 3, TotalAmount: dec(tt.total), NumberOfInstallments: tt.n, RemainingBalance: dec("1")}
			require.NoError(t, GenerateSchedule(&f, now))

			require.Len(t, f.Installments, tt.n)
			assertDecimal(t, tt.wantPer, f.AmountPerInstallment)
			assertDecimal(t, tt.total, f.RemainingBalance)

			sum := decimal.Zero
			for i, inst := range f.Installments {
				sum = sum.Add(inst.Amount)
				assert.Equal(t, 3, inst.FeeID)
				assert.Equal(t, now.AddDate(0, i+1, 0), inst.DueDate)
				assert.False(t, inst.IsPaid)
				assert.False(t, inst.PaidAt.Valid)
				assertDecimal(t, "0", inst.AmountPaid)
				assertDecimal(t, tt.total, inst.RemainingBalance)
				if i < tt.n-1 {
					assertDecimal(t, tt.wantPer, inst.Amount)
				} else {
					assertDecimal(t, tt.wantLast, inst.Amount)
				}
			}
			assertDecimal(t, tt.total, sum)
		})
	}
}

func TestGenerateSchedule_Errors(t *testing.T) {
	now := time.Now()

	scheduled := Fee{TotalAmount: dec("8000"), NumberOfInstallments: 8}
	require.NoError(t, GenerateSchedule(&scheduled, now))
	assert.Equal(t, ErrAlreadyScheduled, GenerateSchedule(&scheduled, now))

	tests := []struct {
		name  string
		total string
		n     int
		field string
	}{
		{name: "zero total", total: "0", n: 8, field: "total_amount"},
		{name: "negative total", total: "-10", n: 8, field: "total_amount"},
		{name: "7 installments", total: "8000", n: 7, field: "number_of_installments"},
		{name: "10 installments", total: "8000", n: 10, field: "number_of_installments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Fee{TotalAmount: dec(tt.total), NumberOfInstallments: tt.n}
			err := GenerateSchedule(&f, now)

			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok, "want *core.ValidationError, got %T", err)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.field, vErr.Fields[0].Field)
			assert.Empty(t, f.Installments)
		})
	}
}
