package fee

import (
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolms/core"
)

// Allowed numbers of installments per Fee.
var InstallmentCounts = []int{8, 9}

var (
	installmentsTag  = "installments"
	installmentsText = "{0} must be 8 or 9"

	centsTag  = "cents"
	centsText = "{0} must have at most 2 decimal places"
)

// InitValidators registers the fee validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(installmentsTag, installmentsValidation)
	core.RegisterCustomTranslation(validate, translator, installmentsTag, installmentsText)

	validate.RegisterStructValidation(centsStructValidation, NewFee{}, UpdateFee{}, PaymentRequest{})
	core.RegisterCustomTranslation(validate, translator, centsTag, centsText)
}

// Fee is the tuition plan of a Student, paid through its Installments.
// RemainingBalance is what is still owed on the whole plan.
type Fee struct {
	ID                   int             `json:"id" db:"id"`
	StudentID            int             `json:"student_id" db:"student_id"`
	TotalAmount          decimal.Decimal `json:"total_amount" db:"total_amount"`
	NumberOfInstallments int             `json:"number_of_installments" db:"number_of_installments"`
	AmountPerInstallment decimal.Decimal `json:"amount_per_installment" db:"amount_per_installment"`
	RemainingBalance     decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	Version              int             `json:"-" db:"version"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"` // UTC

	// ordered by due date
	Installments []Installment `json:"installments,omitempty" db:"-"`
}

// Installment is one scheduled part of a Fee.
// Amount is what is still owed on the installment: it decreases with payments down to zero.
// RemainingBalance is a snapshot of the Fee's balance, taken the last time a payment targeted this installment.
type Installment struct {
	ID               int             `json:"id" db:"id"`
	FeeID            int             `json:"fee_id" db:"fee_id"`
	DueDate          time.Time       `json:"due_date" db:"due_date"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	AmountPaid       decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	IsPaid           bool            `json:"is_paid" db:"is_paid"`
	PaidAt           null.Time       `json:"paid_at" db:"paid_at"` // UTC
}

// IsScheduled reports whether the installments of the Fee were generated.
func (f *Fee) IsScheduled() bool {
	return len(f.Installments) > 0
}

// IsFullyPaid reports whether f has no unpaid installment left.
func (f *Fee) IsFullyPaid() bool {
	for i := range f.Installments {
		if !f.Installments[i].IsPaid {
			return false
		}
	}
	return true
}

// SortInstallments orders the installments by due date (then ID).
func (f *Fee) SortInstallments() {
	SortInstallments(f.Installments)
}

func SortInstallments(insts []Installment) {
	sort.SliceStable(insts, func(i, j int) bool {
		if insts[i].DueDate.Equal(insts[j].DueDate) {
			return insts[i].ID < insts[j].ID
		}
		return insts[i].DueDate.Before(insts[j].DueDate)
	})
}

// Installment returns the installment with the given ID.
func (f *Fee) Installment(id int) (*Installment, bool) {
	for i := range f.Installments {
		if f.Installments[i].ID == id {
			return &f.Installments[i], true
		}
	}
	return nil, false
}

// PerInstallment returns the amount of each installment of a schedule of n installments:
// total / n, truncated to cents. The last installment of a schedule carries the remainder.
func PerInstallment(total decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).Truncate(2)
}

// NewFee contains information needed to create a new Fee.
type NewFee struct {
	StudentID            int             `json:"student_id" validate:"required,gt=0"`
	TotalAmount          decimal.Decimal `json:"total_amount" validate:"gt=0"`
	NumberOfInstallments int             `json:"number_of_installments" validate:"installments"`
}

func (nf *NewFee) Validate(validate *validator.Validate) error {
	return validate.Struct(nf)
}

// UpdateFee defines what information may be provided to modify an existing Fee.
type UpdateFee struct {
	TotalAmount          decimal.Decimal `json:"total_amount" validate:"gt=0"`
	NumberOfInstallments int             `json:"number_of_installments" validate:"installments"`
}

func (uf *UpdateFee) Validate(validate *validator.Validate) error {
	return validate.Struct(uf)
}

type QueryFilter struct {
	StudentID int `query:"student_id"`
}

// Custom Validators

func installmentsValidation(fl validator.FieldLevel) bool {
	return ValidInstallmentCount(int(fl.Field().Int()))
}

// ValidInstallmentCount reports whether a Fee may be split in n installments.
func ValidInstallmentCount(n int) bool {
	for _, c := range InstallmentCounts {
		if n == c {
			return true
		}
	}
	return false
}

func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// centsStructValidation checks that money fields have at most 2 decimal places.
func centsStructValidation(sl validator.StructLevel) {
	switch v := sl.Current().Interface().(type) {
	case NewFee:
		if !hasCents(v.TotalAmount) {
			sl.ReportError(v.TotalAmount, "total_amount", "TotalAmount", centsTag, "")
		}
	case UpdateFee:
		if !hasCents(v.TotalAmount) {
			sl.ReportError(v.TotalAmount, "total_amount", "TotalAmount", centsTag, "")
		}
	case PaymentRequest:
		if !hasCents(v.AmountPaid) {
			sl.ReportError(v.AmountPaid, "amount_paid", "AmountPaid", centsTag, "")
		}
	}
}
