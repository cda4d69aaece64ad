package fee

import (
	"context"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/student"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("fee not found")
	ErrInstallmentNotFound = core.NewNotFoundError("installment not found")
	ErrConcurrencyConflict = core.NewConflictError("fee was modified by another operation, reload and retry")

	ErrAlreadyScheduled = core.NewValidationError(errors.New("installments have already been calculated for this fee"))
	ErrNotScheduled     = core.NewValidationError(errors.New("installments have not been calculated for this fee"))
	ErrScheduledFeeLock = core.NewValidationError(
		errors.New("fee already has installments"),
		core.FieldError{Field: "total_amount", Error: "cannot change the amounts of a fee that already has installments"},
	)
	ErrInvalidPaymentAmount = core.NewValidationError(
		errors.New("invalid payment amount"),
		core.FieldError{Field: "amount_paid", Error: "amount_paid must be greater than 0 and not exceed the remaining balance"},
	)
	ErrFeeFullyPaid           = core.NewValidationError(errors.New("fee is already fully paid"))
	ErrInstallmentAlreadyPaid = core.NewValidationError(errors.New("this installment has already been paid"))
	ErrInstallmentMismatch    = core.NewValidationError(
		errors.New("installment does not belong to fee"),
		core.FieldError{Field: "installment_id", Error: "installment does not belong to the given fee"},
	)
	ErrMissingPaymentTarget = core.NewValidationError(
		errors.New("missing payment target"),
		core.FieldError{Field: "installment_id", Error: "one of installment_id or fee_id is required"},
	)
	ErrInvalidStudent = core.NewValidationError(
		errors.New("invalid student"),
		core.FieldError{Field: "student_id", Error: "student does not exist"},
	)
)

type (
	Repository interface {
		CreateFee(ctx context.Context, f Fee) (Fee, error)
		QueryFees(ctx context.Context, filter QueryFilter) ([]Fee, error)
		// GetFee returns the Fee with its installments, ordered by due date.
		GetFee(ctx context.Context, id int) (Fee, error)
		// UpdateFee saves the Fee columns. Fails with ErrConcurrencyConflict if f.Version is stale.
		UpdateFee(ctx context.Context, f Fee) (Fee, error)
		// DeleteFee deletes the Fee along with its installments.
		DeleteFee(ctx context.Context, id int) error

		GetInstallment(ctx context.Context, id int) (Installment, error)

		// CreateSchedule inserts the (new) installments of f and saves its balance, atomically.
		// Fails with ErrAlreadyScheduled if the Fee already has installments.
		CreateSchedule(ctx context.Context, f Fee) (Fee, error)
		// SaveAtomic saves the Fee and all its installments in a single transaction.
		// Fails with ErrConcurrencyConflict if f.Version is stale.
		SaveAtomic(ctx context.Context, f Fee) (Fee, error)
	}

	Service struct {
		repo        Repository
		studentRepo student.Repository
		locker      core.Locker
		notifier    core.Notifier
		conf        *core.Config
		logger      core.Logger
		now         func() time.Time
	}
)

func NewService(
	repo Repository,
	studentRepo student.Repository,
	locker core.Locker,
	notifier core.Notifier,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:        repo,
		studentRepo: studentRepo,
		locker:      locker,
		notifier:    notifier,
		conf:        conf,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func lockKey(feeID int) string {
	return "lock:fee:" + strconv.Itoa(feeID)
}

func (svc *Service) Create(ctx context.Context, nf NewFee) (Fee, error) {
	if _, err := svc.studentRepo.GetStudent(ctx, nf.StudentID); err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return Fee{}, ErrInvalidStudent
		}
		return Fee{}, errors.Wrap(err, "finding student")
	}

	now := svc.now()
	f, err := svc.repo.CreateFee(ctx, Fee{
		StudentID:            nf.StudentID,
		TotalAmount:          nf.TotalAmount,
		NumberOfInstallments: nf.NumberOfInstallments,
		AmountPerInstallment: PerInstallment(nf.TotalAmount, nf.NumberOfInstallments),
		RemainingBalance:     nf.TotalAmount,
		CreatedAt:            now,
		UpdatedAt:            now,
	})
	return f, errors.Wrap(err, "creating fee")
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Fee, error) {
	fees, err := svc.repo.QueryFees(ctx, filter)
	return fees, errors.Wrap(err, "querying fees")
}

// GetByID returns the Fee with its installments.
func (svc *Service) GetByID(ctx context.Context, id int) (Fee, error) {
	return svc.repo.GetFee(ctx, id)
}

// Update changes the amounts of a Fee. Once installments exist, the amounts are frozen.
func (svc *Service) Update(ctx context.Context, id int, uf UpdateFee) (Fee, error) {
	var f Fee
	err := svc.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		var err error
		if f, err = svc.repo.GetFee(ctx, id); err != nil {
			return err
		}
		if f.IsScheduled() {
			if f.TotalAmount.Equal(uf.TotalAmount) && f.NumberOfInstallments == uf.NumberOfInstallments {
				return nil
			}
			return ErrScheduledFeeLock
		}

		f.TotalAmount = uf.TotalAmount
		f.NumberOfInstallments = uf.NumberOfInstallments
		f.AmountPerInstallment = PerInstallment(uf.TotalAmount, uf.NumberOfInstallments)
		f.RemainingBalance = uf.TotalAmount
		f.UpdatedAt = svc.now()
		f, err = svc.repo.UpdateFee(ctx, f)
		return errors.Wrap(err, "updating fee")
	})
	if err != nil {
		return Fee{}, err
	}
	return f, nil
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.locker.WithLock(ctx, lockKey(id), func(ctx context.Context) error {
		if _, err := svc.repo.GetFee(ctx, id); err != nil {
			return err
		}
		return errors.Wrap(svc.repo.DeleteFee(ctx, id), "deleting fee")
	})
}

// QueryInstallments returns the installments of a Fee, ordered by due date.
func (svc *Service) QueryInstallments(ctx context.Context, feeID int) ([]Installment, error) {
	f, err := svc.repo.GetFee(ctx, feeID)
	if err != nil {
		return nil, err
	}
	if f.Installments == nil {
		return []Installment{}, nil
	}
	return f.Installments, nil
}

func (svc *Service) GetInstallment(ctx context.Context, id int) (Installment, error) {
	return svc.repo.GetInstallment(ctx, id)
}

// CalculateInstallments generates and saves the installment schedule of a Fee.
func (svc *Service) CalculateInstallments(ctx context.Context, feeID int) (Fee, error) {
	var f Fee
	err := svc.locker.WithLock(ctx, lockKey(feeID), func(ctx context.Context) error {
		var err error
		if f, err = svc.repo.GetFee(ctx, feeID); err != nil {
			return err
		}
		if err = GenerateSchedule(&f, svc.now()); err != nil {
			return err
		}
		f.UpdatedAt = svc.now()
		f, err = svc.repo.CreateSchedule(ctx, f)
		return errors.Wrap(err, "saving schedule")
	})
	if err != nil {
		return Fee{}, err
	}
	return f, nil
}

// PaymentRequest is a payment made against a Fee.
// The Fee is identified by FeeID, or by one of its installments.
type PaymentRequest struct {
	InstallmentID int             `json:"installment_id" validate:"omitempty,gt=0"`
	FeeID         int             `json:"fee_id" validate:"omitempty,gt=0"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Locale        string          `json:"locale" validate:"max=16"`
}

func (pr *PaymentRequest) Validate(validate *validator.Validate) error {
	pr.Locale = core.CleanString(pr.Locale)
	if pr.InstallmentID == 0 && pr.FeeID == 0 {
		return ErrMissingPaymentTarget
	}
	return validate.Struct(pr)
}

// PaymentResult is the state of a Fee after a payment.
type PaymentResult struct {
	FeeID               int             `json:"fee_id"`
	InstallmentID       int             `json:"installment_id"` // the primary installment
	AppliedAmount       decimal.Decimal `json:"applied_amount"`
	NewRemainingBalance decimal.Decimal `json:"remaining_balance"`
	Installments        []Installment   `json:"installments"`
}

// ApplyPayment allocates a payment to a Fee's installments, saves the Fee,
// then notifies the student's guardian.
//
// Payments on a single Fee are serialized. When the notification fails, the payment stays recorded:
// the result is returned along with a *core.NotificationError.
func (svc *Service) ApplyPayment(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	feeID, err := svc.resolveFeeID(ctx, req)
	if err != nil {
		return PaymentResult{}, err
	}

	var (
		res PaymentResult
		std student.Student
	)
	err = svc.locker.WithLock(ctx, lockKey(feeID), func(ctx context.Context) error {
		f, err := svc.repo.GetFee(ctx, feeID)
		if err != nil {
			return err
		}
		if req.InstallmentID != 0 {
			inst, ok := f.Installment(req.InstallmentID)
			if !ok {
				return ErrInstallmentMismatch
			}
			if inst.IsPaid {
				return ErrInstallmentAlreadyPaid
			}
		}

		if std, err = svc.studentRepo.GetStudent(ctx, f.StudentID); err != nil {
			return errors.Wrap(err, "finding student")
		}

		now := svc.now()
		alloc, err := Apply(&f, req.AmountPaid, now)
		if err != nil {
			return err
		}
		f.UpdatedAt = now
		if f, err = svc.repo.SaveAtomic(ctx, f); err != nil {
			return errors.Wrap(err, "saving payment")
		}

		res = PaymentResult{
			FeeID:               f.ID,
			InstallmentID:       alloc.PrimaryInstallmentID,
			AppliedAmount:       alloc.Applied,
			NewRemainingBalance: f.RemainingBalance,
			Installments:        f.Installments,
		}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	if err = svc.notifyPayment(ctx, std, res, req.Locale); err != nil {
		return res, err
	}
	return res, nil
}

func (svc *Service) resolveFeeID(ctx context.Context, req PaymentRequest) (int, error) {
	if req.InstallmentID == 0 {
		if req.FeeID == 0 {
			return 0, ErrMissingPaymentTarget
		}
		return req.FeeID, nil
	}

	inst, err := svc.repo.GetInstallment(ctx, req.InstallmentID)
	if err != nil {
		return 0, err
	}
	if req.FeeID != 0 && req.FeeID != inst.FeeID {
		return 0, ErrInstallmentMismatch
	}
	return inst.FeeID, nil
}

// notifyPayment sends the payment template to the guardian:
// guardian name, amount paid and the balance snapshot of the primary installment.
func (svc *Service) notifyPayment(ctx context.Context, std student.Student, res PaymentResult, locale string) error {
	balance := res.NewRemainingBalance
	for _, inst := range res.Installments {
		if inst.ID == res.InstallmentID {
			balance = inst.RemainingBalance
			break
		}
	}

	msg := core.TemplateMessage{
		To:       std.PhoneNumber,
		Template: svc.conf.WhatsApp.PaymentTemplate,
		Locale:   locale,
		Parameters: core.TextParameters(
			std.ParentsName,
			res.AppliedAmount.StringFixed(2),
			balance.StringFixed(2),
		),
	}
	msg.Locale = msg.LocaleOr(svc.conf.WhatsApp.DefaultLocale)

	if err := svc.notifier.Send(ctx, msg); err != nil {
		svc.logger.Error(
			"sending payment notification",
			errors.Wrap(err, "sending payment notification"),
			map[string]interface{}{"fee_id": res.FeeID, "installment_id": res.InstallmentID},
		)
		return core.NewNotificationError(err)
	}
	return nil
}
