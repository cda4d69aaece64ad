package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/core/fee"
)

type feeApi struct {
	svc      *fee.Service
	validate *validator.Validate
}

func registerFeeAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := feeApi{svc: deps.FeeSvc, validate: deps.Validate}

	fg := g.Group("/fees", jwt)
	fg.GET("", api.query)
	fg.POST("", api.create)
	fg.GET("/:id", api.retrieve)
	fg.PUT("/:id", api.update)
	fg.DELETE("/:id", api.destroy, adminMiddleware())
	fg.GET("/:id/installments", api.queryInstallments)
	fg.POST("/:id/installments", api.calculateInstallments)

	ig := g.Group("/installments", jwt)
	ig.POST("/pay", api.pay)
	ig.GET("/:id", api.retrieveInstallment)
}

func (api *feeApi) query(ctx echo.Context) error {
	var filter fee.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	fees, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *feeApi) create(ctx echo.Context) error {
	var data fee.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *feeApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding fee")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) update(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data fee.UpdateFee
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateFee")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	f, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating fee")
	}
	return ctx.JSON(http.StatusOK, f)
}

func (api *feeApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting fee")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *feeApi) queryInstallments(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	insts, err := api.svc.QueryInstallments(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying installments")
	}
	return ctx.JSON(http.StatusOK, insts)
}

func (api *feeApi) calculateInstallments(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	f, err := api.svc.CalculateInstallments(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "calculating installments")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *feeApi) retrieveInstallment(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	inst, err := api.svc.GetInstallment(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding installment")
	}
	return ctx.JSON(http.StatusOK, inst)
}

// PaymentNotificationFailure is sent when a payment was recorded but the guardian could not be notified.
type PaymentNotificationFailure struct {
	Error            string          `json:"error"`
	FeeID            int             `json:"fee_id"`
	InstallmentID    int             `json:"installment_id"`
	AppliedAmount    decimal.Decimal `json:"applied_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

func (api *feeApi) pay(ctx echo.Context) error {
	var data fee.PaymentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.ApplyPayment(ctx.Request().Context(), data)
	if err != nil {
		if nErr, ok := errors.Cause(err).(*core.NotificationError); ok && res.FeeID != 0 {
			return ctx.JSON(http.StatusBadGateway, PaymentNotificationFailure{
				Error:            nErr.Error(),
				FeeID:            res.FeeID,
				InstallmentID:    res.InstallmentID,
				AppliedAmount:    res.AppliedAmount,
				RemainingBalance: res.NewRemainingBalance,
			})
		}
		return errors.Wrap(err, "applying payment")
	}
	return ctx.JSON(http.StatusOK, res)
}
