package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/schoolms/core"
)

// messagesApi sends WhatsApp templates by hand, outside of the payment flow.
type messagesApi struct {
	conf     *core.Config
	notifier core.Notifier
	validate *validator.Validate
}

func registerMessagesAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := messagesApi{conf: deps.Conf, notifier: deps.Notifier, validate: deps.Validate}

	mg := g.Group("/messages", jwt)
	mg.POST("/welcome", api.welcome)
	mg.POST("/payment", api.payment)
}

func (api *messagesApi) send(ctx echo.Context, msg core.TemplateMessage) error {
	msg.Locale = core.CleanString(ctx.Request().Header.Get("language"))
	msg.Locale = msg.LocaleOr(api.conf.WhatsApp.DefaultLocale)
	if err := api.notifier.Send(ctx.Request().Context(), msg); err != nil {
		return core.NewNotificationError(err)
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Message sent successfully."})
}

func (api *messagesApi) welcome(ctx echo.Context) error {
	var data WelcomeMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WelcomeMessageRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	return api.send(ctx, core.TemplateMessage{
		To:       data.Mobile,
		Template: api.conf.WhatsApp.WelcomeTemplate,
	})
}

func (api *messagesApi) payment(ctx echo.Context) error {
	var data PaymentMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PaymentMessageRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	return api.send(ctx, core.TemplateMessage{
		To:       data.Mobile,
		Template: api.conf.WhatsApp.PaymentTemplate,
		Parameters: core.TextParameters(
			data.Name,
			data.Amount.StringFixed(2),
			data.RemainingAmount.StringFixed(2),
		),
	})
}

type (
	WelcomeMessageRequest struct {
		Mobile string `json:"mobile" validate:"required,phone"`
	}

	PaymentMessageRequest struct {
		Mobile          string          `json:"mobile" validate:"required,phone"`
		Name            string          `json:"name" validate:"required,max=100"`
		Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
		RemainingAmount decimal.Decimal `json:"remaining_amount" validate:"gte=0"`
	}
)

func (wr *WelcomeMessageRequest) Validate(validate *validator.Validate) error {
	wr.Mobile = core.CleanString(wr.Mobile)
	return validate.Struct(wr)
}

func (pr *PaymentMessageRequest) Validate(validate *validator.Validate) error {
	pr.Mobile = core.CleanString(pr.Mobile)
	pr.Name = core.CleanString(pr.Name)
	return validate.Struct(pr)
}
