package notifysvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/schoolms/core"
)

type (
	waLanguage struct {
		Code string `json:"code"`
	}

	waComponent struct {
		Type       string                   `json:"type"`
		Parameters []core.TemplateParameter `json:"parameters"`
	}

	waTemplate struct {
		Name       string        `json:"name"`
		Language   waLanguage    `json:"language"`
		Components []waComponent `json:"components,omitempty"`
	}

	waRequest struct {
		MessagingProduct string     `json:"messaging_product"`
		To               string     `json:"to"`
		Type             string     `json:"type"`
		Template         waTemplate `json:"template"`
	}
)

// WhatsAppService sends template messages through the WhatsApp Business Cloud API.
type WhatsAppService struct {
	client        *rest.Client
	apiURL        string
	token         string
	defaultLocale string
	logger        core.Logger
}

var _ core.Notifier = (*WhatsAppService)(nil)

func NewWhatsAppService(conf *core.Config, logger core.Logger) *WhatsAppService {
	return &WhatsAppService{
		client:        &rest.Client{HTTPClient: &http.Client{Timeout: conf.WhatsApp.Timeout}},
		apiURL:        conf.WhatsApp.APIURL,
		token:         conf.WhatsApp.Token,
		defaultLocale: conf.WhatsApp.DefaultLocale,
		logger:        logger,
	}
}

func (svc *WhatsAppService) prepare(msg core.TemplateMessage) ([]byte, error) {
	body := waRequest{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "template",
		Template: waTemplate{
			Name:     msg.Template,
			Language: waLanguage{Code: msg.LocaleOr(svc.defaultLocale)},
		},
	}
	if len(msg.Parameters) > 0 {
		body.Template.Components = []waComponent{{Type: "body", Parameters: msg.Parameters}}
	}
	return json.Marshal(body)
}

// Send delivers msg synchronously. Any non-2xx answer is an error.
func (svc *WhatsAppService) Send(ctx context.Context, msg core.TemplateMessage) error {
	if !msg.HasRecipient() {
		return errors.New("message has no recipient")
	}

	body, err := svc.prepare(msg)
	if err != nil {
		return errors.Wrap(err, "encoding message")
	}
	req := rest.Request{
		Method:  rest.Post,
		BaseURL: svc.apiURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + svc.token,
			"Content-Type":  "application/json",
		},
		Body: body,
	}

	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	httpRes, err := svc.client.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	res, err := rest.BuildResponse(httpRes)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("sending message - status: %d - body: %s", res.StatusCode, res.Body)
	}
	svc.logger.Debug(fmt.Sprintf("message %q sent to %s", msg.Template, msg.To))
	return nil
}
