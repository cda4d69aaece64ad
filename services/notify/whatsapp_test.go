package notifysvc

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolms/core"
	"github.com/trezcool/schoolms/tests"
)

type capturedRequest struct {
	auth        string
	contentType string
	body        map[string]interface{}
}

func newTestServer(t *testing.T, status int) (*httptest.Server, *capturedRequest) {
	captured := new(capturedRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.auth = r.Header.Get("Authorization")
		captured.contentType = r.Header.Get("Content-Type")
		data, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &captured.body))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newService(url string) *WhatsAppService {
	conf := core.NewTestConfig()
	conf.WhatsApp.APIURL = url
	conf.WhatsApp.Token = "secret-token"
	return NewWhatsAppService(conf, testutil.NewLogger(conf))
}

func TestWhatsAppService_Send(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK)
	svc := newService(srv.URL)

	err := svc.Send(context.Background(), core.TemplateMessage{
		To:         "243810000000",
		Template:   "send_payment",
		Locale:     "fr",
		Parameters: core.TextParameters("Mr Kabila", "1500.00", "6500.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", captured.auth)
	assert.Equal(t, "application/json", captured.contentType)

	want := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                "243810000000",
		"type":              "template",
		"template": map[string]interface{}{
			"name":     "send_payment",
			"language": map[string]interface{}{"code": "fr"},
			"components": []interface{}{
				map[string]interface{}{
					"type": "body",
					"parameters": []interface{}{
						map[string]interface{}{"type": "text", "text": "Mr Kabila"},
						map[string]interface{}{"type": "text", "text": "1500.00"},
						map[string]interface{}{"type": "text", "text": "6500.00"},
					},
				},
			},
		},
	}
	assert.Equal(t, want, captured.body)
}

func TestWhatsAppService_Send_DefaultLocaleNoParams(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK)
	svc := newService(srv.URL)

	err := svc.Send(context.Background(), core.TemplateMessage{To: "243810000000", Template: "hello_world"})
	require.NoError(t, err)

	tmpl, ok := captured.body["template"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"code": "en"}, tmpl["language"])
	assert.NotContains(t, tmpl, "components")
}

func TestWhatsAppService_Send_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		to     string
	}{
		{name: "bad request", status: http.StatusBadRequest, to: "243810000000"},
		{name: "server error", status: http.StatusInternalServerError, to: "243810000000"},
		{name: "no recipient", status: http.StatusOK, to: "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status)
			svc := newService(srv.URL)
			err := svc.Send(context.Background(), core.TemplateMessage{To: tt.to, Template: "hello_world"})
			assert.Error(t, err)
		})
	}
}

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())
	msg := core.TemplateMessage{To: "243810000000", Template: "hello_world"}

	require.NoError(t, svc.Send(context.Background(), msg))
	assert.Equal(t, []core.TemplateMessage{msg}, svc.SentMessages())

	svc.FailWith(assert.AnError)
	assert.Equal(t, assert.AnError, svc.Send(context.Background(), msg))
	assert.Len(t, svc.SentMessages(), 1)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
	assert.NoError(t, svc.Send(context.Background(), msg))
}

func TestWhatsAppService_Send_ErrorStatus(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusTooManyRequests)
	svc := newService(srv.URL)

	err := svc.Send(context.Background(), core.TemplateMessage{To: "243810000000", Template: "hello_world"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 429")
	assert.Contains(t, err.Error(), "wamid.1")
}

func TestWhatsAppService_Send_CanceledContext(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK)
	svc := newService(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := svc.Send(ctx, core.TemplateMessage{To: "243810000000", Template: "hello_world"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}
