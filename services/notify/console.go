package notifysvc

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolms/core"
)

type consoleService struct {
	defaultLocale string
	disableOutput bool
}

var _ core.Notifier = (*consoleService)(nil)

// NewConsoleService returns a Notifier printing messages to the standard logger. Used in DEV mode.
func NewConsoleService(conf *core.Config) core.Notifier {
	return &consoleService{defaultLocale: conf.WhatsApp.DefaultLocale}
}

func (svc *consoleService) Send(_ context.Context, msg core.TemplateMessage) error {
	if !msg.HasRecipient() {
		return errors.New("message has no recipient")
	}
	if !svc.disableOutput {
		log.Println(svc.format(msg))
	}
	return nil
}

func (svc *consoleService) format(msg core.TemplateMessage) string {
	params := make([]string, 0, len(msg.Parameters))
	for _, p := range msg.Parameters {
		params = append(params, p.Text)
	}
	return fmt.Sprintf(
		"To: %s\r\nTemplate: %s\r\nLanguage: %s\r\nParameters: %s\r\n",
		msg.To, msg.Template, msg.LocaleOr(svc.defaultLocale), strings.Join(params, " | "),
	)
}

// ConsoleServiceMock records the messages it is asked to send, and can be made to fail.
type ConsoleServiceMock struct {
	consoleService

	mu   sync.Mutex
	sent []core.TemplateMessage
	err  error
}

func NewConsoleServiceMock(conf *core.Config) *ConsoleServiceMock {
	return &ConsoleServiceMock{
		consoleService: consoleService{
			defaultLocale: conf.WhatsApp.DefaultLocale,
			disableOutput: true,
		},
	}
}

func (svc *ConsoleServiceMock) Send(ctx context.Context, msg core.TemplateMessage) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.err != nil {
		return svc.err
	}
	if err := svc.consoleService.Send(ctx, msg); err != nil {
		return err
	}
	svc.sent = append(svc.sent, msg)
	return nil
}

// FailWith makes every following Send fail with err; nil restores normal behaviour.
func (svc *ConsoleServiceMock) FailWith(err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.err = err
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.TemplateMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	msgs := make([]core.TemplateMessage, len(svc.sent))
	copy(msgs, svc.sent)
	return msgs
}

// Reset forgets sent messages and clears any failure.
func (svc *ConsoleServiceMock) Reset() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.sent = nil
	svc.err = nil
}
