package core

import (
	"context"
	"strings"
)

const ParameterTypeText = "text"

type (
	// TemplateParameter is one positional value substituted in a message template.
	TemplateParameter struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}

	// TemplateMessage is a pre-approved message template sent to a phone number.
	TemplateMessage struct {
		To         string
		Template   string
		Locale     string
		Parameters []TemplateParameter
	}

	// Notifier is any service that can deliver template messages.
	Notifier interface {
		Send(ctx context.Context, msg TemplateMessage) error
	}
)

// TextParameters builds text parameters from values, in order.
func TextParameters(values ...string) []TemplateParameter {
	params := make([]TemplateParameter, 0, len(values))
	for _, v := range values {
		params = append(params, TemplateParameter{Type: ParameterTypeText, Text: v})
	}
	return params
}

func (m TemplateMessage) HasRecipient() bool { return strings.TrimSpace(m.To) != "" }

// LocaleOr returns the message locale, or fallback when none was set.
func (m TemplateMessage) LocaleOr(fallback string) string {
	if l := CleanString(m.Locale); l != "" {
		return l
	}
	return fallback
}
