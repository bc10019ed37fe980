package sms

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogSender writes messages to the structured logger instead of a gateway.
// Meant for local development.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a logging sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Name identifies the provider.
func (s *LogSender) Name() string { return ProviderLog }

// Validate always succeeds.
func (s *LogSender) Validate() error { return nil }

// Send logs the message and returns a synthetic message id.
func (s *LogSender) Send(_ context.Context, phoneKey, text string) (Receipt, error) {
	id := uuid.NewString()
	if s != nil && s.logger != nil {
		s.logger.Info("sms", slog.String("destination", phoneKey), slog.String("body", text), slog.String("message_id", id))
	}
	return Receipt{Provider: ProviderLog, MessageID: id}, nil
}
