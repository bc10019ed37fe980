// Package sms delivers text messages through a configurable SMS provider.
package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jalstore/storefront/internal/config"
)

// Supported providers.
const (
	ProviderMSG91   = "msg91"
	ProviderMobizon = "mobizon"
	ProviderBestSMS = "bestsms"
	ProviderLog     = "log"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseBody = 64 << 10
)

var (
	// ErrMissingCredentials indicates the selected provider is not configured.
	ErrMissingCredentials = errors.New("sms provider credentials missing")
	// ErrDelivery indicates the provider did not accept the message.
	ErrDelivery = errors.New("sms delivery failed")
)

// Receipt identifies an accepted message at the provider.
type Receipt struct {
	Provider  string
	MessageID string
}

// Sender delivers a message to a normalized phone key.
type Sender interface {
	Send(ctx context.Context, phoneKey, text string) (Receipt, error)
	// Validate reports ErrMissingCredentials when the provider cannot send.
	Validate() error
	Name() string
}

// New builds the Sender selected by cfg.Provider. Unknown providers fall
// back to MSG91 with a warning.
func New(cfg config.SMSConfig, logger *slog.Logger) Sender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Provider {
	case ProviderMSG91, "":
		return NewMSG91(cfg.MSG91, client, timeout)
	case ProviderMobizon:
		return NewMobizon(cfg.Mobizon, client, timeout)
	case ProviderBestSMS:
		return NewBestSMS(cfg.BestSMS, client, timeout)
	case ProviderLog:
		return NewLogSender(logger)
	default:
		logger.Warn("unknown SMS_PROVIDER, defaulting to msg91", slog.String("provider", cfg.Provider))
		return NewMSG91(cfg.MSG91, client, timeout)
	}
}

// do executes req under timeout and returns the status and a bounded body.
func do(ctx context.Context, client *http.Client, timeout time.Duration, build func(ctx context.Context) (*http.Request, error)) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := build(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrDelivery, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read response: %w", ErrDelivery, err)
	}
	return resp.StatusCode, body, nil
}
