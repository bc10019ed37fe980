package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jalstore/storefront/internal/config"
	"github.com/jalstore/storefront/internal/phone"
)

const (
	mobizonDefaultBaseURL = "https://api.mobizon.kz"
	mobizonSendPath       = "/service/message/sendsmsmessage"
)

type mobizonResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

// MobizonSender sends through the Mobizon form API. Recipients are digits only.
type MobizonSender struct {
	cfg     config.MobizonConfig
	client  *http.Client
	timeout time.Duration
}

// NewMobizon constructs a Mobizon sender.
func NewMobizon(cfg config.MobizonConfig, client *http.Client, timeout time.Duration) *MobizonSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = mobizonDefaultBaseURL
	}
	return &MobizonSender{cfg: cfg, client: client, timeout: timeout}
}

// Name identifies the provider.
func (s *MobizonSender) Name() string { return ProviderMobizon }

// Validate checks that the API key is set.
func (s *MobizonSender) Validate() error {
	if s.cfg.APIKey == "" {
		return fmt.Errorf("%w: MOBIZON_API_KEY", ErrMissingCredentials)
	}
	return nil
}

// Send posts the message as a form.
func (s *MobizonSender) Send(ctx context.Context, phoneKey, text string) (Receipt, error) {
	if err := s.Validate(); err != nil {
		return Receipt{}, err
	}
	form := url.Values{
		"apiKey":    {s.cfg.APIKey},
		"recipient": {phone.Digits(phoneKey)},
		"text":      {text},
	}
	if s.cfg.Sender != "" {
		form.Set("from", s.cfg.Sender)
	}

	status, body, err := do(ctx, s.client, s.timeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+mobizonSendPath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return Receipt{}, err
	}
	if status < 200 || status > 299 {
		return Receipt{}, fmt.Errorf("%w: mobizon returned status %d", ErrDelivery, status)
	}

	var res mobizonResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return Receipt{}, fmt.Errorf("%w: decode mobizon response: %w", ErrDelivery, err)
	}
	if res.Code != 0 {
		return Receipt{}, fmt.Errorf("%w: mobizon returned error code %d: %s", ErrDelivery, res.Code, res.Message)
	}
	return Receipt{Provider: ProviderMobizon, MessageID: res.Data.MessageID}, nil
}
