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
)

const (
	bestSMSDefaultBaseURL = "https://www.bestsmsbulk.com"
	bestSMSSendPath       = "/bestsmsbulkapi/common/sendSmsAPI.php"
)

type bestSMSResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
}

// BestSMSSender sends through the BestSMSBulk API, which takes its parameters
// in the query string and expects plus-prefixed recipients.
type BestSMSSender struct {
	cfg     config.BestSMSConfig
	client  *http.Client
	timeout time.Duration
}

// NewBestSMS constructs a BestSMSBulk sender.
func NewBestSMS(cfg config.BestSMSConfig, client *http.Client, timeout time.Duration) *BestSMSSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = bestSMSDefaultBaseURL
	}
	return &BestSMSSender{cfg: cfg, client: client, timeout: timeout}
}

// Name identifies the provider.
func (s *BestSMSSender) Name() string { return ProviderBestSMS }

// Validate checks that username, password and sender id are set.
func (s *BestSMSSender) Validate() error {
	var missing []string
	if s.cfg.Username == "" {
		missing = append(missing, "BESTSMS_USERNAME")
	}
	if s.cfg.Password == "" {
		missing = append(missing, "BESTSMS_PASSWORD")
	}
	if s.cfg.SenderID == "" {
		missing = append(missing, "BESTSMS_SENDER_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Send posts the message.
func (s *BestSMSSender) Send(ctx context.Context, phoneKey, text string) (Receipt, error) {
	if err := s.Validate(); err != nil {
		return Receipt{}, err
	}
	destination := phoneKey
	if !strings.HasPrefix(destination, "+") {
		destination = "+" + destination
	}
	params := url.Values{}
	params.Set("username", s.cfg.Username)
	params.Set("password", s.cfg.Password)
	params.Set("senderid", s.cfg.SenderID)
	params.Set("destination", destination)
	params.Set("message", text)

	status, body, err := do(ctx, s.client, s.timeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+bestSMSSendPath+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		return req, nil
	})
	if err != nil {
		return Receipt{}, err
	}
	if status != http.StatusOK {
		return Receipt{}, fmt.Errorf("%w: bestsms returned status %d", ErrDelivery, status)
	}

	var res bestSMSResponse
	if err := json.Unmarshal(body, &res); err != nil {
		// Some accounts answer with a plain text acknowledgement.
		plain := strings.ToLower(strings.TrimSpace(string(body)))
		if strings.Contains(plain, "success") || strings.Contains(plain, "sent") {
			return Receipt{Provider: ProviderBestSMS, MessageID: ProviderBestSMS}, nil
		}
		return Receipt{}, fmt.Errorf("%w: decode bestsms response: %w", ErrDelivery, err)
	}
	if res.Status != "success" && res.Status != "sent" {
		return Receipt{}, fmt.Errorf("%w: bestsms rejected message: %s", ErrDelivery, res.Message)
	}
	id := res.Data.MessageID
	if id == "" {
		id = ProviderBestSMS
	}
	return Receipt{Provider: ProviderBestSMS, MessageID: id}, nil
}
