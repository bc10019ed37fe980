package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jalstore/storefront/internal/config"
	"github.com/jalstore/storefront/internal/phone"
)

const (
	msg91DefaultBaseURL = "https://api.msg91.com"
	msg91SendPath       = "/api/v5/sms/send"
	// Route 4 is transactional; country 91 is India.
	msg91Route   = "4"
	msg91Country = "91"
)

type msg91Message struct {
	Message    string   `json:"message"`
	To         []string `json:"to"`
	TemplateID string   `json:"template_id"`
}

type msg91Request struct {
	Sender  string         `json:"sender"`
	Route   string         `json:"route"`
	Country string         `json:"country"`
	SMS     []msg91Message `json:"sms"`
}

type msg91Response struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// MSG91Sender sends through the MSG91 v5 API. Recipients are sent as digits
// without the leading plus sign.
type MSG91Sender struct {
	cfg     config.MSG91Config
	client  *http.Client
	timeout time.Duration
}

// NewMSG91 constructs an MSG91 sender.
func NewMSG91(cfg config.MSG91Config, client *http.Client, timeout time.Duration) *MSG91Sender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = msg91DefaultBaseURL
	}
	return &MSG91Sender{cfg: cfg, client: client, timeout: timeout}
}

// Name identifies the provider.
func (s *MSG91Sender) Name() string { return ProviderMSG91 }

// Validate checks that the API key, sender id and DLT template id are set.
func (s *MSG91Sender) Validate() error {
	var missing []string
	if s.cfg.APIKey == "" {
		missing = append(missing, "MSG91_API_KEY")
	}
	if s.cfg.SenderID == "" {
		missing = append(missing, "MSG91_SENDER_ID")
	}
	if s.cfg.TemplateID == "" {
		missing = append(missing, "MSG91_TEMPLATE_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Send posts the message. The text must match the approved DLT template.
func (s *MSG91Sender) Send(ctx context.Context, phoneKey, text string) (Receipt, error) {
	if err := s.Validate(); err != nil {
		return Receipt{}, err
	}
	payload, err := json.Marshal(msg91Request{
		Sender:  s.cfg.SenderID,
		Route:   msg91Route,
		Country: msg91Country,
		SMS: []msg91Message{{
			Message:    text,
			To:         []string{phone.Digits(phoneKey)},
			TemplateID: s.cfg.TemplateID,
		}},
	})
	if err != nil {
		return Receipt{}, err
	}

	status, body, err := do(ctx, s.client, s.timeout, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+msg91SendPath, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("authkey", s.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return Receipt{}, err
	}
	if status < 200 || status > 299 {
		return Receipt{}, fmt.Errorf("%w: msg91 returned status %d", ErrDelivery, status)
	}

	var res msg91Response
	if err := json.Unmarshal(body, &res); err != nil {
		return Receipt{}, fmt.Errorf("%w: decode msg91 response: %w", ErrDelivery, err)
	}
	if res.Type != "success" && res.RequestID == "" {
		return Receipt{}, fmt.Errorf("%w: msg91 rejected message: %s", ErrDelivery, res.Message)
	}
	id := res.RequestID
	if id == "" {
		id = ProviderMSG91
	}
	return Receipt{Provider: ProviderMSG91, MessageID: id}, nil
}
