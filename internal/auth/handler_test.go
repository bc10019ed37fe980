package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/jalstore/storefront/internal/identity"
	"github.com/jalstore/storefront/internal/logging"
	"github.com/jalstore/storefront/internal/otp"
	"github.com/jalstore/storefront/internal/sms"
)

type captureSender struct {
	mu   sync.Mutex
	last string
	err  error
}

func (s *captureSender) Name() string    { return "capture" }
func (s *captureSender) Validate() error { return nil }

func (s *captureSender) Send(_ context.Context, _ string, text string) (sms.Receipt, error) {
	if s.err != nil {
		return sms.Receipt{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = regexp.MustCompile(`\d{6}`).FindString(text)
	return sms.Receipt{Provider: "capture"}, nil
}

func newTestApp(t *testing.T, sender *captureSender, debug bool) (*fiber.App, *Issuer) {
	t.Helper()
	issuer := NewIssuer("secret", "jal")
	users := identity.NewService(identity.NewMemoryRepository())
	svc := otp.NewService(otp.NewMemoryStore(), sender, users, issuer, logging.Discard(), otp.Options{
		Debug:    debug,
		HashCost: bcrypt.MinCost,
	})
	h := NewHandler(svc, logging.Discard())

	app := fiber.New()
	app.Post("/auth/otp/request", h.RequestOTP)
	app.Post("/auth/otp/verify", h.VerifyOTP)
	return app, issuer
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func TestOTPLoginFlow(t *testing.T) {
	sender := &captureSender{}
	app, issuer := newTestApp(t, sender, false)

	resp := postJSON(t, app, "/auth/otp/request", `{"phone":"98765 43210"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var ack map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ack["ok"] != true || ack["message"] != "OTP sent" {
		t.Fatalf("unexpected ack %v", ack)
	}
	if _, ok := ack["devCode"]; ok {
		t.Fatalf("devCode must not leak outside debug")
	}

	resp = postJSON(t, app, "/auth/otp/verify", `{"phone":"9876543210","code":"`+sender.last+`","name":"Asha"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out verifyOTPResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Phone != "+919876543210" || out.Name != "Asha" || out.Role != identity.RoleUser || out.ID == "" || out.LegacyID != out.ID {
		t.Fatalf("unexpected response %+v", out)
	}
	claims, err := issuer.Verify(out.Token)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if claims.ID != out.ID {
		t.Fatalf("token subject mismatch")
	}

	resp = postJSON(t, app, "/auth/otp/verify", `{"phone":"9876543210","code":"`+sender.last+`"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on replay, got %d", resp.StatusCode)
	}
}

func TestOTPErrorStatuses(t *testing.T) {
	sender := &captureSender{}
	app, _ := newTestApp(t, sender, false)

	cases := []struct {
		name, path, body string
		want             int
	}{
		{"bad json", "/auth/otp/request", `{`, http.StatusBadRequest},
		{"short phone", "/auth/otp/request", `{"phone":"123"}`, http.StatusBadRequest},
		{"missing code", "/auth/otp/verify", `{"phone":"9876543210"}`, http.StatusBadRequest},
		{"not requested", "/auth/otp/verify", `{"phone":"9876543210","code":"123456"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if resp := postJSON(t, app, tc.path, tc.body); resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestOTPDeliveryFailureIs502(t *testing.T) {
	sender := &captureSender{err: sms.ErrDelivery}
	app, _ := newTestApp(t, sender, false)

	resp := postJSON(t, app, "/auth/otp/request", `{"phone":"9876543210"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestOTPDebugIncludesDevCode(t *testing.T) {
	sender := &captureSender{}
	app, _ := newTestApp(t, sender, true)

	resp := postJSON(t, app, "/auth/otp/request", `{"phone":"9876543210"}`)
	var ack requestOTPResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ack.DevCode == "" || ack.DevCode != sender.last {
		t.Fatalf("expected devCode %q, got %q", sender.last, ack.DevCode)
	}
}
