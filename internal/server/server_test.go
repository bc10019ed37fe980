package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jalstore/storefront/internal/config"
	"github.com/jalstore/storefront/internal/logging"
)

func testConfig() config.Config {
	return config.Config{
		AppName:        "Jal",
		Env:            "test",
		Port:           "0",
		JWTSecret:      "test-secret",
		IdempotencyTTL: time.Minute,
		SMS:            config.SMSConfig{Provider: "log", Timeout: time.Second},
		OTP: config.OTPConfig{
			Store:          config.OTPStoreMemory,
			Brand:          "Jal",
			CountryCode:    "91",
			MaxAttempts:    5,
			ReaperSchedule: "@every 1m",
			Debug:          true,
		},
	}
}

func do(t *testing.T, srv *Server, method, path, body, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestServerOTPLoginEndToEnd(t *testing.T) {
	srv, err := New(context.Background(), testConfig(), nil, nil, nil, logging.Discard())
	require.NoError(t, err)

	status, ack := do(t, srv, http.MethodPost, "/api/auth/otp/request", `{"phone":"9876543210"}`, "")
	require.Equal(t, http.StatusOK, status)
	code, _ := ack["devCode"].(string)
	require.Len(t, code, 6)

	status, body := do(t, srv, http.MethodPost, "/api/auth/otp/verify", `{"phone":"9876543210","code":"000000"}`, "")
	if code != "000000" {
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "Invalid OTP", body["message"])
	}

	status, session := do(t, srv, http.MethodPost, "/api/auth/otp/verify", `{"phone":"9876543210","code":"`+code+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	token, _ := session["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "+919876543210", session["phone"])
	assert.Equal(t, "User", session["name"])

	status, me := do(t, srv, http.MethodGet, "/api/auth/me", "", token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, session["id"], me["id"])

	status, _ = do(t, srv, http.MethodPost, "/api/orders", `{"items":[{"name":"Can","price":9000,"quantity":1}],"totalPrice":9000}`, token)
	assert.Equal(t, http.StatusCreated, status)

	status, forbidden := do(t, srv, http.MethodPost, "/api/products", `{"name":"Can","price":9000}`, token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admin access required", forbidden["message"])

	status, _ = do(t, srv, http.MethodGet, "/api/admin/users", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestServerHealthAndPing(t *testing.T) {
	srv, err := New(context.Background(), testConfig(), nil, nil, nil, logging.Discard())
	require.NoError(t, err)

	status, health := do(t, srv, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, config.OTPStoreMemory, health["otp_store"])

	status, ping := do(t, srv, http.MethodGet, "/api/ping", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, ping["request_id"])
}

func TestServerRequiresSMSCredentialsOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"
	cfg.SMS.Provider = "msg91"
	_, err := New(context.Background(), cfg, nil, nil, nil, logging.Discard())
	require.Error(t, err)
}
