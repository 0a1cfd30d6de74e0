package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"visapath/internal/platform/config"
	"visapath/internal/resilience"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) Gateway {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(config.Config{PaymentsBaseURL: server.URL, PaymentsAPIKey: "sk-test"})
}

func TestCreateIntent(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/intents" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var req CreateIntentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.AmountCents != 49900 || req.Currency != "usd" {
			t.Errorf("unexpected request payload %+v", req)
		}
		_ = json.NewEncoder(w).Encode(Intent{ID: "pi_1", Status: "pending", AmountCents: req.AmountCents, Currency: req.Currency, ClientSecret: "cs_1"})
	})

	intent, err := gateway.CreateIntent(context.Background(), CreateIntentRequest{
		AmountCents: 49900,
		Currency:    "usd",
		Metadata:    map[string]string{"paymentId": "p1"},
	})
	if err != nil {
		t.Fatalf("CreateIntent failed: %v", err)
	}
	if intent.ID != "pi_1" || intent.Status != "pending" || intent.ClientSecret != "cs_1" {
		t.Errorf("unexpected intent %+v", intent)
	}
}

func TestGetIntent(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/intents/pi_9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Intent{ID: "pi_9", Status: "succeeded", AmountCents: 9900, Currency: "usd"})
	})

	intent, err := gateway.GetIntent(context.Background(), "pi_9")
	if err != nil {
		t.Fatalf("GetIntent failed: %v", err)
	}
	if intent.Status != "succeeded" {
		t.Errorf("expected succeeded, got %q", intent.Status)
	}
}

func TestGatewayErrorsCarryStatusCode(t *testing.T) {
	gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "maintenance window"}})
	})

	_, err := gateway.CreateIntent(context.Background(), CreateIntentRequest{AmountCents: 100, Currency: "usd"})
	var statusErr *resilience.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected code 503, got %d", statusErr.Code)
	}
	if statusErr.Message != "maintenance window" {
		t.Errorf("expected gateway message, got %q", statusErr.Message)
	}
}

func TestUnconfiguredGateway(t *testing.T) {
	gateway := New(config.Config{})
	if _, err := gateway.CreateIntent(context.Background(), CreateIntentRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := gateway.GetIntent(context.Background(), "pi_1"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
