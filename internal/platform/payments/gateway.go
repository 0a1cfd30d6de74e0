package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"visapath/internal/platform/config"
	"visapath/internal/resilience"
)

// ErrNotConfigured reports that no payment gateway endpoint is set.
var ErrNotConfigured = errors.New("payment gateway not configured")

// Intent is a payment attempt tracked by the external gateway.
type Intent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

// CreateIntentRequest asks the gateway to open a new payment intent.
type CreateIntentRequest struct {
	AmountCents int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Gateway talks to the external payment processor. Failures carry
// *resilience.StatusError so the retry layer can classify them.
type Gateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
}

type noopGateway struct{}

func (noopGateway) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	return nil, ErrNotConfigured
}

func (noopGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	return nil, ErrNotConfigured
}

type httpGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(cfg config.Config) Gateway {
	if cfg.PaymentsBaseURL == "" {
		return noopGateway{}
	}
	return &httpGateway{
		baseURL: strings.TrimRight(cfg.PaymentsBaseURL, "/"),
		apiKey:  cfg.PaymentsAPIKey,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (g *httpGateway) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	return g.do(ctx, http.MethodPost, "/v1/intents", req)
}

func (g *httpGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	return g.do(ctx, http.MethodGet, "/v1/intents/"+url.PathEscape(id), nil)
}

func (g *httpGateway) do(ctx context.Context, method, path string, payload any) (*Intent, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &resilience.StatusError{
			Code:    resp.StatusCode,
			Message: gatewayErrorMessage(body),
		}
	}

	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("parse gateway response: %w", err)
	}
	if intent.ID == "" {
		return nil, errors.New("gateway returned intent without id")
	}
	return &intent, nil
}

func gatewayErrorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return payload.Error.Message
	}
	message := strings.TrimSpace(string(body))
	if len(message) > 200 {
		message = message[:200]
	}
	return message
}
