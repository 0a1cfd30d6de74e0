package identity

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
)

// ErrUserNotFound reports that the identity service has no record for the
// given uid. Callers treating identity sync as best effort ignore it.
var ErrUserNotFound = errors.New("identity user not found")

// Provider mirrors account state into the external identity service that
// backs single sign-on sessions. Local credentials stay in the accounts
// table; the provider only blocks, unblocks or erases the remote record.
type Provider interface {
	CreateUser(ctx context.Context, email, displayName string) (string, error)
	SetDisabled(ctx context.Context, uid string, disabled bool) error
	DeleteUser(ctx context.Context, uid string) error
}

type noopProvider struct{}

func (noopProvider) CreateUser(ctx context.Context, email, displayName string) (string, error) {
	return "", nil
}

func (noopProvider) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	return nil
}

func (noopProvider) DeleteUser(ctx context.Context, uid string) error {
	return nil
}

type httpProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(cfg config.Config) Provider {
	if cfg.IdentityBaseURL == "" {
		return noopProvider{}
	}
	return &httpProvider{
		baseURL: strings.TrimRight(cfg.IdentityBaseURL, "/"),
		apiKey:  cfg.IdentityAPIKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *httpProvider) CreateUser(ctx context.Context, email, displayName string) (string, error) {
	payload := map[string]string{"email": email, "displayName": displayName}
	body, err := p.do(ctx, http.MethodPost, "/v1/users", payload)
	if err != nil {
		return "", err
	}
	var resp struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse identity response: %w", err)
	}
	if resp.UID == "" {
		return "", errors.New("identity service returned empty uid")
	}
	return resp.UID, nil
}

func (p *httpProvider) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	payload := map[string]bool{"disabled": disabled}
	_, err := p.do(ctx, http.MethodPatch, "/v1/users/"+url.PathEscape(uid), payload)
	return err
}

func (p *httpProvider) DeleteUser(ctx context.Context, uid string) error {
	_, err := p.do(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(uid), nil)
	return err
}

func (p *httpProvider) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("identity %s %s: http %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
