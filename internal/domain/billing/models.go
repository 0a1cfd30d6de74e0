package billing

import "time"

type Plan struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Payment struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	PlanCode    string    `json:"plan"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	GatewayRef  string    `json:"gatewayRef,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CheckoutResult is returned to the client so it can hand the secret to
// the gateway's payment widget.
type CheckoutResult struct {
	Payment      Payment `json:"payment"`
	ClientSecret string  `json:"clientSecret,omitempty"`
}

// WebhookEvent is the gateway's status push, parsed from the signed body.
type WebhookEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	IntentID string `json:"intentId"`
	Status   string `json:"status"`
}

type ReconcileResult struct {
	Checked  int `json:"checked"`
	Advanced int `json:"advanced"`
	Errors   int `json:"errors"`
}
