package billing

import (
	"context"
	"time"
)

type StoreAPI interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	FindPlan(ctx context.Context, code string) (Plan, error)

	CreatePayment(ctx context.Context, accountID, planCode string, amountCents int64, currency string) (Payment, error)
	FindPayment(ctx context.Context, id string) (Payment, error)
	FindPaymentByGatewayRef(ctx context.Context, ref string) (Payment, error)
	SetGatewayRef(ctx context.Context, paymentID, ref string) error
	// UpdateStatus moves a payment from one status to another. It reports
	// false when the payment was no longer in the expected status, which
	// means a concurrent writer got there first.
	UpdateStatus(ctx context.Context, paymentID, from, to string) (bool, error)
	ListForAccount(ctx context.Context, accountID string, limit, offset int) ([]Payment, error)
	// ListStale returns non-terminal payments untouched since the cutoff,
	// oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Payment, error)

	// MarkEventProcessed records a webhook event id. It reports false when
	// the id was already recorded.
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}
