package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/notifications"
	"visapath/internal/platform/payments"
	"visapath/internal/resilience"
)

// Notifier is satisfied by the notifications service.
type Notifier interface {
	Create(ctx context.Context, accountID, ntype, title, body string) error
}

type Service struct {
	store    StoreAPI
	gateway  payments.Gateway
	breakers *resilience.BreakerRegistry
	notifier Notifier
	minAge   time.Duration

	// retry holds the shared tuning for gateway calls; the operation
	// name is filled in per call site.
	retry resilience.RetryOptions
	now   func() time.Time
}

func New(store StoreAPI, gateway payments.Gateway, breakers *resilience.BreakerRegistry, notifier Notifier, reconcileMinAge time.Duration) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		breakers: breakers,
		notifier: notifier,
		minAge:   reconcileMinAge,
		now:      time.Now,
	}
}

func (s *Service) retryOptions(operation string) resilience.RetryOptions {
	opts := s.retry
	opts.OperationName = operation
	return opts
}

func (s *Service) Plans(ctx context.Context) ([]Plan, error) {
	return s.store.ListPlans(ctx)
}

func (s *Service) PaymentsForAccount(ctx context.Context, accountID string, limit, offset int) ([]Payment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListForAccount(ctx, accountID, limit, offset)
}

func (s *Service) Get(ctx context.Context, actorID, actorRole, paymentID string) (Payment, error) {
	p, err := s.store.FindPayment(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if p.AccountID != actorID && actorRole != accounts.RoleAgent && actorRole != accounts.RoleAdmin {
		return Payment{}, ErrForbidden
	}
	return p, nil
}

// Checkout opens a payment for a plan and asks the gateway for an
// intent. The gateway call runs through the retry layer, so transient
// upstream failures are absorbed and an open breaker short-circuits to
// the user-facing unavailable error.
func (s *Service) Checkout(ctx context.Context, accountID, planCode string) (CheckoutResult, error) {
	plan, err := s.store.FindPlan(ctx, planCode)
	if err != nil {
		return CheckoutResult{}, err
	}

	payment, err := s.store.CreatePayment(ctx, accountID, plan.Code, plan.AmountCents, plan.Currency)
	if err != nil {
		return CheckoutResult{}, err
	}

	result, err := resilience.Retry(ctx, s.breakers, func(ctx context.Context) (any, error) {
		return s.gateway.CreateIntent(ctx, payments.CreateIntentRequest{
			AmountCents: plan.AmountCents,
			Currency:    plan.Currency,
			Metadata: map[string]string{
				"paymentId": payment.ID,
				"accountId": accountID,
				"plan":      plan.Code,
			},
		})
	}, s.retryOptions(opCreateIntent))
	if err != nil {
		if _, failErr := s.store.UpdateStatus(ctx, payment.ID, payment.Status, StatusFailed); failErr != nil {
			slog.Warn("failed to mark payment failed after gateway error",
				"paymentId", payment.ID, "error", failErr)
		}
		return CheckoutResult{}, err
	}
	intent := result.(*payments.Intent)

	if err := s.store.SetGatewayRef(ctx, payment.ID, intent.ID); err != nil {
		return CheckoutResult{}, err
	}
	payment.GatewayRef = intent.ID

	if _, err := s.applyStatus(ctx, payment, intent.Status); err != nil {
		return CheckoutResult{}, err
	}
	payment, err = s.store.FindPayment(ctx, payment.ID)
	if err != nil {
		return CheckoutResult{}, err
	}

	return CheckoutResult{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// HandleWebhook applies a verified gateway event. The event id is
// recorded before anything else; a replay stops there with
// ErrEventReplayed. Events for unknown intents surface ErrPaymentNotFound
// and stale or out-of-order statuses are dropped silently, since the
// reconciliation pass will converge anyway.
func (s *Service) HandleWebhook(ctx context.Context, ev WebhookEvent) error {
	if ev.ID == "" || ev.IntentID == "" {
		return fmt.Errorf("%w: event id and intent id are required", ErrUnknownStatus)
	}

	fresh, err := s.store.MarkEventProcessed(ctx, ev.ID, ev.Type)
	if err != nil {
		return err
	}
	if !fresh {
		return ErrEventReplayed
	}

	payment, err := s.store.FindPaymentByGatewayRef(ctx, ev.IntentID)
	if err != nil {
		return err
	}
	_, err = s.applyStatus(ctx, payment, ev.Status)
	return err
}

// Reconcile re-queries the gateway for payments stuck in a non-terminal
// status beyond the configured age. An open breaker aborts the pass;
// whatever is left stays stale and the next run picks it up.
func (s *Service) Reconcile(ctx context.Context) (ReconcileResult, error) {
	cutoff := s.now().Add(-s.minAge)
	stale, err := s.store.ListStale(ctx, cutoff, 100)
	if err != nil {
		return ReconcileResult{}, err
	}

	res := ReconcileResult{Checked: len(stale)}
	for _, payment := range stale {
		if payment.GatewayRef == "" {
			// Never reached the gateway; close it out.
			if moved, err := s.store.UpdateStatus(ctx, payment.ID, payment.Status, StatusFailed); err != nil {
				res.Errors++
				slog.Warn("reconcile: failing ref-less payment", "paymentId", payment.ID, "error", err)
			} else if moved {
				res.Advanced++
			}
			continue
		}

		ref := payment.GatewayRef
		result, err := resilience.Retry(ctx, s.breakers, func(ctx context.Context) (any, error) {
			return s.gateway.GetIntent(ctx, ref)
		}, s.retryOptions(opGetIntent))
		if errors.Is(err, resilience.ErrServiceUnavailable) {
			slog.Warn("reconcile: gateway unavailable, aborting pass", "checked", res.Checked)
			res.Errors++
			break
		}
		if err != nil {
			res.Errors++
			slog.Warn("reconcile: gateway lookup failed", "paymentId", payment.ID, "error", err)
			continue
		}

		changed, err := s.applyStatus(ctx, payment, result.(*payments.Intent).Status)
		if err != nil {
			res.Errors++
			slog.Warn("reconcile: applying gateway status", "paymentId", payment.ID, "error", err)
			continue
		}
		if changed {
			res.Advanced++
		}
	}
	return res, nil
}

// applyStatus moves a payment forward, dropping repeats and regressions.
// The store update is conditional on the status we read, so losing a
// race to another writer is treated as "nothing to do".
func (s *Service) applyStatus(ctx context.Context, payment Payment, next string) (bool, error) {
	next = strings.ToLower(strings.TrimSpace(next))
	if !ValidStatus(next) {
		return false, fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if !CanAdvance(payment.Status, next) {
		return false, nil
	}

	moved, err := s.store.UpdateStatus(ctx, payment.ID, payment.Status, next)
	if err != nil || !moved {
		return false, err
	}
	s.notifyOutcome(ctx, payment, next)
	return true, nil
}

func (s *Service) notifyOutcome(ctx context.Context, payment Payment, status string) {
	if s.notifier == nil || payment.AccountID == "" {
		return
	}
	amount := formatAmount(payment.AmountCents, payment.Currency)

	var ntype, title, body string
	switch status {
	case StatusSucceeded:
		ntype = notifications.TypePaymentSucceeded
		title = "Payment received"
		body = fmt.Sprintf("Your payment of %s for the %s plan was received.", amount, payment.PlanCode)
	case StatusFailed:
		ntype = notifications.TypePaymentFailed
		title = "Payment failed"
		body = fmt.Sprintf("Your payment of %s for the %s plan did not go through. Please try again.", amount, payment.PlanCode)
	default:
		return
	}
	if err := s.notifier.Create(ctx, payment.AccountID, ntype, title, body); err != nil {
		slog.Warn("failed to create payment notification", "paymentId", payment.ID, "error", err)
	}
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}
