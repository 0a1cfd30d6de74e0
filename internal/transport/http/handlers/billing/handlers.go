package billinghandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/activity"
	"visapath/internal/domain/billing"
	"visapath/internal/resilience"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

const checkoutEndpoint = "POST /billing/checkout"

type Handler struct {
	Billing       *billing.Service
	Activity      *activity.Service
	Idempotency   *middleware.IdempotencyStore
	WebhookSecret string
}

func NewHandler(billingSvc *billing.Service, activitySvc *activity.Service, idem *middleware.IdempotencyStore, webhookSecret string) *Handler {
	return &Handler{
		Billing:       billingSvc,
		Activity:      activitySvc,
		Idempotency:   idem,
		WebhookSecret: webhookSecret,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Get("/plans", h.handlePlans)
		r.Post("/checkout", h.handleCheckout)
		r.Get("/payments", h.handleListPayments)
		r.Get("/payments/{paymentID}", h.handleGetPayment)
	})
}

// RegisterWebhook mounts the gateway callback outside the authenticated
// group; the request is authenticated by its HMAC signature instead.
func (h *Handler) RegisterWebhook(r chi.Router) {
	r.Post("/webhooks/payments", h.handleWebhook)
}

func (h *Handler) handlePlans(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	plans, err := h.Billing.Plans(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list plans", reqID)
		return
	}
	api.Success(w, plans, reqID)
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if payload.Plan == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "plan is required", reqID)
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	requestHash := middleware.RequestHash([]byte(payload.Plan))
	if idemKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.AccountID, checkoutEndpoint, idemKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was already used with a different payload", reqID)
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "endpoint", checkoutEndpoint, "error", err)
		}
		if found {
			api.Success(w, json.RawMessage(stored), reqID)
			return
		}
	}

	result, err := h.Billing.Checkout(r.Context(), user.AccountID, payload.Plan)
	if err != nil {
		h.failCheckout(w, err, reqID)
		return
	}

	if idemKey != "" && h.Idempotency != nil {
		body, err := json.Marshal(result)
		if err == nil {
			if err := h.Idempotency.Save(r.Context(), user.AccountID, checkoutEndpoint, idemKey, requestHash, body); err != nil {
				slog.Warn("idempotency save failed", "endpoint", checkoutEndpoint, "error", err)
			}
		}
	}

	h.record(r, user.AccountID, user.AccountID, "billing.checkout", "payment", result.Payment.ID,
		map[string]any{"plan": payload.Plan, "amountCents": result.Payment.AmountCents})

	api.Created(w, result, reqID)
}

func (h *Handler) failCheckout(w http.ResponseWriter, err error, reqID string) {
	var statusErr *resilience.StatusError
	switch {
	case errors.Is(err, billing.ErrPlanNotFound):
		api.Fail(w, http.StatusNotFound, "plan_not_found", "unknown plan", reqID)
	case errors.Is(err, resilience.ErrServiceUnavailable):
		api.Fail(w, http.StatusServiceUnavailable, "payment_unavailable", "payment provider is temporarily unavailable, try again later", reqID)
	case errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500:
		api.Fail(w, http.StatusBadGateway, "payment_rejected", "payment provider rejected the request", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "checkout failed", reqID)
	}
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	items, err := h.Billing.PaymentsForAccount(r.Context(), user.AccountID, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list payments", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	payment, err := h.Billing.Get(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "paymentID"))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrPaymentNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "payment not found", reqID)
		case errors.Is(err, billing.ErrForbidden):
			api.Fail(w, http.StatusForbidden, "forbidden", "payment belongs to another account", reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load payment", reqID)
		}
		return
	}
	api.Success(w, payment, reqID)
}

// handleWebhook acks with 200 whenever retrying cannot help: replayed
// events, unknown intents and stale statuses are all converged later by
// the reconcile job. Non-2xx is reserved for cases the gateway should
// retry, like a database outage.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "failed to read body", reqID)
		return
	}

	if !billing.VerifySignature(h.WebhookSecret, body, r.Header.Get("X-Webhook-Signature")) {
		api.Fail(w, http.StatusUnauthorized, "invalid_signature", "webhook signature mismatch", reqID)
		return
	}

	var ev billing.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid event payload", reqID)
		return
	}

	if err := h.Billing.HandleWebhook(r.Context(), ev); err != nil {
		switch {
		case errors.Is(err, billing.ErrEventReplayed):
			api.Success(w, map[string]any{"received": true, "duplicate": true}, reqID)
		case errors.Is(err, billing.ErrPaymentNotFound):
			slog.Warn("webhook for unknown intent", "eventId", ev.ID, "intentId", ev.IntentID)
			api.Success(w, map[string]any{"received": true}, reqID)
		case errors.Is(err, billing.ErrUnknownStatus):
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "malformed event", reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to process event", reqID)
		}
		return
	}

	api.Success(w, map[string]any{"received": true}, reqID)
}

func (h *Handler) record(r *http.Request, accountID, actorID, action, entityType, entityID string, details map[string]any) {
	if h.Activity == nil {
		return
	}
	ctx := r.Context()
	err := h.Activity.Record(ctx, accountID, actorID, action, entityType, entityID,
		middleware.GetRequestID(ctx), shared.ClientIP(r), details)
	if err != nil {
		slog.Warn("failed to record activity", "action", action, "error", err)
	}
}
