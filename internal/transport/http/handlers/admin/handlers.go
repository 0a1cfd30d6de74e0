package adminhandler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/activity"
	"visapath/internal/domain/cases"
	"visapath/internal/domain/retention"
	"visapath/internal/platform/jobs"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

type Handler struct {
	Accounts   *accounts.Service
	Cases      *cases.Service
	Retention  *retention.Service
	Jobs       *jobs.Service
	Activity   *activity.Service
	CronSecret string
}

func NewHandler(accountsSvc *accounts.Service, casesSvc *cases.Service, retentionSvc *retention.Service, jobsSvc *jobs.Service, activitySvc *activity.Service, cronSecret string) *Handler {
	return &Handler{
		Accounts:   accountsSvc,
		Cases:      casesSvc,
		Retention:  retentionSvc,
		Jobs:       jobsSvc,
		Activity:   activitySvc,
		CronSecret: cronSecret,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireRole(accounts.RoleAdmin))
		r.Get("/deletions", h.handleDeletions)
		r.Get("/jobs/runs", h.handleJobRuns)
		r.Get("/stats", h.handleStats)
		r.Post("/accounts/{accountID}/schedule-deletion", h.handleScheduleDeletion)
		r.Post("/accounts/{accountID}/cancel-deletion", h.handleCancelDeletion)
	})
}

// RegisterTrigger mounts the external scheduler entry point. It sits
// outside the JWT group; the bearer value is the shared cron secret.
func (h *Handler) RegisterTrigger(r chi.Router) {
	r.Get("/admin/retention/run", h.handleTriggerRun)
}

// handleTriggerRun speaks a plainer dialect than the rest of the API:
// the caller is a cron job checking "success" and an "error" string,
// not a client expecting the response envelope.
func (h *Handler) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || h.CronSecret == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.CronSecret)) != 1 {
		writePlain(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}

	result, err := h.Jobs.RunNow(r.Context(), jobs.JobRetention, func(ctx context.Context) (any, error) {
		return h.Retention.Run(ctx)
	})
	if err != nil {
		if errors.Is(err, retention.ErrPipelineRunning) {
			writePlain(w, http.StatusConflict, map[string]any{"error": "deletion pipeline already running"})
			return
		}
		writePlain(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	pipeline, _ := result.(retention.PipelineResult)
	writePlain(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "deletion pipeline completed",
		"scheduling": pipeline.Scheduling,
		"deletion":   pipeline.Deletion,
	})
}

func writePlain(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to encode trigger response", "error", err)
	}
}

func (h *Handler) handleDeletions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 50, 200)
	items, err := h.Retention.PendingDeletions(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list pending deletions", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 20, 100)
	runs, err := h.Jobs.ListRuns(r.Context(), r.URL.Query().Get("type"), page.Limit)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list job runs", reqID)
		return
	}
	api.Success(w, runs, reqID)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	byStatus, err := h.Cases.Stats(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load stats", reqID)
		return
	}
	_, clients, err := h.Accounts.List(r.Context(), accounts.RoleClient, 1, 0)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load stats", reqID)
		return
	}
	api.Success(w, map[string]any{
		"casesByStatus": byStatus,
		"clientCount":   clients,
	}, reqID)
}

func (h *Handler) handleScheduleDeletion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	accountID := chi.URLParam(r, "accountID")

	account, err := h.Accounts.RequestDeletion(r.Context(), accountID, accounts.DeletionReasonAdminRequested)
	if err != nil {
		h.failDeletionChange(w, err, reqID)
		return
	}

	h.record(r, accountID, user.AccountID, "account.deletion_scheduled", "account", accountID,
		map[string]any{"purgeAt": account.DeletionScheduledFor})
	api.Success(w, account, reqID)
}

func (h *Handler) handleCancelDeletion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	accountID := chi.URLParam(r, "accountID")

	account, err := h.Accounts.CancelDeletion(r.Context(), accountID)
	if err != nil {
		h.failDeletionChange(w, err, reqID)
		return
	}

	h.record(r, accountID, user.AccountID, "account.deletion_canceled", "account", accountID, nil)
	api.Success(w, account, reqID)
}

func (h *Handler) failDeletionChange(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "account not found", reqID)
	case errors.Is(err, accounts.ErrDeletionAlreadyScheduled):
		api.Fail(w, http.StatusConflict, "deletion_already_scheduled", "account deletion is already scheduled", reqID)
	case errors.Is(err, accounts.ErrNoScheduledDeletion):
		api.Fail(w, http.StatusConflict, "no_scheduled_deletion", "account has no scheduled deletion", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to update deletion schedule", reqID)
	}
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
