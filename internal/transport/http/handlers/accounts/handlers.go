package accountshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/activity"
	"visapath/internal/domain/notifications"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

type Handler struct {
	Accounts      *accounts.Service
	Activity      *activity.Service
	Notifications *notifications.Service
}

func NewHandler(accountsSvc *accounts.Service, activitySvc *activity.Service, notificationsSvc *notifications.Service) *Handler {
	return &Handler{Accounts: accountsSvc, Activity: activitySvc, Notifications: notificationsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.handleProfile)
		r.Put("/", h.handleUpdateProfile)
		r.Post("/password", h.handleChangePassword)
		r.Post("/deletion-request", h.handleRequestDeletion)
		r.Delete("/deletion-request", h.handleCancelDeletion)
	})
	r.Route("/accounts", func(r chi.Router) {
		r.Use(middleware.RequireRole(accounts.RoleAdmin))
		r.Get("/", h.handleList)
		r.Get("/{accountID}", h.handleGet)
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	account, err := h.Accounts.Get(r.Context(), user.AccountID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "profile_failed", "failed to load profile", reqID)
		return
	}
	api.Success(w, account, reqID)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload struct {
		FullName        string `json:"fullName"`
		Phone           string `json:"phone"`
		CountryOfOrigin string `json:"countryOfOrigin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	account, err := h.Accounts.UpdateProfile(r.Context(), user.AccountID, payload.FullName, payload.Phone, payload.CountryOfOrigin)
	switch {
	case errors.Is(err, accounts.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "profile_update_failed", "failed to update profile", reqID)
		return
	}

	h.record(r, user.AccountID, user.AccountID, "account.profile_update", "account", user.AccountID)
	api.Success(w, account, reqID)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	err := h.Accounts.ChangePassword(r.Context(), user.AccountID, payload.CurrentPassword, payload.NewPassword)
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		api.Fail(w, http.StatusBadRequest, "invalid_credentials", "current password is wrong", reqID)
		return
	case errors.Is(err, accounts.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "password_change_failed", "failed to change password", reqID)
		return
	}

	h.record(r, user.AccountID, user.AccountID, "account.password_change", "account", user.AccountID)
	api.Success(w, map[string]string{"status": "password_changed"}, reqID)
}

// handleRequestDeletion starts the grace period: the account is
// deactivated immediately and purged after it elapses.
func (h *Handler) handleRequestDeletion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	account, err := h.Accounts.RequestDeletion(r.Context(), user.AccountID, accounts.DeletionReasonUserRequested)
	switch {
	case errors.Is(err, accounts.ErrDeletionAlreadyScheduled):
		api.Fail(w, http.StatusConflict, "deletion_already_scheduled", "account deletion is already scheduled", reqID)
		return
	case errors.Is(err, accounts.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "account_not_found", "account not found", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "deletion_request_failed", "failed to schedule deletion", reqID)
		return
	}

	h.record(r, user.AccountID, user.AccountID, "account.deletion_request", "account", user.AccountID)
	h.notifyScheduled(r, account)
	api.Success(w, account, reqID)
}

func (h *Handler) handleCancelDeletion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	account, err := h.Accounts.CancelDeletion(r.Context(), user.AccountID)
	switch {
	case errors.Is(err, accounts.ErrNoScheduledDeletion):
		api.Fail(w, http.StatusConflict, "no_scheduled_deletion", "account has no scheduled deletion", reqID)
		return
	case errors.Is(err, accounts.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "account_not_found", "account not found", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "deletion_cancel_failed", "failed to cancel deletion", reqID)
		return
	}

	h.record(r, user.AccountID, user.AccountID, "account.deletion_cancel", "account", user.AccountID)
	api.Success(w, account, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 50, 200)
	items, total, err := h.Accounts.List(r.Context(), r.URL.Query().Get("role"), page.Limit, page.Offset)
	switch {
	case errors.Is(err, accounts.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "account_list_failed", "failed to list accounts", reqID)
		return
	}

	api.Success(w, map[string]any{"items": items, "total": total}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	account, err := h.Accounts.Get(r.Context(), chi.URLParam(r, "accountID"))
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "account_not_found", "account not found", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "account_load_failed", "failed to load account", reqID)
		return
	}
	api.Success(w, account, reqID)
}

func (h *Handler) notifyScheduled(r *http.Request, account accounts.Account) {
	if h.Notifications == nil || account.DeletionScheduledFor == nil {
		return
	}
	purgeDate := account.DeletionScheduledFor.UTC().Format("2006-01-02")
	err := h.Notifications.Create(r.Context(), account.ID, notifications.TypeDeletionScheduled,
		"Account deletion scheduled",
		"Your account and all associated data will be permanently deleted on "+purgeDate+". Sign in and cancel the request before then to keep your account.")
	if err != nil {
		slog.Warn("deletion notice failed", "accountId", account.ID, "err", err)
	}
}

func (h *Handler) record(r *http.Request, accountID, actorID, action, entityType, entityID string) {
	if h.Activity == nil {
		return
	}
	ctx := r.Context()
	if err := h.Activity.Record(ctx, accountID, actorID, action, entityType, entityID, middleware.GetRequestID(ctx), shared.ClientIP(r), nil); err != nil {
		slog.Warn("activity record failed", "action", action, "err", err)
	}
}
