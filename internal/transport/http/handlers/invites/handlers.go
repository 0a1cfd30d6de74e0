package inviteshandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/invites"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

type Handler struct {
	Invites *invites.Service
}

func NewHandler(invitesSvc *invites.Service) *Handler {
	return &Handler{Invites: invitesSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/invites", func(r chi.Router) {
		r.Use(middleware.RequireRole(accounts.RoleAgent, accounts.RoleAdmin))
		r.Post("/", h.handleCreate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(accounts.RoleAdmin))
			r.Get("/", h.handleList)
			r.Get("/{inviteID}/usages", h.handleUsages)
			r.Post("/{inviteID}/revoke", h.handleRevoke)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload struct {
		Role      string     `json:"role"`
		MaxUses   int        `json:"maxUses"`
		ExpiresAt *time.Time `json:"expiresAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	switch payload.Role {
	case "", accounts.RoleClient:
	case accounts.RoleAgent, accounts.RoleAdmin:
		// Only admins may mint invites that grant staff access.
		if user.Role != accounts.RoleAdmin {
			api.Fail(w, http.StatusForbidden, "forbidden", "only admins may create staff invites", reqID)
			return
		}
	default:
		api.Fail(w, http.StatusBadRequest, "invalid_role", "unknown role", reqID)
		return
	}
	if payload.ExpiresAt != nil && payload.ExpiresAt.Before(time.Now()) {
		api.Fail(w, http.StatusBadRequest, "invalid_dates", "expiresAt is in the past", reqID)
		return
	}

	inv, err := h.Invites.Create(r.Context(), user.AccountID, payload.Role, payload.MaxUses, payload.ExpiresAt)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to create invite", reqID)
		return
	}
	api.Created(w, inv, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 50, 200)
	items, err := h.Invites.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list invites", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleUsages(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	usages, err := h.Invites.Usages(r.Context(), chi.URLParam(r, "inviteID"))
	if err != nil {
		if errors.Is(err, invites.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "invite not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list invite usages", reqID)
		return
	}
	api.Success(w, usages, reqID)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	if err := h.Invites.Revoke(r.Context(), chi.URLParam(r, "inviteID")); err != nil {
		if errors.Is(err, invites.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "invite not found", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to revoke invite", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "revoked"}, reqID)
}
