package authhandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"visapath/internal/auth"
	"visapath/internal/domain/accounts"
	"visapath/internal/domain/activity"
	"visapath/internal/domain/invites"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

type Handler struct {
	Accounts *accounts.Service
	Invites  *invites.Service
	Activity *activity.Service
	Secret   string
	TokenTTL time.Duration
}

func NewHandler(accountsSvc *accounts.Service, invitesSvc *invites.Service, activitySvc *activity.Service, secret string, ttl time.Duration) *Handler {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Handler{Accounts: accountsSvc, Invites: invitesSvc, Activity: activitySvc, Secret: secret, TokenTTL: ttl}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Get("/invite", h.handleInviteCheck)
	})
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	FullName        string `json:"fullName"`
	Phone           string `json:"phone"`
	CountryOfOrigin string `json:"countryOfOrigin"`
	InviteCode      string `json:"inviteCode"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates an account behind a valid invite code. The
// invite decides the role, so a client invite can never mint staff.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload registerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	v.Required("email", payload.Email, "email is required")
	v.Required("password", payload.Password, "password is required")
	v.Required("fullName", payload.FullName, "full name is required")
	v.Required("inviteCode", payload.InviteCode, "an invite code is required to register")
	if v.Reject(w, reqID) {
		return
	}

	invite, err := h.Invites.Validate(r.Context(), strings.TrimSpace(payload.InviteCode))
	if err != nil {
		failInvite(w, err, reqID)
		return
	}

	account, err := h.Accounts.Register(r.Context(), accounts.RegisterInput{
		Email:           payload.Email,
		Password:        payload.Password,
		FullName:        payload.FullName,
		Phone:           payload.Phone,
		CountryOfOrigin: payload.CountryOfOrigin,
		Role:            invite.Role,
	})
	switch {
	case errors.Is(err, accounts.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
		return
	case errors.Is(err, accounts.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email is already registered", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "register_failed", "failed to create account", reqID)
		return
	}

	// The invite was valid moments ago; losing the last use to a
	// concurrent registration only skews usage bookkeeping.
	if _, err := h.Invites.Redeem(r.Context(), payload.InviteCode, account.ID); err != nil {
		slog.Warn("invite redemption failed after registration", "accountId", account.ID, "err", err)
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{AccountID: account.ID, Role: account.Role}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", reqID)
		return
	}

	h.record(r, account.ID, account.ID, "account.register", "account", account.ID)
	api.Created(w, map[string]any{"token": token, "account": account}, reqID)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	account, err := h.Accounts.Authenticate(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	case errors.Is(err, accounts.ErrAccountInactive):
		api.Fail(w, http.StatusForbidden, "account_inactive", "account is deactivated", reqID)
		return
	case err != nil:
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to sign in", reqID)
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{AccountID: account.ID, Role: account.Role}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", reqID)
		return
	}

	h.record(r, account.ID, account.ID, "account.login", "account", account.ID)
	api.Success(w, map[string]any{"token": token, "account": account}, reqID)
}

// handleInviteCheck lets the signup page verify a code before asking for
// the rest of the form. Only the role and validity leak.
func (h *Handler) handleInviteCheck(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "code query parameter is required", reqID)
		return
	}
	invite, err := h.Invites.Validate(r.Context(), code)
	if err != nil {
		failInvite(w, err, reqID)
		return
	}
	api.Success(w, map[string]any{"valid": true, "role": invite.Role}, reqID)
}

func failInvite(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, invites.ErrNotFound):
		api.Fail(w, http.StatusBadRequest, "invalid_invite", "invite code is not recognized", reqID)
	case errors.Is(err, invites.ErrExpired):
		api.Fail(w, http.StatusBadRequest, "invalid_invite", "invite code has expired", reqID)
	case errors.Is(err, invites.ErrExhausted):
		api.Fail(w, http.StatusBadRequest, "invalid_invite", "invite code has no uses left", reqID)
	case errors.Is(err, invites.ErrRevoked):
		api.Fail(w, http.StatusBadRequest, "invalid_invite", "invite code was revoked", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "invite_check_failed", "failed to verify invite code", reqID)
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
