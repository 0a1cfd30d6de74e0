package settingshandler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/settings"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
)

type Handler struct {
	Settings *settings.Service
}

func NewHandler(settingsSvc *settings.Service) *Handler {
	return &Handler{Settings: settingsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{feature}", h.handleGet)
		r.Put("/{feature}", h.handlePut)
		r.Delete("/{feature}", h.handleDelete)
	})

	r.Route("/admin/settings", func(r chi.Router) {
		r.Use(middleware.RequireRole(accounts.RoleAdmin))
		r.Get("/{key}", h.handleGlobalGet)
		r.Put("/{key}", h.handleGlobalPut)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	prefs, err := h.Settings.ListAccount(r.Context(), user.AccountID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list settings", reqID)
		return
	}
	api.Success(w, prefs, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	feature := chi.URLParam(r, "feature")
	if !settings.ValidFeature(feature) {
		api.Fail(w, http.StatusBadRequest, "unknown_setting", "unknown setting", reqID)
		return
	}

	value, err := h.Settings.GetAccount(r.Context(), user.AccountID, feature)
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "setting not set", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load setting", reqID)
		return
	}
	api.Success(w, map[string]string{"feature": feature, "value": value}, reqID)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	feature := chi.URLParam(r, "feature")
	if !settings.ValidFeature(feature) {
		api.Fail(w, http.StatusBadRequest, "unknown_setting", "unknown setting", reqID)
		return
	}

	var payload struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	if err := h.Settings.SetAccount(r.Context(), user.AccountID, feature, payload.Value); err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to save setting", reqID)
		return
	}
	api.Success(w, map[string]string{"feature": feature, "value": payload.Value}, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	feature := chi.URLParam(r, "feature")
	if !settings.ValidFeature(feature) {
		api.Fail(w, http.StatusBadRequest, "unknown_setting", "unknown setting", reqID)
		return
	}

	if err := h.Settings.DeleteAccount(r.Context(), user.AccountID, feature); err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "setting not set", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to delete setting", reqID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleGlobalGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	key := chi.URLParam(r, "key")
	value, err := h.Settings.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "setting not set", reqID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to load setting", reqID)
		return
	}
	api.Success(w, map[string]string{"key": key, "value": value}, reqID)
}

func (h *Handler) handleGlobalPut(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var payload struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	key := chi.URLParam(r, "key")
	if err := h.Settings.Set(r.Context(), key, payload.Value); err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to save setting", reqID)
		return
	}
	api.Success(w, map[string]string{"key": key, "value": payload.Value}, reqID)
}
