package messageshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/messages"
	"visapath/internal/domain/notifications"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

type Handler struct {
	Messages      *messages.Service
	Notifications *notifications.Service
}

func NewHandler(messagesSvc *messages.Service, notificationsSvc *notifications.Service) *Handler {
	return &Handler{Messages: messagesSvc, Notifications: notificationsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/messages/unread-count", h.handleUnreadCount)
}

// CaseRoutes is mounted under /cases/{caseID} by the cases handler.
func (h *Handler) CaseRoutes(r chi.Router) {
	r.Route("/messages", func(r chi.Router) {
		r.Post("/", h.handleSend)
		r.Get("/", h.handleThread)
	})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	msg, err := h.Messages.Send(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "caseID"), payload.Body)
	if err != nil {
		failMessage(w, err, "message_send_failed", "failed to send message", reqID)
		return
	}

	if h.Notifications != nil {
		notifyErr := h.Notifications.Create(r.Context(), msg.RecipientID, notifications.TypeMessageReceived,
			"New message", "You have a new message on one of your cases.")
		if notifyErr != nil {
			slog.Warn("message notification failed", "accountId", msg.RecipientID, "err", notifyErr)
		}
	}
	api.Created(w, msg, reqID)
}

// handleThread lists the conversation and marks the caller's unread
// messages in it as read.
func (h *Handler) handleThread(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	items, err := h.Messages.Thread(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "caseID"), page.Limit, page.Offset)
	if err != nil {
		failMessage(w, err, "message_list_failed", "failed to load messages", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	count, err := h.Messages.UnreadCount(r.Context(), user.AccountID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "unread_count_failed", "failed to count unread messages", reqID)
		return
	}
	api.Success(w, map[string]int{"unread": count}, reqID)
}

func failMessage(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, messages.ErrEmptyBody), errors.Is(err, messages.ErrBodyTooLong), errors.Is(err, messages.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, messages.ErrCaseMissing):
		api.Fail(w, http.StatusNotFound, "case_not_found", "case not found", reqID)
	case errors.Is(err, messages.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not a participant of this case", reqID)
	case errors.Is(err, messages.ErrNoAgent):
		api.Fail(w, http.StatusConflict, "no_agent_assigned", "case has no assigned agent yet", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}
