package activityhandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/activity"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

type Handler struct {
	Activity *activity.Service
}

func NewHandler(activitySvc *activity.Service) *Handler {
	return &Handler{Activity: activitySvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/activity", func(r chi.Router) {
		r.Use(middleware.RequireRole(accounts.RoleAdmin))
		r.Get("/", h.handleList)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	filter := activity.Filter{
		AccountID:  r.URL.Query().Get("accountId"),
		Action:     r.URL.Query().Get("action"),
		EntityType: r.URL.Query().Get("entityType"),
	}
	v := shared.NewValidator()
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, _ = v.Date("from", raw)
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, _ = v.Date("to", raw)
	}
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, reqID) {
		return
	}
	filter.From = from
	if !to.IsZero() {
		// The to day is included; the store bound is exclusive.
		filter.To = to.AddDate(0, 0, 1)
	}
	page := shared.ParsePagination(r, 50, 500)

	total, err := h.Activity.Count(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to count activity", reqID)
		return
	}
	items, err := h.Activity.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to list activity", reqID)
		return
	}

	api.Success(w, map[string]any{"items": items, "total": total}, reqID)
}
