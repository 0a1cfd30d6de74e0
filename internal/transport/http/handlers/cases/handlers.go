package caseshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/activity"
	"visapath/internal/domain/cases"
	"visapath/internal/domain/notifications"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

type Handler struct {
	Cases         *cases.Service
	Activity      *activity.Service
	Notifications *notifications.Service
}

func NewHandler(casesSvc *cases.Service, activitySvc *activity.Service, notificationsSvc *notifications.Service) *Handler {
	return &Handler{Cases: casesSvc, Activity: activitySvc, Notifications: notificationsSvc}
}

// RegisterRoutes mounts the case tree. Nested registrars hang extra
// resources (documents, messages) off /cases/{caseID} so the whole
// subtree lives in one router.
func (h *Handler) RegisterRoutes(r chi.Router, nested ...func(chi.Router)) {
	r.Route("/cases", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{caseID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Post("/submit", h.handleSubmit)
			r.Post("/status", h.handleChangeStatus)
			r.Post("/assign", h.handleAssign)
			for _, register := range nested {
				register(r)
			}
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
	if user.Role != accounts.RoleClient {
		api.Fail(w, http.StatusForbidden, "forbidden", "only clients open cases", reqID)
		return
	}

	var payload struct {
		CaseType    string `json:"caseType"`
		Country     string `json:"country"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	c, err := h.Cases.Create(r.Context(), user.AccountID, cases.CreateInput{
		CaseType:    payload.CaseType,
		Country:     payload.Country,
		Title:       payload.Title,
		Description: payload.Description,
	})
	if err != nil {
		failCase(w, err, "case_create_failed", "failed to create case", reqID)
		return
	}

	h.record(r, c.ClientID, user.AccountID, "case.create", c.ID, nil)
	api.Created(w, c, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	q := r.URL.Query()
	filter := cases.Filter{
		Status:   q.Get("status"),
		CaseType: q.Get("caseType"),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, []string{
		cases.StatusDraft, cases.StatusSubmitted, cases.StatusInReview,
		cases.StatusApproved, cases.StatusRejected, cases.StatusNeedsInfo,
	}, "unknown case status")
	if v.Reject(w, reqID) {
		return
	}
	if user.Role != accounts.RoleClient && q.Get("assigned") == "me" {
		filter.AssignedAgentID = user.AccountID
	}

	page := shared.ParsePagination(r, 50, 200)
	items, total, err := h.Cases.ListForActor(r.Context(), user.AccountID, user.Role, filter, page.Limit, page.Offset)
	if err != nil {
		failCase(w, err, "case_list_failed", "failed to list cases", reqID)
		return
	}
	api.Success(w, map[string]any{"items": items, "total": total}, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	c, err := h.Cases.Get(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "caseID"))
	if err != nil {
		failCase(w, err, "case_load_failed", "failed to load case", reqID)
		return
	}
	api.Success(w, c, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload struct {
		CaseType    string `json:"caseType"`
		Country     string `json:"country"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	c, err := h.Cases.Update(r.Context(), user.AccountID, chi.URLParam(r, "caseID"), cases.UpdateInput{
		CaseType:    payload.CaseType,
		Country:     payload.Country,
		Title:       payload.Title,
		Description: payload.Description,
	})
	if err != nil {
		failCase(w, err, "case_update_failed", "failed to update case", reqID)
		return
	}

	h.record(r, c.ClientID, user.AccountID, "case.update", c.ID, nil)
	api.Success(w, c, reqID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	c, err := h.Cases.Submit(r.Context(), user.AccountID, chi.URLParam(r, "caseID"))
	if err != nil {
		failCase(w, err, "case_submit_failed", "failed to submit case", reqID)
		return
	}

	h.record(r, c.ClientID, user.AccountID, "case.submit", c.ID, nil)
	if c.AssignedAgentID != nil {
		h.notify(r, *c.AssignedAgentID, notifications.TypeCaseSubmitted,
			"Case submitted", "Case \""+c.Title+"\" was submitted for review.")
	}
	api.Success(w, c, reqID)
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	var payload struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	c, err := h.Cases.ChangeStatus(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "caseID"), payload.Status, payload.Notes)
	if err != nil {
		failCase(w, err, "case_status_failed", "failed to change case status", reqID)
		return
	}

	h.record(r, c.ClientID, user.AccountID, "case.status_change", c.ID, map[string]string{"status": c.Status})
	h.notify(r, c.ClientID, notifications.TypeCaseStatusChanged,
		"Case status updated", "Case \""+c.Title+"\" moved to "+c.Status+".")
	api.Success(w, c, reqID)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	if user.Role != accounts.RoleAdmin {
		api.Fail(w, http.StatusForbidden, "forbidden", "only admins assign cases", reqID)
		return
	}

	var payload struct {
		AgentID *string `json:"agentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	c, err := h.Cases.Assign(r.Context(), user.Role, chi.URLParam(r, "caseID"), payload.AgentID)
	if err != nil {
		failCase(w, err, "case_assign_failed", "failed to assign case", reqID)
		return
	}

	h.record(r, c.ClientID, user.AccountID, "case.assign", c.ID, map[string]any{"agentId": payload.AgentID})
	if c.AssignedAgentID != nil {
		h.notify(r, *c.AssignedAgentID, notifications.TypeCaseAssigned,
			"Case assigned to you", "Case \""+c.Title+"\" is now yours to review.")
	}
	api.Success(w, c, reqID)
}

func failCase(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, cases.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, cases.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "case_not_found", "case not found", reqID)
	case errors.Is(err, cases.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "case belongs to another client", reqID)
	case errors.Is(err, cases.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), reqID)
	case errors.Is(err, cases.ErrNotEditable):
		api.Fail(w, http.StatusConflict, "case_not_editable", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func (h *Handler) notify(r *http.Request, accountID, ntype, title, body string) {
	if h.Notifications == nil {
		return
	}
	if err := h.Notifications.Create(r.Context(), accountID, ntype, title, body); err != nil {
		slog.Warn("case notification failed", "accountId", accountID, "type", ntype, "err", err)
	}
}

func (h *Handler) record(r *http.Request, accountID, actorID, action, caseID string, details any) {
	if h.Activity == nil {
		return
	}
	ctx := r.Context()
	if err := h.Activity.Record(ctx, accountID, actorID, action, "case", caseID, middleware.GetRequestID(ctx), shared.ClientIP(r), details); err != nil {
		slog.Warn("activity record failed", "action", action, "err", err)
	}
}
