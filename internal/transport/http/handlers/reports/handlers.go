package reportshandler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/reports"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
)

type Handler struct {
	Reports *reports.Service
}

func NewHandler(reportsSvc *reports.Service) *Handler {
	return &Handler{Reports: reportsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/cases/{caseID}/summary.pdf", h.handleCaseSummary)
	})
}

func (h *Handler) handleCaseSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	pdf, filename, err := h.Reports.CaseSummaryPDF(r.Context(), user.Role, chi.URLParam(r, "caseID"))
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrForbidden):
			api.Fail(w, http.StatusForbidden, "forbidden", "case summaries are restricted to staff", reqID)
		case errors.Is(err, reports.ErrCaseNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "case not found", reqID)
		default:
			api.Fail(w, http.StatusInternalServerError, "internal_error", "failed to render summary", reqID)
		}
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pdf)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
