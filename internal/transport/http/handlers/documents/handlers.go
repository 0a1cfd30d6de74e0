package documentshandler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"visapath/internal/domain/activity"
	"visapath/internal/domain/documents"
	"visapath/internal/domain/notifications"
	"visapath/internal/transport/http/api"
	"visapath/internal/transport/http/middleware"
	"visapath/internal/transport/http/shared"
)

type Handler struct {
	Documents     *documents.Service
	Activity      *activity.Service
	Notifications *notifications.Service
}

func NewHandler(documentsSvc *documents.Service, activitySvc *activity.Service, notificationsSvc *notifications.Service) *Handler {
	return &Handler{Documents: documentsSvc, Activity: activitySvc, Notifications: notificationsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/documents/{documentID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Get("/download", h.handleDownload)
		r.Post("/review", h.handleReview)
		r.Delete("/", h.handleDelete)
	})
}

// CaseRoutes is mounted under /cases/{caseID} by the cases handler.
func (h *Handler) CaseRoutes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Post("/", h.handleUpload)
		r.Get("/", h.handleListByCase)
	})
}

// handleUpload accepts a multipart form with a single "file" part. The
// file streams through to the object store without buffering to disk.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "multipart \"file\" field is required", reqID)
		return
	}
	defer file.Close()

	doc, err := h.Documents.Upload(r.Context(), user.AccountID, user.Role, documents.UploadInput{
		CaseID:      chi.URLParam(r, "caseID"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		FileSize:    header.Size,
	}, file)
	if err != nil {
		failDocument(w, err, "document_upload_failed", "failed to store document", reqID)
		return
	}

	h.record(r, user.AccountID, "document.upload", doc.ID, map[string]string{"caseId": doc.CaseID, "fileName": doc.FileName})
	api.Created(w, doc, reqID)
}

func (h *Handler) handleListByCase(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	items, err := h.Documents.ListByCase(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "caseID"))
	if err != nil {
		failDocument(w, err, "document_list_failed", "failed to list documents", reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	doc, err := h.Documents.Get(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "documentID"))
	if err != nil {
		failDocument(w, err, "document_load_failed", "failed to load document", reqID)
		return
	}
	api.Success(w, doc, reqID)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	doc, body, err := h.Documents.Open(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "documentID"))
	if err != nil {
		failDocument(w, err, "document_download_failed", "failed to open document", reqID)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("document stream interrupted", "documentId", doc.ID, "err", err)
	}
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
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

	doc, err := h.Documents.Review(r.Context(), user.AccountID, user.Role, chi.URLParam(r, "documentID"), payload.Status, payload.Notes)
	if err != nil {
		failDocument(w, err, "document_review_failed", "failed to review document", reqID)
		return
	}

	h.record(r, user.AccountID, "document.review", doc.ID, map[string]string{"status": doc.Status})
	h.notify(r, doc.UploadedBy, "Document "+doc.Status, "Document \""+doc.FileName+"\" was reviewed: "+doc.Status+".")
	api.Success(w, doc, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if err := h.Documents.Delete(r.Context(), user.AccountID, user.Role, documentID); err != nil {
		failDocument(w, err, "document_delete_failed", "failed to delete document", reqID)
		return
	}

	h.record(r, user.AccountID, "document.delete", documentID, nil)
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func failDocument(w http.ResponseWriter, err error, code, message, reqID string) {
	switch {
	case errors.Is(err, documents.ErrValidation):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, documents.ErrTooLarge):
		api.Fail(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit", reqID)
	case errors.Is(err, documents.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "document_not_found", "document not found", reqID)
	case errors.Is(err, documents.ErrCaseMissing):
		api.Fail(w, http.StatusNotFound, "case_not_found", "case not found", reqID)
	case errors.Is(err, documents.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "document belongs to another client's case", reqID)
	case errors.Is(err, documents.ErrCaseClosed):
		api.Fail(w, http.StatusConflict, "case_closed", "case no longer accepts documents", reqID)
	case errors.Is(err, documents.ErrNotPending):
		api.Fail(w, http.StatusConflict, "already_reviewed", "document was already reviewed", reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func (h *Handler) notify(r *http.Request, accountID, title, body string) {
	if h.Notifications == nil {
		return
	}
	if err := h.Notifications.Create(r.Context(), accountID, notifications.TypeDocumentReviewed, title, body); err != nil {
		slog.Warn("document notification failed", "accountId", accountID, "err", err)
	}
}

func (h *Handler) record(r *http.Request, actorID, action, documentID string, details any) {
	if h.Activity == nil {
		return
	}
	ctx := r.Context()
	if err := h.Activity.Record(ctx, actorID, actorID, action, "document", documentID, middleware.GetRequestID(ctx), shared.ClientIP(r), details); err != nil {
		slog.Warn("activity record failed", "action", action, "err", err)
	}
}
