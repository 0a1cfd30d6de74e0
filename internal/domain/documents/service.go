package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/cases"
	"visapath/internal/platform/objectstore"
)

type Service struct {
	store   StoreAPI
	objects objectstore.Store
}

func New(store StoreAPI, objects objectstore.Store) *Service {
	return &Service{store: store, objects: objects}
}

func staffRole(role string) bool {
	return role == accounts.RoleAgent || role == accounts.RoleAdmin
}

// storageKey derives the object key for a new upload. The suffix keeps
// the original extension so downloads carry a sensible name.
func storageKey(caseID, fileName string) string {
	return "documents/" + caseID + "/" + uuid.NewString() + strings.ToLower(path.Ext(fileName))
}

// Upload stores the file body first, then the row. A failed row insert
// leaves at worst an orphaned object, never a row without bytes.
func (s *Service) Upload(ctx context.Context, actorID, actorRole string, in UploadInput, body io.Reader) (Document, error) {
	in.FileName = strings.TrimSpace(path.Base(in.FileName))
	if in.FileName == "" || in.FileName == "." {
		return Document{}, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if in.FileSize <= 0 {
		return Document{}, fmt.Errorf("%w: file size is required", ErrValidation)
	}
	if in.FileSize > MaxFileSize {
		return Document{}, ErrTooLarge
	}
	if in.ContentType == "" {
		in.ContentType = "application/octet-stream"
	}

	clientID, caseStatus, err := s.store.CaseOwner(ctx, in.CaseID)
	if err != nil {
		return Document{}, err
	}
	if !staffRole(actorRole) && clientID != actorID {
		return Document{}, ErrForbidden
	}
	if cases.Terminal(caseStatus) {
		return Document{}, ErrCaseClosed
	}
	in.UploadedBy = actorID

	key := storageKey(in.CaseID, in.FileName)
	if err := s.objects.Put(ctx, key, io.LimitReader(body, in.FileSize), in.FileSize, in.ContentType); err != nil {
		return Document{}, fmt.Errorf("store file: %w", err)
	}

	doc, err := s.store.CreateDocument(ctx, in, key)
	if err != nil {
		if cleanupErr := s.objects.Delete(ctx, key); cleanupErr != nil {
			slog.Warn("orphaned upload cleanup failed", "key", key, "err", cleanupErr)
		}
		return Document{}, err
	}
	return doc, nil
}

func (s *Service) Get(ctx context.Context, actorID, actorRole, id string) (Document, error) {
	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.authorize(ctx, actorID, actorRole, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Open returns the stored file body. Callers must close the reader.
func (s *Service) Open(ctx context.Context, actorID, actorRole, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, actorID, actorRole, id)
	if err != nil {
		return Document{}, nil, err
	}
	body, err := s.objects.Get(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, fmt.Errorf("open stored file: %w", err)
	}
	return doc, body, nil
}

func (s *Service) ListByCase(ctx context.Context, actorID, actorRole, caseID string) ([]Document, error) {
	clientID, _, err := s.store.CaseOwner(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !staffRole(actorRole) && clientID != actorID {
		return nil, ErrForbidden
	}
	return s.store.ListByCase(ctx, caseID)
}

// Review accepts or rejects a pending document. Staff only; a rejection
// must tell the client what to fix.
func (s *Service) Review(ctx context.Context, reviewerID, reviewerRole, id, status, notes string) (Document, error) {
	if !staffRole(reviewerRole) {
		return Document{}, ErrForbidden
	}
	if status != StatusAccepted && status != StatusRejected {
		return Document{}, fmt.Errorf("%w: review status must be %s or %s", ErrValidation, StatusAccepted, StatusRejected)
	}
	if status == StatusRejected && strings.TrimSpace(notes) == "" {
		return Document{}, fmt.Errorf("%w: rejection requires notes", ErrValidation)
	}
	if err := s.store.SetReview(ctx, id, status, notes, reviewerID); err != nil {
		return Document{}, err
	}
	return s.store.FindByID(ctx, id)
}

// Delete removes a still-pending document and its stored file. Clients
// may only delete their own uploads.
func (s *Service) Delete(ctx context.Context, actorID, actorRole, id string) error {
	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actorID, actorRole, doc); err != nil {
		return err
	}
	if doc.Status != StatusPendingReview && !staffRole(actorRole) {
		return ErrNotPending
	}

	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, doc.StorageKey); err != nil {
		slog.Warn("stored file delete failed", "key", doc.StorageKey, "err", err)
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, actorID, actorRole string, doc Document) error {
	if staffRole(actorRole) {
		return nil
	}
	clientID, _, err := s.store.CaseOwner(ctx, doc.CaseID)
	if err != nil {
		return err
	}
	if clientID != actorID {
		return ErrForbidden
	}
	return nil
}
