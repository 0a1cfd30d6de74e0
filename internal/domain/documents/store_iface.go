package documents

import "context"

type StoreAPI interface {
	CreateDocument(ctx context.Context, in UploadInput, storageKey string) (Document, error)
	FindByID(ctx context.Context, id string) (Document, error)
	ListByCase(ctx context.Context, caseID string) ([]Document, error)
	SetReview(ctx context.Context, id, status, notes, reviewerID string) error
	DeleteDocument(ctx context.Context, id string) error
	// CaseOwner resolves the owning client and current status of a case.
	CaseOwner(ctx context.Context, caseID string) (clientID string, status string, err error)
}
