package cases

import (
	"context"
	"time"
)

type StoreAPI interface {
	CreateCase(ctx context.Context, in CreateInput) (Case, error)
	FindByID(ctx context.Context, id string) (Case, error)
	UpdateDetails(ctx context.Context, id string, in UpdateInput) error
	SetStatus(ctx context.Context, id, status, decisionNotes string, submissionDate *time.Time) error
	Assign(ctx context.Context, id string, agentID *string) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]Case, error)
	Count(ctx context.Context, filter Filter) (int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}
