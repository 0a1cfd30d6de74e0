package reports

import "context"

type StoreAPI interface {
	CaseSummary(ctx context.Context, caseID string) (*CaseSummary, error)
}
