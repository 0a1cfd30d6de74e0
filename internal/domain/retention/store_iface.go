package retention

import (
	"context"
	"time"
)

type StoreAPI interface {
	// Candidates returns the next keyset page (ordered by id) of active
	// client accounts with no scheduled deletion.
	Candidates(ctx context.Context, afterID string, limit int) ([]Candidate, error)

	// Schedule deactivates one account and stamps its deletion date.
	// Eligibility is re-checked against th inside the transaction, under
	// a row lock; it reports false when the account no longer qualifies.
	Schedule(ctx context.Context, accountID string, th Thresholds, purgeAt time.Time, reason string) (bool, error)

	// DueAccounts returns the next keyset page (ordered by id) of
	// deactivated accounts whose scheduled deletion date has passed.
	DueAccounts(ctx context.Context, now time.Time, afterID string, limit int) ([]DueAccount, error)

	// Purge removes one account and every dependent row in a single
	// transaction. It reports false when the account was reactivated or
	// already gone, in which case nothing is touched.
	Purge(ctx context.Context, accountID string, now time.Time) (PurgeCounts, bool, error)

	// ListScheduled is the admin view of pending deletions, soonest first.
	ListScheduled(ctx context.Context, limit, offset int) ([]ScheduledAccount, error)
}
