package retention

import "time"

// Candidate is the slice of an account the scheduling policy reads:
// identity dates plus the most recent case submission, if any.
type Candidate struct {
	ID               string
	Email            string
	IdentityUID      string
	CreatedAt        time.Time
	LastLoginAt      *time.Time
	LatestSubmission *time.Time
}

// DueAccount is an account whose scheduled deletion date has passed.
type DueAccount struct {
	ID          string
	Email       string
	IdentityUID string
}

// ScheduledAccount is the admin view of a pending deletion.
type ScheduledAccount struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	FullName             string    `json:"fullName"`
	DeletionScheduledFor time.Time `json:"deletionScheduledFor"`
	DeletionReason       string    `json:"deletionReason"`
}

// PurgeCounts reports what one committed purge transaction removed.
// Payments counts rows kept for bookkeeping with the account reference
// cleared, and StorageKeys carries the object keys of deleted document
// rows so the blobs can be cleaned up after commit.
type PurgeCounts struct {
	Notifications int64
	Messages      int64
	Documents     int64
	Cases         int64
	ActivityLog   int64
	Settings      int64
	InviteUsages  int64
	Payments      int64
	StorageKeys   []string
}

type SchedulingStats struct {
	AccountsScheduled int `json:"accountsScheduled"`
	Errors            int `json:"errors"`
}

type DeletionStats struct {
	AccountsDeleted      int `json:"accountsDeleted"`
	CasesDeleted         int `json:"casesDeleted"`
	DocumentsDeleted     int `json:"documentsDeleted"`
	MessagesDeleted      int `json:"messagesDeleted"`
	NotificationsDeleted int `json:"notificationsDeleted"`
	Errors               int `json:"errors"`
}

// PipelineResult aggregates one full run. It is built fresh per run and
// never persisted beyond the job bookkeeping row.
type PipelineResult struct {
	Scheduling SchedulingStats `json:"scheduling"`
	Deletion   DeletionStats   `json:"deletion"`
}
