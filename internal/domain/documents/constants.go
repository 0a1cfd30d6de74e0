package documents

const (
	StatusPendingReview = "pending_review"
	StatusAccepted      = "accepted"
	StatusRejected      = "rejected"
)

// MaxFileSize caps uploads at 20 MiB.
const MaxFileSize = 20 << 20
