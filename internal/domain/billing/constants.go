package billing

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Breaker names shared by checkout and reconciliation so both flows see
// the same gateway health.
const (
	opCreateIntent = "payments.create"
	opGetIntent    = "payments.get"
)
