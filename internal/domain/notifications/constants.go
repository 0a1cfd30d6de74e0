package notifications

const (
	TypeCaseSubmitted     = "case_submitted"
	TypeCaseStatusChanged = "case_status_changed"
	TypeCaseAssigned      = "case_assigned"
	TypeDocumentReviewed  = "document_reviewed"
	TypeMessageReceived   = "message_received"
	TypePaymentSucceeded  = "payment_succeeded"
	TypePaymentFailed     = "payment_failed"
	TypeDeletionScheduled = "deletion_scheduled"
)
