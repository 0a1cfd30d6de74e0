package billing

import "errors"

var (
	ErrPlanNotFound    = errors.New("plan not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrForbidden       = errors.New("payment belongs to another account")
	ErrEventReplayed   = errors.New("webhook event already processed")
	ErrUnknownStatus   = errors.New("unknown payment status")
	ErrBadSignature    = errors.New("webhook signature mismatch")
)
