package documents

import "errors"

var (
	ErrValidation  = errors.New("invalid input")
	ErrNotFound    = errors.New("document not found")
	ErrForbidden   = errors.New("document belongs to another client's case")
	ErrTooLarge    = errors.New("file exceeds the upload size limit")
	ErrNotPending  = errors.New("document was already reviewed")
	ErrCaseClosed  = errors.New("case no longer accepts documents")
	ErrCaseMissing = errors.New("case not found")
)
