package cases

import "errors"

var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("case not found")
	ErrForbidden         = errors.New("case belongs to another client")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNotEditable       = errors.New("case can only be edited while in draft or needs_info")
)
