package messages

import "errors"

var (
	ErrValidation  = errors.New("invalid input")
	ErrNotFound    = errors.New("message not found")
	ErrForbidden   = errors.New("not a participant of this case")
	ErrNoAgent     = errors.New("case has no assigned agent yet")
	ErrCaseMissing = errors.New("case not found")
	ErrBodyTooLong = errors.New("message body exceeds the size limit")
	ErrEmptyBody   = errors.New("message body is empty")
)

// MaxBodyLength caps a single message at 10k characters.
const MaxBodyLength = 10000
