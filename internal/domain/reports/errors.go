package reports

import "errors"

var (
	ErrCaseNotFound = errors.New("case not found")
	ErrForbidden    = errors.New("case summaries are restricted to staff")
)
