package cases

// transitions maps each status to the statuses reachable from it.
// Approved and rejected are terminal.
var transitions = map[string][]string{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusInReview},
	StatusInReview:  {StatusApproved, StatusRejected, StatusNeedsInfo},
	StatusNeedsInfo: {StatusInReview},
	StatusApproved:  {},
	StatusRejected:  {},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given one. The
// returned slice must not be mutated.
func NextStatuses(from string) []string {
	return transitions[from]
}

func ValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// Terminal reports whether no further transitions exist.
func Terminal(status string) bool {
	next, ok := transitions[status]
	return ok && len(next) == 0
}

// Editable reports whether the client may still change case details.
func Editable(status string) bool {
	return status == StatusDraft || status == StatusNeedsInfo
}
