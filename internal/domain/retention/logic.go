// Package retention implements the inactive-account deletion pipeline:
// a scheduling pass that flags client accounts dormant on both the
// login and case axes, and a purge pass that irreversibly removes
// accounts whose grace period has elapsed.
package retention

import (
	"fmt"
	"strings"
	"time"
)

// Thresholds are the two policy cutoffs for one run, normalized to
// start of day UTC so the run's wall-clock hour cannot shift
// eligibility between days.
type Thresholds struct {
	// LoginCutoff is six months before the run.
	LoginCutoff time.Time
	// CaseCutoff is three months before the run.
	CaseCutoff time.Time
}

func ThresholdsAt(now time.Time) Thresholds {
	return Thresholds{
		LoginCutoff: StartOfDayUTC(now.AddDate(0, -6, 0)),
		CaseCutoff:  StartOfDayUTC(now.AddDate(0, -3, 0)),
	}
}

func StartOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// lastActivity is the effective login-axis date: the last sign-in, or
// registration for accounts that never signed in.
func (c Candidate) lastActivity() time.Time {
	if c.LastLoginAt != nil {
		return *c.LastLoginAt
	}
	return c.CreatedAt
}

// lastCaseActivity is the effective case-axis date: the most recent
// case submission, or registration for accounts with no submitted
// cases.
func (c Candidate) lastCaseActivity() time.Time {
	if c.LatestSubmission != nil {
		return *c.LatestSubmission
	}
	return c.CreatedAt
}

func LoginInactive(c Candidate, th Thresholds) bool {
	return !c.lastActivity().After(th.LoginCutoff)
}

func CaseInactive(c Candidate, th Thresholds) bool {
	return !c.lastCaseActivity().After(th.CaseCutoff)
}

// Eligible reports whether the account qualifies for scheduled
// deletion. Both axes must be dormant: one recent case keeps an
// account alive no matter how stale its logins are, and vice versa.
func Eligible(c Candidate, th Thresholds) bool {
	return LoginInactive(c, th) && CaseInactive(c, th)
}

// BuildDeletionReason renders the audit string stored on the account,
// recording both clauses that put it over the threshold.
func BuildDeletionReason(c Candidate) string {
	var b strings.Builder
	b.WriteString("Scheduled by inactivity policy: ")
	if c.LastLoginAt != nil {
		fmt.Fprintf(&b, "last sign-in on %s", c.LastLoginAt.UTC().Format("2006-01-02"))
	} else {
		fmt.Fprintf(&b, "no sign-in since registration on %s", c.CreatedAt.UTC().Format("2006-01-02"))
	}
	if c.LatestSubmission != nil {
		fmt.Fprintf(&b, "; last case submitted on %s.", c.LatestSubmission.UTC().Format("2006-01-02"))
	} else {
		b.WriteString("; no submitted cases.")
	}
	return b.String()
}
