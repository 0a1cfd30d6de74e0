package retention

import (
	"strings"
	"testing"
	"time"
)

var runTime = time.Date(2025, 10, 15, 3, 0, 0, 0, time.UTC)

func monthsAgo(n int) time.Time {
	return runTime.AddDate(0, -n, 0)
}

func ptr(t time.Time) *time.Time { return &t }

func TestThresholdsNormalizeToStartOfDay(t *testing.T) {
	th := ThresholdsAt(runTime)

	want := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	if !th.LoginCutoff.Equal(want) {
		t.Errorf("LoginCutoff = %v, want %v", th.LoginCutoff, want)
	}
	want = time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	if !th.CaseCutoff.Equal(want) {
		t.Errorf("CaseCutoff = %v, want %v", th.CaseCutoff, want)
	}

	// Two runs on the same day at different hours agree.
	later := ThresholdsAt(runTime.Add(18 * time.Hour))
	if !later.LoginCutoff.Equal(th.LoginCutoff) || !later.CaseCutoff.Equal(th.CaseCutoff) {
		t.Error("thresholds differ between same-day runs")
	}
}

func TestEligible(t *testing.T) {
	th := ThresholdsAt(runTime)

	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{
			name: "dormant on both axes",
			c:    Candidate{CreatedAt: monthsAgo(10), LastLoginAt: ptr(monthsAgo(8)), LatestSubmission: ptr(monthsAgo(7))},
			want: true,
		},
		{
			name: "stale login but recent case",
			c:    Candidate{CreatedAt: monthsAgo(24), LastLoginAt: ptr(monthsAgo(7)), LatestSubmission: ptr(monthsAgo(1))},
			want: false,
		},
		{
			name: "recent login but stale case",
			c:    Candidate{CreatedAt: monthsAgo(10), LastLoginAt: ptr(monthsAgo(1)), LatestSubmission: ptr(monthsAgo(7))},
			want: false,
		},
		{
			name: "never signed in, no cases, old account",
			c:    Candidate{CreatedAt: monthsAgo(10)},
			want: true,
		},
		{
			name: "never signed in, no cases, young account",
			c:    Candidate{CreatedAt: monthsAgo(2)},
			want: false,
		},
		{
			name: "no cases and created between the two cutoffs",
			c:    Candidate{CreatedAt: monthsAgo(4)},
			want: false,
		},
		{
			name: "activity exactly at both cutoffs",
			c: Candidate{
				CreatedAt:        monthsAgo(24),
				LastLoginAt:      ptr(ThresholdsAt(runTime).LoginCutoff),
				LatestSubmission: ptr(ThresholdsAt(runTime).CaseCutoff),
			},
			want: true,
		},
		{
			name: "login one second past the cutoff",
			c: Candidate{
				CreatedAt:        monthsAgo(24),
				LastLoginAt:      ptr(ThresholdsAt(runTime).LoginCutoff.Add(time.Second)),
				LatestSubmission: ptr(monthsAgo(7)),
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.c, th); got != tt.want {
				t.Errorf("Eligible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCaseAxisFallsBackToCreation(t *testing.T) {
	th := ThresholdsAt(runTime)

	// An old account with one recent submission stays.
	c := Candidate{CreatedAt: monthsAgo(12), LastLoginAt: ptr(monthsAgo(7)), LatestSubmission: ptr(monthsAgo(2))}
	if Eligible(c, th) {
		t.Error("recent submission must keep the account")
	}

	// The same account with no submissions at all goes by creation date.
	c.LatestSubmission = nil
	if !Eligible(c, th) {
		t.Error("caseless old account should be eligible")
	}
}

func TestBuildDeletionReason(t *testing.T) {
	c := Candidate{
		CreatedAt:        time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		LastLoginAt:      ptr(time.Date(2025, 2, 3, 9, 30, 0, 0, time.UTC)),
		LatestSubmission: ptr(time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)),
	}
	reason := BuildDeletionReason(c)
	if !strings.Contains(reason, "2025-02-03") {
		t.Errorf("reason %q missing sign-in date", reason)
	}
	if !strings.Contains(reason, "2025-03-04") {
		t.Errorf("reason %q missing submission date", reason)
	}

	bare := BuildDeletionReason(Candidate{CreatedAt: c.CreatedAt})
	if !strings.Contains(bare, "no sign-in since registration on 2025-01-02") {
		t.Errorf("reason %q missing registration clause", bare)
	}
	if !strings.Contains(bare, "no submitted cases") {
		t.Errorf("reason %q missing caseless clause", bare)
	}
}
