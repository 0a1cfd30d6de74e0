package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"visapath/internal/domain/accounts"
	"visapath/internal/domain/notifications"
	"visapath/internal/platform/identity"
)

// ScheduleInactiveAccounts scans active client accounts in keyset pages
// and schedules every one that is dormant on both the login and case
// axes: the account is deactivated, stamped with a deletion date one
// grace period out, disabled at the identity provider and sent a
// courtesy notice. The scan tolerates concurrent mutation; anything a
// page boundary misses is caught by the next daily run.
func (s *Service) ScheduleInactiveAccounts(ctx context.Context) (SchedulingStats, error) {
	var stats SchedulingStats

	now := s.now()
	th := ThresholdsAt(now)
	purgeAt := now.AddDate(0, 0, accounts.DeletionGraceDays)

	scanned := 0
	afterID := ""
	for {
		page, err := s.store.Candidates(ctx, afterID, candidatePageSize)
		if err != nil {
			// The scan query itself failing is fatal for the pass.
			return stats, fmt.Errorf("scan candidates: %w", err)
		}
		if len(page) == 0 {
			break
		}
		afterID = page[len(page)-1].ID

		for start := 0; start < len(page); start += scheduleChunkSize {
			end := start + scheduleChunkSize
			if end > len(page) {
				end = len(page)
			}
			for _, cand := range page[start:end] {
				s.scheduleOne(ctx, cand, th, purgeAt, &stats)
			}
			scanned += end - start
			slog.Debug("retention scheduling progress",
				"scanned", scanned, "scheduled", stats.AccountsScheduled, "errors", stats.Errors)
		}

		if len(page) < candidatePageSize {
			break
		}
	}
	return stats, nil
}

// scheduleOne applies the policy to a single candidate. Failures are
// counted and logged, never propagated, so one bad account cannot stop
// the batch.
func (s *Service) scheduleOne(ctx context.Context, cand Candidate, th Thresholds, purgeAt time.Time, stats *SchedulingStats) {
	if !Eligible(cand, th) {
		return
	}

	scheduled, err := s.store.Schedule(ctx, cand.ID, th, purgeAt, BuildDeletionReason(cand))
	if err != nil {
		stats.Errors++
		if s.metrics != nil {
			s.metrics.Errors.Inc()
		}
		slog.Error("retention: scheduling account failed", "accountId", cand.ID, "error", err)
		return
	}
	if !scheduled {
		// Lost eligibility between the scan and the locked re-check.
		return
	}

	stats.AccountsScheduled++
	if s.metrics != nil {
		s.metrics.AccountsScheduled.Inc()
	}
	slog.Info("retention: account scheduled for deletion", "accountId", cand.ID, "purgeAt", purgeAt)

	if err := s.disableIdentity(ctx, cand.IdentityUID); err != nil {
		stats.Errors++
		if s.metrics != nil {
			s.metrics.Errors.Inc()
		}
		slog.Error("retention: disabling identity account failed", "accountId", cand.ID, "error", err)
	}

	s.notifyScheduled(ctx, cand.ID, purgeAt)
}

// disableIdentity turns off sign-in at the identity provider. A missing
// identity account means the stores already agree, which is fine.
func (s *Service) disableIdentity(ctx context.Context, uid string) error {
	if uid == "" {
		return nil
	}
	err := s.identity.SetDisabled(ctx, uid, true)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil
	}
	return err
}

func (s *Service) notifyScheduled(ctx context.Context, accountID string, purgeAt time.Time) {
	if s.notifier == nil {
		return
	}
	body := fmt.Sprintf(
		"Your account has been inactive for over six months and is scheduled for deletion on %s. Contact support if you want to keep it.",
		purgeAt.UTC().Format("2006-01-02"))
	err := s.notifier.Create(ctx, accountID, notifications.TypeDeletionScheduled,
		"Account scheduled for deletion", body)
	if err != nil {
		slog.Warn("retention: deletion notice failed", "accountId", accountID, "error", err)
	}
}
