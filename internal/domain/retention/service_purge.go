package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"visapath/internal/platform/identity"
)

// PurgeDueAccounts removes every deactivated account whose scheduled
// deletion date has passed. Each account is purged in its own
// transaction; a failure is counted and logged without touching the
// rest of the batch. The identity-provider delete and the blob cleanup
// run after the local commit and never undo it.
func (s *Service) PurgeDueAccounts(ctx context.Context) (DeletionStats, error) {
	var stats DeletionStats

	now := s.now()
	afterID := ""
	for {
		due, err := s.store.DueAccounts(ctx, now, afterID, dueBatchSize)
		if err != nil {
			return stats, fmt.Errorf("scan due accounts: %w", err)
		}
		if len(due) == 0 {
			break
		}
		afterID = due[len(due)-1].ID

		for _, acct := range due {
			s.purgeOne(ctx, acct, now, &stats)
		}

		if len(due) < dueBatchSize {
			break
		}
	}
	return stats, nil
}

func (s *Service) purgeOne(ctx context.Context, acct DueAccount, now time.Time, stats *DeletionStats) {
	counts, purged, err := s.store.Purge(ctx, acct.ID, now)
	if err != nil {
		stats.Errors++
		if s.metrics != nil {
			s.metrics.Errors.Inc()
		}
		slog.Error("retention: purging account failed", "accountId", acct.ID, "error", err)
		return
	}
	if !purged {
		slog.Info("retention: purge skipped, account no longer due", "accountId", acct.ID)
		return
	}

	stats.AccountsDeleted++
	stats.CasesDeleted += int(counts.Cases)
	stats.DocumentsDeleted += int(counts.Documents)
	stats.MessagesDeleted += int(counts.Messages)
	stats.NotificationsDeleted += int(counts.Notifications)
	s.recordPurgeMetrics(counts)

	slog.Info("retention: account purged",
		"accountId", acct.ID,
		"cases", counts.Cases,
		"documents", counts.Documents,
		"messages", counts.Messages,
		"notifications", counts.Notifications,
		"activityLog", counts.ActivityLog,
		"settings", counts.Settings,
		"inviteUsagesAnonymized", counts.InviteUsages,
		"paymentsAnonymized", counts.Payments)

	// Post-commit blob cleanup. A leftover object is an accepted cost;
	// the row referencing it is already gone.
	for _, key := range counts.StorageKeys {
		if err := s.objects.Delete(ctx, key); err != nil {
			slog.Warn("retention: deleting document object failed", "key", key, "error", err)
		}
	}

	// Post-commit identity delete. The committed local purge is
	// authoritative: a failure here is logged, not counted, and the
	// next run's "not found" is the reconciliation.
	if acct.IdentityUID != "" {
		err := s.identity.DeleteUser(ctx, acct.IdentityUID)
		if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
			slog.Error("retention: deleting identity account failed", "accountId", acct.ID, "error", err)
		}
	}
}

func (s *Service) recordPurgeMetrics(counts PurgeCounts) {
	if s.metrics == nil {
		return
	}
	s.metrics.AccountsPurged.Inc()
	s.metrics.RowsDeleted.WithLabelValues("notifications").Add(float64(counts.Notifications))
	s.metrics.RowsDeleted.WithLabelValues("messages").Add(float64(counts.Messages))
	s.metrics.RowsDeleted.WithLabelValues("documents").Add(float64(counts.Documents))
	s.metrics.RowsDeleted.WithLabelValues("cases").Add(float64(counts.Cases))
	s.metrics.RowsDeleted.WithLabelValues("activity_log").Add(float64(counts.ActivityLog))
	s.metrics.RowsDeleted.WithLabelValues("app_settings").Add(float64(counts.Settings))
}
