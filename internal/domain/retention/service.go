package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"visapath/internal/platform/identity"
	"visapath/internal/platform/metrics"
	"visapath/internal/platform/objectstore"
)

// Notifier is satisfied by the notifications service. It is optional;
// without one, scheduled accounts simply get no courtesy notice.
type Notifier interface {
	Create(ctx context.Context, accountID, ntype, title, body string) error
}

type Service struct {
	store    StoreAPI
	identity identity.Provider
	objects  objectstore.Store
	notifier Notifier
	metrics  *metrics.PipelineMetrics

	running atomic.Bool
	now     func() time.Time
}

func New(store StoreAPI, idp identity.Provider, objects objectstore.Store, notifier Notifier, m *metrics.PipelineMetrics) *Service {
	return &Service{
		store:    store,
		identity: idp,
		objects:  objects,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// Run executes the scheduling pass and then the purge pass. Only one
// run may be in flight per process; a concurrent invocation is dropped
// with ErrPipelineRunning, never queued. A pass failing fatally is
// logged and reported but does not stop the other pass, and the
// in-flight flag is always cleared.
func (s *Service) Run(ctx context.Context) (PipelineResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		slog.Warn("deletion pipeline already running, dropping this invocation")
		s.metrics.ObserveRun("skipped", 0)
		return PipelineResult{}, ErrPipelineRunning
	}
	defer s.running.Store(false)

	started := s.now()
	slog.Info("deletion pipeline starting")

	var result PipelineResult
	var schedErr, purgeErr error

	result.Scheduling, schedErr = s.ScheduleInactiveAccounts(ctx)
	if schedErr != nil {
		schedErr = fmt.Errorf("scheduling pass: %w", schedErr)
		slog.Error("deletion pipeline scheduling pass failed", "error", schedErr)
	}

	result.Deletion, purgeErr = s.PurgeDueAccounts(ctx)
	if purgeErr != nil {
		purgeErr = fmt.Errorf("purge pass: %w", purgeErr)
		slog.Error("deletion pipeline purge pass failed", "error", purgeErr)
	}

	err := errors.Join(schedErr, purgeErr)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.ObserveRun(outcome, s.now().Sub(started))

	slog.Info("deletion pipeline finished",
		"outcome", outcome,
		"accountsScheduled", result.Scheduling.AccountsScheduled,
		"accountsDeleted", result.Deletion.AccountsDeleted,
		"errors", result.Scheduling.Errors+result.Deletion.Errors,
		"duration", s.now().Sub(started))
	return result, err
}

// PendingDeletions is the admin view of accounts awaiting purge.
func (s *Service) PendingDeletions(ctx context.Context, limit, offset int) ([]ScheduledAccount, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListScheduled(ctx, limit, offset)
}
