package jobs

import (
	"context"
	"testing"
	"time"
)

func TestNextRunTimeLaterToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)
	next := nextRunTime(now, 3, time.UTC)
	want := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextRunTimeRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC)
	next := nextRunTime(now, 3, time.UTC)
	want := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextRunTimeAtExactHourRollsForward(t *testing.T) {
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	next := nextRunTime(now, 3, time.UTC)
	want := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextRunTimeHonorsTimezone(t *testing.T) {
	lisbonOffset := time.FixedZone("UTC+1", 3600)
	// 01:30 UTC is 02:30 in UTC+1, so a 03:00 run is still due today.
	now := time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)
	next := nextRunTime(now, 3, lisbonOffset)
	want := time.Date(2026, 3, 10, 3, 0, 0, 0, lisbonOffset)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	s := &Service{queue: make(chan job, 1)}
	run := func(ctx context.Context) (any, error) { return nil, nil }

	s.Enqueue(JobRetention, run)
	s.Enqueue(JobReconcile, run)

	if len(s.queue) != 1 {
		t.Errorf("expected 1 queued job after overflow, got %d", len(s.queue))
	}
}

func TestRunNowExecutesCallback(t *testing.T) {
	s := &Service{queue: make(chan job, 1)}
	ran := false
	result, err := s.RunNow(context.Background(), JobRetention, func(ctx context.Context) (any, error) {
		ran = true
		return map[string]int{"accountsScheduled": 2}, nil
	})
	if err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if !ran {
		t.Error("callback did not run")
	}
	if m, ok := result.(map[string]int); !ok || m["accountsScheduled"] != 2 {
		t.Errorf("unexpected result %v", result)
	}
}
