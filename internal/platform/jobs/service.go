package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"visapath/internal/platform/config"
)

const (
	JobRetention = "retention_pipeline"
	JobReconcile = "billing_reconcile"
)

type Service struct {
	DB    *pgxpool.Pool
	Cfg   config.Config
	queue chan job

	// RunRetention and RunReconcile are wired by the application at
	// startup. A nil callback disables the corresponding schedule.
	RunRetention func(context.Context) (any, error)
	RunReconcile func(context.Context) (any, error)
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, cfg config.Config) *Service {
	return &Service{
		DB:    db,
		Cfg:   cfg,
		queue: make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.RetentionEnabled && s.RunRetention != nil {
		loc, err := time.LoadLocation(s.Cfg.RetentionTimezone)
		if err != nil {
			slog.Warn("invalid retention timezone, falling back to UTC", "timezone", s.Cfg.RetentionTimezone, "err", err)
			loc = time.UTC
		}
		go s.scheduleDaily(ctx, s.Cfg.RetentionRunHour, loc, JobRetention, s.RunRetention)
	}
	if s.Cfg.ReconcileInterval > 0 && s.RunReconcile != nil {
		go s.scheduleInterval(ctx, s.Cfg.ReconcileInterval, JobReconcile, s.RunReconcile)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

// RunNow executes the job synchronously, still recording a job_runs row.
// The admin trigger endpoint uses it so manual runs show up in history.
func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
			INSERT INTO job_runs (job_type, status)
			VALUES ($1, $2)
			RETURNING id
		`, j.Type, "running").Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
			UPDATE job_runs
			SET status = $1, details_json = $2, completed_at = now()
			WHERE id = $3
		`, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) scheduleDaily(ctx context.Context, hour int, loc *time.Location, jobType string, run func(context.Context) (any, error)) {
	for {
		next := nextRunTime(time.Now(), hour, loc)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Enqueue(jobType, run)
		}
	}
}

func (s *Service) scheduleInterval(ctx context.Context, interval time.Duration, jobType string, run func(context.Context) (any, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(jobType, run)
		}
	}
}

// nextRunTime returns the next occurrence of hour o'clock in loc strictly
// after now.
func nextRunTime(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
