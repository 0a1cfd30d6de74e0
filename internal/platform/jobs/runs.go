package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RunRecord is one job_runs row, exposed on the admin surface.
type RunRecord struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// ListRuns returns recent job runs, newest first, optionally filtered by type.
func (s *Service) ListRuns(ctx context.Context, jobType string, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT id, job_type, status, COALESCE(details_json, '{}'::jsonb), started_at, completed_at
		FROM job_runs`
	args := []any{}
	if jobType != "" {
		query += " WHERE job_type = $1"
		args = append(args, jobType)
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var detailsRaw []byte
		if err := rows.Scan(&r.ID, &r.JobType, &r.Status, &detailsRaw, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		r.Details = decodeDetails(detailsRaw)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func decodeDetails(raw []byte) map[string]any {
	details := map[string]any{}
	if len(raw) == 0 {
		return details
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return map[string]any{"raw": string(raw)}
	}
	return details
}
