package store

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	apperrors "storyreel/internal/errors"
)

// JobRunStatus is the outcome of one pipeline stage.
type JobRunStatus string

const (
	JobRunSucceeded JobRunStatus = "succeeded"
	JobRunFailed    JobRunStatus = "failed"
)

// JobRun is one append-only audit record of a pipeline stage execution.
// IDs are ULIDs, so listing by id yields chronological order.
type JobRun struct {
	ID         string
	ProjectID  string
	Stage      string
	Status     JobRunStatus
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// AppendJobRun records a stage outcome. A missing ID is generated from the
// process-wide monotonic ULID source, so ids minted in the same millisecond
// still sort in append order.
func (s *Store) AppendJobRun(ctx context.Context, run JobRun) error {
	if run.ID == "" {
		run.ID = ulid.Make().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, project_id, stage, status, detail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProjectID, run.Stage, string(run.Status), run.Detail,
		run.StartedAt.UTC().Unix(), run.FinishedAt.UTC().Unix(),
	)
	if err != nil {
		return apperrors.NewPersistence("append job run", err)
	}
	return nil
}

// ListJobRuns returns a project's stage history, oldest first.
func (s *Store) ListJobRuns(ctx context.Context, projectID string) ([]JobRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, stage, status, detail, started_at, finished_at
		FROM job_runs WHERE project_id = ? ORDER BY id`,
		projectID)
	if err != nil {
		return nil, apperrors.NewPersistence("list job runs", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []JobRun
	for rows.Next() {
		var (
			run               JobRun
			status            string
			started, finished int64
		)
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.Stage, &status,
			&run.Detail, &started, &finished); err != nil {
			return nil, apperrors.NewPersistence("list job runs", err)
		}
		run.Status = JobRunStatus(status)
		run.StartedAt = unixTime(started)
		run.FinishedAt = unixTime(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistence("list job runs", err)
	}
	return runs, nil
}
