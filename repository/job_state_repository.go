package repository

import (
	"context"
	"fmt"
	"time"

	"sattbot/database"
	"sattbot/models"

	"github.com/jackc/pgx/v5"
)

// JobStateRepository implements the JobStateRepository interface
type JobStateRepository struct {
	q queryable
}

// NewJobStateRepository creates a new job state repository
func NewJobStateRepository(db *database.DB) *JobStateRepository {
	return &JobStateRepository{q: db.Pool}
}

// newJobStateRepositoryWithTx creates a new job state repository with a transaction
func newJobStateRepositoryWithTx(tx queryable) *JobStateRepository {
	return &JobStateRepository{q: tx}
}

// Get returns the stored state for a job, nil if the job never fired
func (r *JobStateRepository) Get(ctx context.Context, jobName string) (*models.JobState, error) {
	query := `SELECT job_name, last_fired_at FROM scheduler_job_state WHERE job_name = $1`

	var state models.JobState
	err := r.q.QueryRow(ctx, query, jobName).Scan(&state.JobName, &state.LastFiredAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state for job %s: %w", jobName, err)
	}

	return &state, nil
}

// Upsert records the job's latest fire time
func (r *JobStateRepository) Upsert(ctx context.Context, jobName string, firedAt time.Time) error {
	query := `
		INSERT INTO scheduler_job_state (job_name, last_fired_at)
		VALUES ($1, $2)
		ON CONFLICT (job_name) DO UPDATE SET last_fired_at = EXCLUDED.last_fired_at
	`

	if _, err := r.q.Exec(ctx, query, jobName, firedAt); err != nil {
		return fmt.Errorf("failed to upsert state for job %s: %w", jobName, err)
	}

	return nil
}
