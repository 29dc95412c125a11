package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/model"
)

type JobRunRepository interface {
	// CreateRunning inserts a run row with status=running. Committed before
	// any work happens so a crash mid-run leaves visible evidence.
	CreateRunning(ctx context.Context, jobID string) (*model.JobRun, error)
	MarkCompleted(ctx context.Context, id, result string, creditsCharged int64) error
	MarkFailed(ctx context.Context, id, errMsg string) error
	FindRecentByJobID(ctx context.Context, jobID string, limit int) ([]model.JobRun, error)
	FindLatestResult(ctx context.Context, jobID string) (*string, error)
	WithTx(tx *sqlx.Tx) JobRunRepository
}

type jobRunRepo struct {
	db sqlxDB
}

func NewJobRunRepository(db *sqlx.DB) JobRunRepository {
	return &jobRunRepo{db: db}
}

func (r *jobRunRepo) WithTx(tx *sqlx.Tx) JobRunRepository {
	return &jobRunRepo{db: tx}
}

func (r *jobRunRepo) CreateRunning(ctx context.Context, jobID string) (*model.JobRun, error) {
	var run model.JobRun
	err := r.db.GetContext(ctx, &run, `
		INSERT INTO job_runs (id, job_id, status, started_at)
		VALUES ($1, $2, 'running', NOW())
		RETURNING *
	`, uuid.NewString(), jobID)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *jobRunRepo) MarkCompleted(ctx context.Context, id, result string, creditsCharged int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE job_runs SET
			status = 'completed',
			result = $2,
			credits_charged = $3,
			completed_at = NOW()
		WHERE id = $1
	`, id, result, creditsCharged)
	return err
}

func (r *jobRunRepo) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE job_runs SET
			status = 'failed',
			error = $2,
			completed_at = NOW()
		WHERE id = $1
	`, id, errMsg)
	return err
}

func (r *jobRunRepo) FindRecentByJobID(ctx context.Context, jobID string, limit int) ([]model.JobRun, error) {
	var runs []model.JobRun
	err := r.db.SelectContext(ctx, &runs, `
		SELECT * FROM job_runs
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, jobID, limit)
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *jobRunRepo) FindLatestResult(ctx context.Context, jobID string) (*string, error) {
	var result string
	err := r.db.GetContext(ctx, &result, `
		SELECT result FROM job_runs
		WHERE job_id = $1 AND status = 'completed' AND result IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, jobID)
	return HandleNotFound(&result, err)
}
