package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/agenthive/proxy-server-go/internal/model"
)

type JobRepository interface {
	FindByID(ctx context.Context, id string) (*model.Job, error)
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Job, error)
	FindByUser(ctx context.Context, userID string) ([]model.Job, error)
	// FindDue selects up to limit active jobs whose next_run_at has passed,
	// oldest due first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.Job, error)
	Create(ctx context.Context, params model.CreateJobParams) (*model.Job, error)
	// UpdateStatusByUser applies a user-initiated transition. Jobs that are
	// cancelled or completed stay that way; the guard makes the update a no-op
	// for them and the caller sees zero rows.
	UpdateStatusByUser(ctx context.Context, id, userID string, status model.JobStatus) (*model.Job, error)
	// Pause is the worker-side funds-exhaustion transition.
	Pause(ctx context.Context, id string) error
	// Advance reschedules a recurring job after a successful run.
	Advance(ctx context.Context, id string, nextRunAt time.Time, creditsCharged int64) error
	// Complete finishes a one-time job after its only run; next_run_at is
	// cleared so the job never reappears in FindDue.
	Complete(ctx context.Context, id string, creditsCharged int64) error
	// Touch bumps updated_at without changing scheduling state (failed runs).
	Touch(ctx context.Context, id string) error
	WithTx(tx *sqlx.Tx) JobRepository
}

type jobRepo struct {
	db sqlxDB
}

func NewJobRepository(db *sqlx.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) WithTx(tx *sqlx.Tx) JobRepository {
	return &jobRepo{db: tx}
}

func (r *jobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := r.db.GetContext(ctx, &job, `
		SELECT * FROM jobs WHERE id = $1
	`, id)
	return HandleNotFound(&job, err)
}

func (r *jobRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Job, error) {
	var job model.Job
	err := r.db.GetContext(ctx, &job, `
		SELECT * FROM jobs WHERE id = $1 AND user_id = $2
	`, id, userID)
	return HandleNotFound(&job, err)
}

func (r *jobRepo) FindByUser(ctx context.Context, userID string) ([]model.Job, error) {
	var jobs []model.Job
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]model.Job, error) {
	var jobs []model.Job
	err := r.db.SelectContext(ctx, &jobs, `
		SELECT * FROM jobs
		WHERE status = 'active' AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) Create(ctx context.Context, params model.CreateJobParams) (*model.Job, error) {
	var job model.Job
	err := r.db.GetContext(ctx, &job, `
		INSERT INTO jobs (
			id, user_id, agent_id, license_id, config, billing_model,
			schedule, status, next_run_at, output_methods, notification_email
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', $8, $9, $10)
		RETURNING *
	`, uuid.NewString(), params.UserID, params.AgentID, params.LicenseID,
		[]byte(params.Config), params.BillingModel, params.Schedule,
		params.NextRunAt, pq.StringArray(params.OutputMethods), params.NotificationEmail)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) UpdateStatusByUser(ctx context.Context, id, userID string, status model.JobStatus) (*model.Job, error) {
	var job model.Job
	err := r.db.GetContext(ctx, &job, `
		UPDATE jobs SET status = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		  AND status NOT IN ('cancelled', 'completed')
		RETURNING *
	`, id, userID, status)
	return HandleNotFound(&job, err)
}

func (r *jobRepo) Pause(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = 'paused', updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *jobRepo) Advance(ctx context.Context, id string, nextRunAt time.Time, creditsCharged int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			last_run_at = NOW(),
			next_run_at = $2,
			run_count = run_count + 1,
			credits_spent_total = credits_spent_total + $3,
			updated_at = NOW()
		WHERE id = $1
	`, id, nextRunAt, creditsCharged)
	return err
}

func (r *jobRepo) Complete(ctx context.Context, id string, creditsCharged int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET
			last_run_at = NOW(),
			next_run_at = NULL,
			run_count = run_count + 1,
			credits_spent_total = credits_spent_total + $2,
			status = 'completed',
			updated_at = NOW()
		WHERE id = $1
	`, id, creditsCharged)
	return err
}

func (r *jobRepo) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET updated_at = NOW() WHERE id = $1
	`, id)
	return err
}
