package model

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Job is a recurring or one-time unattended agent invocation billed from the
// owner's credit balance. Mutated by the worker on every run and by the owner
// via pause/resume/cancel; never hard-deleted.
type Job struct {
	ID        string  `db:"id" json:"id"`
	UserID    string  `db:"user_id" json:"userId"`
	AgentID   string  `db:"agent_id" json:"agentId"`
	LicenseID *string `db:"license_id" json:"licenseId,omitempty"`

	Config       json.RawMessage `db:"config" json:"config"`
	BillingModel string          `db:"billing_model" json:"billingModel"`
	Schedule     JobSchedule     `db:"schedule" json:"schedule"`
	Status       JobStatus       `db:"status" json:"status"`

	LastRunAt *time.Time `db:"last_run_at" json:"lastRunAt,omitempty"`
	NextRunAt *time.Time `db:"next_run_at" json:"nextRunAt,omitempty"`

	RunCount          int64 `db:"run_count" json:"runCount"`
	CreditsSpentTotal int64 `db:"credits_spent_total" json:"creditsSpentTotal"`

	OutputMethods     pq.StringArray `db:"output_methods" json:"outputMethods"`
	NotificationEmail *string        `db:"notification_email" json:"notificationEmail,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateJobParams struct {
	UserID            string
	AgentID           string
	LicenseID         *string
	Config            json.RawMessage
	BillingModel      string
	Schedule          JobSchedule
	NextRunAt         time.Time
	OutputMethods     []string
	NotificationEmail *string
}

// JobRun is one execution attempt of a Job. Append-only per attempt.
type JobRun struct {
	ID    string `db:"id" json:"id"`
	JobID string `db:"job_id" json:"jobId"`

	Status      JobRunStatus `db:"status" json:"status"`
	StartedAt   time.Time    `db:"started_at" json:"startedAt"`
	CompletedAt *time.Time   `db:"completed_at" json:"completedAt,omitempty"`

	Result *string `db:"result" json:"result,omitempty"`
	Error  *string `db:"error" json:"error,omitempty"`

	CreditsCharged int64 `db:"credits_charged" json:"creditsCharged"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
