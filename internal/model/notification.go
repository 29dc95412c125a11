package model

import (
	"time"
)

// Notification is an in-app message for an account, created by the worker as
// a side effect of runs; mutated only to flip the read flag.
type Notification struct {
	ID       string  `db:"id" json:"id"`
	UserID   string  `db:"user_id" json:"userId"`
	JobID    *string `db:"job_id" json:"jobId,omitempty"`
	JobRunID *string `db:"job_run_id" json:"jobRunId,omitempty"`

	Type  NotificationType `db:"type" json:"type"`
	Title string           `db:"title" json:"title"`
	Body  string           `db:"body" json:"body"`

	IsRead    bool      `db:"is_read" json:"isRead"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateNotificationParams struct {
	UserID   string
	JobID    *string
	JobRunID *string
	Type     NotificationType
	Title    string
	Body     string
}
