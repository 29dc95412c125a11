package model

type LicenseStatus string

const (
	LicenseStatusActive    LicenseStatus = "active"
	LicenseStatusExpired   LicenseStatus = "expired"
	LicenseStatusRevoked   LicenseStatus = "revoked"
	LicenseStatusSuspended LicenseStatus = "suspended"
)

type PlanType string

const (
	PlanTypeSubscription PlanType = "subscription"
	PlanTypeOneTime      PlanType = "one_time"
	PlanTypeRental       PlanType = "rental"
	PlanTypeCredits      PlanType = "credits"
)

type JobSchedule string

const (
	ScheduleOnce   JobSchedule = "once"
	ScheduleHourly JobSchedule = "hourly"
	ScheduleDaily  JobSchedule = "daily"
	ScheduleWeekly JobSchedule = "weekly"
)

func ValidSchedule(s JobSchedule) bool {
	switch s {
	case ScheduleOnce, ScheduleHourly, ScheduleDaily, ScheduleWeekly:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusActive    JobStatus = "active"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusCompleted JobStatus = "completed"
)

type JobRunStatus string

const (
	RunStatusRunning   JobRunStatus = "running"
	RunStatusCompleted JobRunStatus = "completed"
	RunStatusFailed    JobRunStatus = "failed"
)

type NotificationType string

const (
	NotificationLowBalance NotificationType = "low_balance"
	NotificationJobResult  NotificationType = "job_result"
)

const (
	OutputMethodInApp = "in_app"
	OutputMethodEmail = "email"
)
