package service

import (
	"time"

	"github.com/agenthive/proxy-server-go/internal/model"
)

// NextRunTime returns when a job on the given schedule should run again
// after a run at `from`. One-time jobs have no next run; the second return
// value reports whether one exists.
func NextRunTime(schedule model.JobSchedule, from time.Time) (time.Time, bool) {
	switch schedule {
	case model.ScheduleHourly:
		return from.Add(time.Hour), true
	case model.ScheduleDaily:
		return from.AddDate(0, 0, 1), true
	case model.ScheduleWeekly:
		return from.AddDate(0, 0, 7), true
	default:
		return time.Time{}, false
	}
}

// RunPriceCredits is the flat price charged for one unattended job run,
// resolved from the agent's pricing with a platform default as fallback.
func RunPriceCredits(agent *model.Agent, defaultPrice int64) int64 {
	if agent.PricePerRunCredits != nil && *agent.PricePerRunCredits > 0 {
		return *agent.PricePerRunCredits
	}
	if agent.PricePerMessageCredits > 0 {
		return agent.PricePerMessageCredits
	}
	return defaultPrice
}
