package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger describes when a job fires. Build one with Every or DailyAt.
type Trigger struct {
	schedule cron.Schedule
	desc     string
}

// Schedule exposes the underlying cron schedule
func (t Trigger) Schedule() cron.Schedule {
	return t.schedule
}

// String returns a human-readable description for logs
func (t Trigger) String() string {
	return t.desc
}

// Every fires at a fixed interval. Intervals under a second are rounded up.
func Every(d time.Duration) Trigger {
	return Trigger{
		schedule: cron.Every(d),
		desc:     fmt.Sprintf("every %s", d),
	}
}

// DailyAt fires once a day at the given UTC wall time
func DailyAt(hour, minute int) (Trigger, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Trigger{}, fmt.Errorf("invalid daily trigger time %02d:%02d", hour, minute)
	}

	schedule, err := cron.ParseStandard(fmt.Sprintf("CRON_TZ=UTC %d %d * * *", minute, hour))
	if err != nil {
		return Trigger{}, fmt.Errorf("failed to parse daily trigger: %w", err)
	}

	return Trigger{
		schedule: schedule,
		desc:     fmt.Sprintf("daily at %02d:%02d UTC", hour, minute),
	}, nil
}
