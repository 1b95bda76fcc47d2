package models

import (
	"time"
)

// JobState records the last time a named scheduled job fired. Used on
// startup to collapse missed occurrences into a single immediate run.
type JobState struct {
	JobName     string    `db:"job_name"`
	LastFiredAt time.Time `db:"last_fired_at"`
}
