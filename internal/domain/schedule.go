package domain

import "time"

// ScheduleStatus tracks the lifecycle of one deferred distribution request.
type ScheduleStatus string

const (
	ScheduleStatusScheduled   ScheduleStatus = "scheduled"
	ScheduleStatusSentToQueue ScheduleStatus = "sent_to_queue"
	ScheduleStatusFailed      ScheduleStatus = "failed"
	ScheduleStatusCancelled   ScheduleStatus = "cancelled"
)

// ScheduledPost holds a distribution request until its due time. At most
// one active schedule exists per job; scheduling again replaces it.
type ScheduledPost struct {
	JobID         string
	Platforms     []string
	ScheduledTime time.Time
	Status        ScheduleStatus
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Due reports whether the post is still pending and its time has elapsed.
func (p ScheduledPost) Due(now time.Time) bool {
	return p.Status == ScheduleStatusScheduled && !p.ScheduledTime.After(now)
}
