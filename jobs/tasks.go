package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPrune removes expired login sessions.
	TaskSessionsPrune = "auth:sessions:prune"
	// TaskReportsBacklog refreshes the unreviewed report gauge.
	TaskReportsBacklog = "reports:backlog"
)

// NewSessionsPruneTask constructs the session prune task.
func NewSessionsPruneTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsPrune, nil)
}

// NewReportsBacklogTask constructs the report backlog task.
func NewReportsBacklogTask() *asynq.Task {
	return asynq.NewTask(TaskReportsBacklog, nil)
}

// DefaultSchedule returns the periodic tasks the worker registers.
func DefaultSchedule() []CronRegistration {
	return []CronRegistration{
		{Spec: "@hourly", Task: NewSessionsPruneTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		{Spec: "@every 15m", Task: NewReportsBacklogTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
	}
}
