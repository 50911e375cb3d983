package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuantifyReminder nudges quantifiers with unfinished assignments.
	TaskQuantifyReminder = "period:quantify_reminder"
	// TaskEventLogCleanup prunes event log entries past retention.
	TaskEventLogCleanup = "eventlog:cleanup"
)

// QuantifyReminderPayload scopes a reminder run to one period, or to every
// quantifying period when PeriodID is nil.
type QuantifyReminderPayload struct {
	PeriodID *uuid.UUID `json:"periodId,omitempty"`
}

// NewQuantifyReminderTask constructs an Asynq task.
func NewQuantifyReminderTask(payload QuantifyReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuantifyReminder, data), nil
}

// EventLogCleanupPayload carries the retention window for a cleanup run.
type EventLogCleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewEventLogCleanupTask constructs an Asynq task.
func NewEventLogCleanupTask(payload EventLogCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEventLogCleanup, data), nil
}
