package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/praisehq/praise/internal/eventlog"
)

// EventLogCleanupJob prunes event log entries older than the retention
// window.
type EventLogCleanupJob struct {
	Repo   *eventlog.Repository
	Logger *slog.Logger
	clock  func() time.Time
}

// NewEventLogCleanupJob wires dependencies for the cleanup handler.
func NewEventLogCleanupJob(repo *eventlog.Repository, logger *slog.Logger) *EventLogCleanupJob {
	return &EventLogCleanupJob{
		Repo:   repo,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes event log cleanup tasks.
func (j *EventLogCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("eventlog cleanup: handler not configured")
	}
	var payload EventLogCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Retention <= 0 {
		payload.Retention = 90 * 24 * time.Hour
	}

	cutoff := j.now().Add(-payload.Retention)
	removed, err := j.Repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger().Error("prune event log", slog.Any("error", err))
		return err
	}
	j.logger().Info("pruned event log",
		slog.Time("cutoff", cutoff),
		slog.Int64("removed", removed),
	)
	return nil
}

func (j *EventLogCleanupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskEventLogCleanup))
	}
	return slog.Default().With(slog.String("job", TaskEventLogCleanup))
}

func (j *EventLogCleanupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
