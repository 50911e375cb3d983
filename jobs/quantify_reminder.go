package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuantifyReminderJob finds quantifiers who still have open work in a
// quantifying period and logs a reminder per quantifier. Downstream bots
// tail these log lines to message people on their platform of choice.
type QuantifyReminderJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewQuantifyReminderJob wires dependencies for the reminder handler.
func NewQuantifyReminderJob(pool *pgxpool.Pool, logger *slog.Logger) *QuantifyReminderJob {
	return &QuantifyReminderJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes quantify reminder tasks.
func (j *QuantifyReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("quantify reminder: handler not configured")
	}
	var payload QuantifyReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	start := j.now()
	logger.Info("starting quantify reminder scan")

	pending, err := j.fetchPending(ctx, payload)
	if err != nil {
		logger.Error("load pending quantifications", slog.Any("error", err))
		return err
	}
	for _, p := range pending {
		logger.Info("quantifier has unfinished work",
			slog.String("period", p.PeriodName),
			slog.String("quantifier", p.Username),
			slog.Int("remaining", p.Remaining),
		)
	}
	logger.Info("completed quantify reminder scan",
		slog.Int("quantifiers", len(pending)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

type pendingQuantifier struct {
	PeriodName string
	Username   string
	Remaining  int
}

// fetchPending counts untouched quantifications per quantifier in every
// quantifying period. A quantification is untouched while its score is zero
// and it is neither dismissed nor marked duplicate.
func (j *QuantifyReminderJob) fetchPending(ctx context.Context, payload QuantifyReminderPayload) ([]pendingQuantifier, error) {
	if j.Pool == nil {
		return nil, errors.New("quantify reminder: pool not configured")
	}
	query := `
SELECT pe.name, u.username, COUNT(*)
FROM quantifications q
JOIN praises p ON p.id = q.praise_id
JOIN users u ON u.id = q.quantifier_id
JOIN periods pe ON pe.status = 'QUANTIFY'
 AND p.created_at <= pe.end_date
 AND p.created_at > COALESCE(
   (SELECT MAX(prev.end_date) FROM periods prev WHERE prev.end_date < pe.end_date),
   'epoch'::timestamptz)
WHERE q.score = 0 AND NOT q.dismissed AND q.duplicate_praise_id IS NULL`
	args := []any{}
	if payload.PeriodID != nil {
		query += ` AND pe.id = $1`
		args = append(args, *payload.PeriodID)
	}
	query += ` GROUP BY pe.name, u.username ORDER BY pe.name, u.username`

	rows, err := j.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pendingQuantifier
	for rows.Next() {
		var p pendingQuantifier
		if err := rows.Scan(&p.PeriodName, &p.Username, &p.Remaining); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (j *QuantifyReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskQuantifyReminder))
	}
	return slog.Default().With(slog.String("job", TaskQuantifyReminder))
}

func (j *QuantifyReminderJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
