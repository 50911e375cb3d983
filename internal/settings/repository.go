package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praisehq/praise/internal/platform/httpx"
)

// Repository persists global and period-scoped settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetGlobal fetches a global default.
func (r *Repository) GetGlobal(ctx context.Context, key string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx,
		`SELECT key, value, type, label, updated_at FROM settings WHERE key = $1`, key).
		Scan(&s.Key, &s.Value, &s.Type, &s.Label, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, fmt.Errorf("settings: %q not found: %w", key, httpx.ErrNotFound)
		}
		return Setting{}, err
	}
	return s, nil
}

// GetPeriod fetches a period override. Returns ErrNotFound when the period
// has no row for the key.
func (r *Repository) GetPeriod(ctx context.Context, key string, periodID uuid.UUID) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx,
		`SELECT key, value, type, label, period_id, updated_at FROM period_settings WHERE key = $1 AND period_id = $2`,
		key, periodID).
		Scan(&s.Key, &s.Value, &s.Type, &s.Label, &s.PeriodID, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, fmt.Errorf("settings: %q not found for period: %w", key, httpx.ErrNotFound)
		}
		return Setting{}, err
	}
	return s, nil
}

// ListPeriod returns all settings rows for a period.
func (r *Repository) ListPeriod(ctx context.Context, periodID uuid.UUID) ([]Setting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value, type, label, period_id, updated_at FROM period_settings WHERE period_id = $1 ORDER BY key`,
		periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Type, &s.Label, &s.PeriodID, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetPeriod updates a period override value.
func (r *Repository) SetPeriod(ctx context.Context, key string, periodID uuid.UUID, value string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx,
		`UPDATE period_settings SET value = $3, updated_at = $4 WHERE key = $1 AND period_id = $2
		 RETURNING key, value, type, label, period_id, updated_at`,
		key, periodID, value, time.Now().UTC()).
		Scan(&s.Key, &s.Value, &s.Type, &s.Label, &s.PeriodID, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, fmt.Errorf("settings: %q not found for period: %w", key, httpx.ErrNotFound)
		}
		return Setting{}, err
	}
	return s, nil
}

// CopyDefaultsToPeriod snapshots current global settings as the new period's
// scoped values.
func (r *Repository) CopyDefaultsToPeriod(ctx context.Context, periodID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO period_settings (key, value, type, label, period_id, updated_at)
		 SELECT key, value, type, label, $1, NOW() FROM settings
		 ON CONFLICT (key, period_id) DO NOTHING`, periodID)
	return err
}
