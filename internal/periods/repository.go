package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praisehq/praise/internal/platform/db"
	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/shared"
)

// Repository persists periods.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

const periodColumns = `id, name, status, end_date, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.Status, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, fmt.Errorf("periods: not found: %w", httpx.ErrNotFound)
		}
		return Period{}, err
	}
	return p, nil
}

// FindByID fetches one period.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Period, error) {
	return scanPeriod(r.pool.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE id = $1`, id))
}

// FindLatest returns the period with the newest end date.
func (r *Repository) FindLatest(ctx context.Context) (Period, error) {
	return scanPeriod(r.pool.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM periods ORDER BY end_date DESC LIMIT 1`))
}

// FindByDate returns the period whose range contains the given instant, i.e.
// the earliest period ending at or after it.
func (r *Repository) FindByDate(ctx context.Context, at time.Time) (Period, error) {
	return scanPeriod(r.pool.QueryRow(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE end_date >= $1 ORDER BY end_date ASC LIMIT 1`, at))
}

// PreviousEndDate returns the end date of the period preceding the given end
// date, or the zero time when none exists.
func (r *Repository) PreviousEndDate(ctx context.Context, endDate time.Time) (time.Time, error) {
	var prev time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT end_date FROM periods WHERE end_date < $1 ORDER BY end_date DESC LIMIT 1`, endDate).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	return prev, err
}

// List returns periods newest first with pagination.
func (r *Repository) List(ctx context.Context, page, perPage int) ([]Period, shared.Pagination, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM periods`).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+periodColumns+` FROM periods ORDER BY end_date DESC LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		out = append(out, p)
	}
	return out, shared.NewPagination(page, perPage, total), rows.Err()
}

// Create inserts a new period.
func (r *Repository) Create(ctx context.Context, p Period) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO periods (id, name, status, end_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Status, p.EndDate, p.CreatedAt, p.UpdatedAt)
	return err
}

// Update saves name and end date edits.
func (r *Repository) Update(ctx context.Context, p Period) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE periods SET name = $2, end_date = $3, updated_at = $4 WHERE id = $1`,
		p.ID, p.Name, p.EndDate, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("periods: not found: %w", httpx.ErrNotFound)
	}
	return nil
}

// TransitionStatus moves a period from one status to the next only if it is
// still in the expected state, as a guard against concurrent transitions.
func (r *Repository) TransitionStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to string) error {
	tag, err := tx.Exec(ctx,
		`UPDATE periods SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("periods: period is no longer %s: %w", from, httpx.ErrConflict)
	}
	return nil
}

// MarkClosed closes a period regardless of its current open state. Only an
// already closed period makes the update a no-op, which reports conflict.
func (r *Repository) MarkClosed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx,
		`UPDATE periods SET status = $2, updated_at = $3 WHERE id = $1 AND status <> $2`,
		id, StatusClosed, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("periods: period is already closed: %w", httpx.ErrConflict)
	}
	return nil
}
