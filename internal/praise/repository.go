package praise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praisehq/praise/internal/platform/db"
	"github.com/praisehq/praise/internal/platform/httpx"
	"github.com/praisehq/praise/internal/users"
)

// Repository persists praise and quantification records.
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

const praiseSelect = `SELECT p.id, p.giver_id, p.receiver_id, p.forwarder_id, p.reason, p.reason_realized,
	p.source_id, p.source_name, p.created_at, p.updated_at,
	g.id, g.user_id, g.account_id, g.name, g.platform, g.created_at, g.updated_at,
	r.id, r.user_id, r.account_id, r.name, r.platform, r.created_at, r.updated_at,
	f.id, f.user_id, f.account_id, f.name, f.platform, f.created_at, f.updated_at
FROM praises p
JOIN user_accounts g ON g.id = p.giver_id
JOIN user_accounts r ON r.id = p.receiver_id
LEFT JOIN user_accounts f ON f.id = p.forwarder_id`

func scanPraise(row pgx.Row) (Praise, error) {
	var (
		p Praise

		fID        *uuid.UUID
		fUserID    *uuid.UUID
		fAccountID *string
		fName      *string
		fPlatform  *string
		fCreatedAt *time.Time
		fUpdatedAt *time.Time
	)
	err := row.Scan(
		&p.ID, &p.GiverID, &p.ReceiverID, &p.ForwarderID, &p.Reason, &p.ReasonRealized,
		&p.SourceID, &p.SourceName, &p.CreatedAt, &p.UpdatedAt,
		&p.Giver.ID, &p.Giver.UserID, &p.Giver.AccountID, &p.Giver.Name, &p.Giver.Platform, &p.Giver.CreatedAt, &p.Giver.UpdatedAt,
		&p.Receiver.ID, &p.Receiver.UserID, &p.Receiver.AccountID, &p.Receiver.Name, &p.Receiver.Platform, &p.Receiver.CreatedAt, &p.Receiver.UpdatedAt,
		&fID, &fUserID, &fAccountID, &fName, &fPlatform, &fCreatedAt, &fUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Praise{}, fmt.Errorf("praise: not found: %w", httpx.ErrNotFound)
		}
		return Praise{}, err
	}
	if fID != nil {
		p.Forwarder = &users.UserAccount{
			ID:        *fID,
			UserID:    fUserID,
			AccountID: deref(fAccountID),
			Name:      deref(fName),
			Platform:  deref(fPlatform),
			CreatedAt: derefTime(fCreatedAt),
			UpdatedAt: derefTime(fUpdatedAt),
		}
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (r *Repository) queryPraises(ctx context.Context, query string, args ...any) ([]Praise, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var praises []Praise
	for rows.Next() {
		p, err := scanPraise(rows)
		if err != nil {
			return nil, err
		}
		praises = append(praises, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return praises, r.attachQuantifications(ctx, praises)
}

func (r *Repository) attachQuantifications(ctx context.Context, praises []Praise) error {
	if len(praises) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(praises))
	index := make(map[uuid.UUID]int, len(praises))
	for i, p := range praises {
		ids[i] = p.ID
		index[p.ID] = i
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, praise_id, quantifier_id, score, dismissed, duplicate_praise_id, created_at, updated_at
		 FROM quantifications WHERE praise_id = ANY($1) ORDER BY created_at`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var q Quantification
		if err := rows.Scan(&q.ID, &q.PraiseID, &q.QuantifierID, &q.Score, &q.Dismissed, &q.DuplicatePraiseID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return err
		}
		i := index[q.PraiseID]
		praises[i].Quantifications = append(praises[i].Quantifications, q)
	}
	return rows.Err()
}

// FindByID fetches a single praise with its quantifications.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (Praise, error) {
	p, err := scanPraise(r.pool.QueryRow(ctx, praiseSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return Praise{}, err
	}
	list := []Praise{p}
	if err := r.attachQuantifications(ctx, list); err != nil {
		return Praise{}, err
	}
	return list[0], nil
}

// FindByDateRange returns praise with previousEnd < createdAt <= end, newest
// first. The half-open interval is the sole mechanism binding praise to a
// period.
func (r *Repository) FindByDateRange(ctx context.Context, previousEnd, end time.Time) ([]Praise, error) {
	return r.queryPraises(ctx,
		praiseSelect+` WHERE p.created_at > $1 AND p.created_at <= $2 ORDER BY p.created_at DESC`,
		previousEnd, end)
}

// FindByDateRangeAndReceiver narrows the range query to one receiver account.
func (r *Repository) FindByDateRangeAndReceiver(ctx context.Context, previousEnd, end time.Time, receiverID uuid.UUID) ([]Praise, error) {
	return r.queryPraises(ctx,
		praiseSelect+` WHERE p.created_at > $1 AND p.created_at <= $2 AND p.receiver_id = $3 ORDER BY p.created_at DESC`,
		previousEnd, end, receiverID)
}

// FindByDateRangeAndQuantifier returns the praise in range assigned to the
// given quantifier.
func (r *Repository) FindByDateRangeAndQuantifier(ctx context.Context, previousEnd, end time.Time, quantifierID uuid.UUID) ([]Praise, error) {
	return r.queryPraises(ctx,
		praiseSelect+` WHERE p.created_at > $1 AND p.created_at <= $2
		 AND EXISTS (SELECT 1 FROM quantifications q WHERE q.praise_id = p.id AND q.quantifier_id = $3)
		 ORDER BY p.created_at DESC`,
		previousEnd, end, quantifierID)
}

// Insert writes a new praise row.
func (r *Repository) Insert(ctx context.Context, p Praise) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO praises (id, giver_id, receiver_id, forwarder_id, reason, reason_realized, source_id, source_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.GiverID, p.ReceiverID, p.ForwarderID, p.Reason, p.ReasonRealized, p.SourceID, p.SourceName, p.CreatedAt, p.UpdatedAt)
	return err
}

// InsertQuantifications bulk-creates quantification rows inside the supplied
// transaction so an assignment run commits atomically.
func (r *Repository) InsertQuantifications(ctx context.Context, tx pgx.Tx, quantifications []Quantification) error {
	batch := &pgx.Batch{}
	for _, q := range quantifications {
		batch.Queue(
			`INSERT INTO quantifications (id, praise_id, quantifier_id, score, dismissed, duplicate_praise_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.ID, q.PraiseID, q.QuantifierID, q.Score, q.Dismissed, q.DuplicatePraiseID, q.CreatedAt, q.UpdatedAt)
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range quantifications {
		if _, err := results.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("praise: quantification already exists: %w", httpx.ErrConflict)
			}
			return err
		}
	}
	return nil
}

// GetQuantification fetches the record for one (praise, quantifier) pair.
func (r *Repository) GetQuantification(ctx context.Context, praiseID, quantifierID uuid.UUID) (Quantification, error) {
	var q Quantification
	err := r.pool.QueryRow(ctx,
		`SELECT id, praise_id, quantifier_id, score, dismissed, duplicate_praise_id, created_at, updated_at
		 FROM quantifications WHERE praise_id = $1 AND quantifier_id = $2`, praiseID, quantifierID).
		Scan(&q.ID, &q.PraiseID, &q.QuantifierID, &q.Score, &q.Dismissed, &q.DuplicatePraiseID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quantification{}, fmt.Errorf("praise: quantification not found: %w", httpx.ErrNotFound)
		}
		return Quantification{}, err
	}
	return q, nil
}

// UpdateQuantification saves score/dismissed/duplicate changes.
func (r *Repository) UpdateQuantification(ctx context.Context, q Quantification) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quantifications SET score = $2, dismissed = $3, duplicate_praise_id = $4, updated_at = $5 WHERE id = $1`,
		q.ID, q.Score, q.Dismissed, q.DuplicatePraiseID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("praise: quantification not found: %w", httpx.ErrNotFound)
	}
	return nil
}

// ListQuantificationsByQuantifier returns a quantifier's workload for praise
// created inside the given range.
func (r *Repository) ListQuantificationsByQuantifier(ctx context.Context, previousEnd, end time.Time, quantifierID uuid.UUID) ([]Quantification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.praise_id, q.quantifier_id, q.score, q.dismissed, q.duplicate_praise_id, q.created_at, q.updated_at
		 FROM quantifications q
		 JOIN praises p ON p.id = q.praise_id
		 WHERE q.quantifier_id = $1 AND p.created_at > $2 AND p.created_at <= $3`,
		quantifierID, previousEnd, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quantification
	for rows.Next() {
		var q Quantification
		if err := rows.Scan(&q.ID, &q.PraiseID, &q.QuantifierID, &q.Score, &q.Dismissed, &q.DuplicatePraiseID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ReassignQuantification moves one quantification to a new owner inside the
// supplied transaction.
func (r *Repository) ReassignQuantification(ctx context.Context, tx pgx.Tx, id, newQuantifierID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE quantifications SET quantifier_id = $2, updated_at = $3 WHERE id = $1`,
		id, newQuantifierID, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("praise: quantification already exists for pair: %w", httpx.ErrConflict)
		}
	}
	return err
}

// CountQuantificationsInRange reports how many quantifications exist for
// praise created inside the range. Used to freeze period boundaries once
// scoring has begun.
func (r *Repository) CountQuantificationsInRange(ctx context.Context, previousEnd, end time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quantifications q JOIN praises p ON p.id = q.praise_id
		 WHERE p.created_at > $1 AND p.created_at <= $2`, previousEnd, end).Scan(&count)
	return count, err
}
