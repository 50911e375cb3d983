package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praisehq/praise/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for users and accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, ethereum_address, password_hash, roles, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.EthereumAddress, &u.PasswordHash, &u.Roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("users: user not found: %w", httpx.ErrNotFound)
		}
		return User{}, err
	}
	return u, nil
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindByID fetches a single user.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// FindByUsername fetches a user by login name.
func (r *Repository) FindByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// ListQuantifiers returns active users holding the QUANTIFIER role.
func (r *Repository) ListQuantifiers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_active AND $1 = ANY(roles) ORDER BY username`, RoleQuantifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// FindAccount fetches a user account by id.
func (r *Repository) FindAccount(ctx context.Context, id uuid.UUID) (UserAccount, error) {
	var a UserAccount
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, account_id, name, platform, created_at, updated_at FROM user_accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.UserID, &a.AccountID, &a.Name, &a.Platform, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserAccount{}, fmt.Errorf("users: account not found: %w", httpx.ErrNotFound)
		}
		return UserAccount{}, err
	}
	return a, nil
}

// ListAccountsByUser returns all platform accounts linked to a user.
func (r *Repository) ListAccountsByUser(ctx context.Context, userID uuid.UUID) ([]UserAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, account_id, name, platform, created_at, updated_at FROM user_accounts WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []UserAccount
	for rows.Next() {
		var a UserAccount
		if err := rows.Scan(&a.ID, &a.UserID, &a.AccountID, &a.Name, &a.Platform, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
