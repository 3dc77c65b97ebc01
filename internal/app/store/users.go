package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cesuchat/internal/app/hub"
)

// Account is a user row including the credential hash. It never leaves the
// auth handlers; the hub only sees hub.User and hub.Identity.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
}

// Users resolves user records and accounts. It implements hub.UserStore.
type Users struct {
	pool *pgxpool.Pool
}

// NewUsers constructs a Users store over the given pool.
func NewUsers(pool *pgxpool.Pool) *Users {
	return &Users{pool: pool}
}

// FindByID fetches a user record. It returns (nil, nil) when no user matches.
func (s *Users) FindByID(ctx context.Context, userID int64) (*hub.User, error) {
	user := &hub.User{}

	const query = `SELECT id, email, name FROM users WHERE id = $1`
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Email, &user.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

// FindAccountByEmail fetches the account for login credential checks.
// It returns (nil, nil) when no account matches.
func (s *Users) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	account := &Account{}

	const query = `SELECT id, email, name, password_hash FROM users WHERE email = $1`
	if err := s.pool.QueryRow(ctx, query, email).Scan(&account.ID, &account.Email, &account.Name, &account.PasswordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select account: %w", err)
	}

	return account, nil
}

// CreateAccount inserts a new account and returns its generated id.
func (s *Users) CreateAccount(ctx context.Context, email string, name string, passwordHash string) (int64, error) {
	var id int64

	const query = `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id`

	if err := s.pool.QueryRow(ctx, query, email, name, passwordHash).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}

	return id, nil
}
