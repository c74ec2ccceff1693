package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// UserRepo defines the persistence operations for registered users.
type UserRepo interface {
	// Create inserts a user and returns the persisted row.
	// Returns domain.ErrConflict if the username or email is taken.
	Create(ctx context.Context, u domain.User) (domain.User, error)

	// GetByID retrieves a user by primary key.
	// Returns domain.ErrNotFound if no user with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// GetByUsername retrieves a user by exact username.
	// Returns domain.ErrNotFound if no such user exists.
	GetByUsername(ctx context.Context, username string) (domain.User, error)

	// UsernameExists reports whether the username is taken.
	UsernameExists(ctx context.Context, username string) (bool, error)

	// EmailExists reports whether the email is taken, ignoring case.
	EmailExists(ctx context.Context, email string) (bool, error)
}

// pgUserRepo is the Postgres implementation of UserRepo.
type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, is_staff, created_at`

// Create inserts a new user row.
func (r *pgUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	const q = `
		INSERT INTO users (username, email, password_hash, is_staff)
		VALUES (@username, @email, @password_hash, @is_staff)
		RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"username":      u.Username,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"is_staff":      u.IsStaff,
	})
	result, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", mapConstraintError(err))
	}
	return result, nil
}

// GetByID retrieves a user by primary key.
func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = @id`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetByUsername retrieves a user by username.
func (r *pgUserRepo) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = @username`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"username": username}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByUsername: %w", err)
	}
	return result, nil
}

// UsernameExists reports whether a user with the username exists.
func (r *pgUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE username = @username)`

	var exists bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"username": username}).Scan(&exists); err != nil {
		return false, fmt.Errorf("repo.UserRepo.UsernameExists: %w", err)
	}
	return exists, nil
}

// EmailExists reports whether a user with the email exists.
func (r *pgUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower(@email))`

	var exists bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}).Scan(&exists); err != nil {
		return false, fmt.Errorf("repo.UserRepo.EmailExists: %w", err)
	}
	return exists, nil
}

// scanUser maps a single database row into a domain.User.
func scanUser(s scanner) (domain.User, error) {
	var (
		u  domain.User
		id pgtype.UUID
	)
	err := s.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &u.IsStaff, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	u.ID = uuid.UUID(id.Bytes)
	return u, nil
}
