package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/services/auth-lambda/models"
)

// ErrDuplicateEmail is returned by Create when the email is taken
var ErrDuplicateEmail = errors.New("email already exists")

// UserRepository handles user data access
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		db: db.GetDB(),
	}
}

// NewUserRepositoryWithDB binds the repository to conn
func NewUserRepositoryWithDB(conn *sql.DB) *UserRepository {
	return &UserRepository{db: conn}
}

const userColumns = "id, email, password, role, created_at"

func (r *UserRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

// FindByEmail finds a user by email; nil, nil when absent
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByID finds a user by id; nil, nil when absent
func (r *UserRepository) FindByID(ctx context.Context, id int) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// Create inserts a user with an already hashed password and returns its id
func (r *UserRepository) Create(ctx context.Context, email, passwordHash, role string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (email, password, role) VALUES (?, ?, ?)",
		email, passwordHash, role,
	)
	if err != nil {
		if db.IsDuplicateKey(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read user id: %w", err)
	}
	return int(id), nil
}

// SetRole changes a user's role
func (r *UserRepository) SetRole(ctx context.Context, id int, role string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", role, id); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}
