// Package repositories implements the data access layer for the adoption API.
// Each repository encapsulates the queries of one entity and carries no
// authorization logic; handlers and services never issue SQL directly.
// Lookups return (nil, nil) when the row does not exist.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rede-de-patas/patas-api/internal/db/models"
)

const userColumns = `id, name, email, phone, postal_code, address, is_admin, password_hash,
	housing, window_screens, children_at_home, open_area, has_animals, animal_types, animal_count,
	created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and fills in its id and timestamps. A duplicate email
// returns ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (name, email, phone, postal_code, address, is_admin, password_hash,
			housing, window_screens, children_at_home, open_area, has_animals, animal_types, animal_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.Name, u.Email, u.Phone, u.PostalCode, u.Address, u.IsAdmin, u.PasswordHash,
		u.Housing, u.WindowScreens, u.ChildrenAtHome, u.OpenArea, u.HasAnimals, u.AnimalTypes, u.AnimalCount,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetByEmail retrieves a user by email, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

// List returns every user ordered by id
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	users := []*models.User{}
	if err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update saves the profile fields and password hash of u. The admin flag is
// not touched; see SetAdminByEmail.
func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users SET
			name = $2, email = $3, phone = $4, postal_code = $5, address = $6,
			housing = $7, window_screens = $8, children_at_home = $9, open_area = $10,
			has_animals = $11, animal_types = $12, animal_count = $13,
			password_hash = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.ID, u.Name, u.Email, u.Phone, u.PostalCode, u.Address,
		u.Housing, u.WindowScreens, u.ChildrenAtHome, u.OpenArea,
		u.HasAnimals, u.AnimalTypes, u.AnimalCount, u.PasswordHash,
	).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// SetAdminByEmail sets the admin flag of the user with the given email.
// It returns ErrUserNotFound when no such user exists.
func (r *UserRepository) SetAdminByEmail(ctx context.Context, email string, isAdmin bool) (*models.User, error) {
	var u models.User
	query := `UPDATE users SET is_admin = $2, updated_at = NOW() WHERE LOWER(email) = LOWER($1) RETURNING ` + userColumns
	err := r.db.GetContext(ctx, &u, query, email, isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set admin flag: %w", err)
	}
	return &u, nil
}
