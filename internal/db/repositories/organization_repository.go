// organization_repository.go implements OrganizationRepository, providing database queries
// for ONG CRUD and the user-to-ONG membership relation.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rede-de-patas/patas-api/internal/db"
	"github.com/rede-de-patas/patas-api/internal/db/models"
)

const ongColumns = `id, name, email, phone, address, social_media, website, created_at, updated_at`

// OrganizationRepository handles database operations for ONGs and memberships
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetByID retrieves an ONG by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	var org models.Organization
	err := r.db.GetContext(ctx, &org, `SELECT `+ongColumns+` FROM ongs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// List returns every ONG ordered by name
func (r *OrganizationRepository) List(ctx context.Context) ([]*models.Organization, error) {
	orgs := []*models.Organization{}
	if err := r.db.SelectContext(ctx, &orgs, `SELECT `+ongColumns+` FROM ongs ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// CreateWithFounder inserts the ONG and the founder's membership in one
// transaction; either both rows exist afterwards or neither does.
func (r *OrganizationRepository) CreateWithFounder(ctx context.Context, org *models.Organization, founderID int64) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO ongs (name, email, phone, address, social_media, website)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRowxContext(ctx, query,
			org.Name, org.Email, org.Phone, org.Address, org.SocialMedia, org.Website,
		).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create organization: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO ong_members (user_id, ong_id, created_at) VALUES ($1, $2, NOW())`,
			founderID, org.ID,
		)
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to add founding member: %w", err)
		}
		return nil
	})
}

// Update saves the contact fields of org
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE ongs SET
			name = $2, email = $3, phone = $4, address = $5, social_media = $6, website = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		org.ID, org.Name, org.Email, org.Phone, org.Address, org.SocialMedia, org.Website,
	).Scan(&org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOngNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return nil
}

// Delete removes an ONG together with all of its memberships and detaches
// its animals, in one transaction.
func (r *OrganizationRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE animals SET ong_id = NULL, updated_at = NOW() WHERE ong_id = $1`, id); err != nil {
			return fmt.Errorf("failed to detach animals: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ong_members WHERE ong_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete memberships: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM ongs WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete organization: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete organization: %w", err)
		}
		if n == 0 {
			return ErrOngNotFound
		}
		return nil
	})
}

// === Membership Operations ===

// AddMember grants userID membership of ongID. A duplicate returns
// ErrAlreadyMember; a missing user or ONG returns ErrUserNotFound or ErrOngNotFound.
func (r *OrganizationRepository) AddMember(ctx context.Context, ongID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ong_members (user_id, ong_id, created_at) VALUES ($1, $2, NOW())`,
		userID, ongID,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrAlreadyMember
	case isForeignKeyViolation(err):
		if pgError(err).Constraint == constraintMemberUserFK {
			return ErrUserNotFound
		}
		return ErrOngNotFound
	default:
		return fmt.Errorf("failed to add member: %w", err)
	}
}

// RemoveMember deletes a membership. It returns ErrMembershipNotFound when
// the membership does not exist. The ONG is kept even when it loses its last member.
func (r *OrganizationRepository) RemoveMember(ctx context.Context, ongID, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ong_members WHERE ong_id = $1 AND user_id = $2`, ongID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if n == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// IsMember reports whether userID holds a membership of ongID
func (r *OrganizationRepository) IsMember(ctx context.Context, ongID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM ong_members WHERE ong_id = $1 AND user_id = $2)`, ongID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}

// MembershipsFor returns the ids of the ONGs userID belongs to, oldest membership first
func (r *OrganizationRepository) MembershipsFor(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids,
		`SELECT ong_id FROM ong_members WHERE user_id = $1 ORDER BY created_at, ong_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return ids, nil
}

// MembersOf returns the ids of the users belonging to ongID, oldest membership first
func (r *OrganizationRepository) MembersOf(ctx context.Context, ongID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM ong_members WHERE ong_id = $1 ORDER BY created_at, user_id`, ongID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return ids, nil
}

// ListMembersWithUsers returns the members of ongID with their name and email
func (r *OrganizationRepository) ListMembersWithUsers(ctx context.Context, ongID int64) ([]*models.OrganizationMemberWithUser, error) {
	query := `
		SELECT m.ong_id, m.user_id, u.name AS user_name, u.email AS user_email, u.is_admin, m.created_at
		FROM ong_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.ong_id = $1
		ORDER BY m.created_at, m.user_id
	`
	members := []*models.OrganizationMemberWithUser{}
	if err := r.db.SelectContext(ctx, &members, query, ongID); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// GetUserMemberships returns the ONGs userID belongs to with their names
func (r *OrganizationRepository) GetUserMemberships(ctx context.Context, userID int64) ([]models.UserMembership, error) {
	query := `
		SELECT m.ong_id, o.name AS ong_name, m.created_at
		FROM ong_members m
		JOIN ongs o ON o.id = m.ong_id
		WHERE m.user_id = $1
		ORDER BY m.created_at, m.ong_id
	`
	memberships := []models.UserMembership{}
	if err := r.db.SelectContext(ctx, &memberships, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user memberships: %w", err)
	}
	return memberships, nil
}
