// animal_repository.go implements AnimalRepository, providing database queries
// for the adoption catalogue.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rede-de-patas/patas-api/internal/db/models"
)

const animalColumns = `id, name, species, age, breed, size, color, vaccinated, neutered, dewormed,
	sex, description, available, sociable_with_cats, sociable_with_dogs, photo_path, ong_id,
	created_at, updated_at`

// AnimalRepository handles database operations for animals
type AnimalRepository struct {
	db *sqlx.DB
}

// NewAnimalRepository creates a new animal repository
func NewAnimalRepository(db *sqlx.DB) *AnimalRepository {
	return &AnimalRepository{db: db}
}

// Create inserts an animal. A dangling ong_id returns ErrOngNotFound.
func (r *AnimalRepository) Create(ctx context.Context, a *models.Animal) error {
	query := `
		INSERT INTO animals (name, species, age, breed, size, color, vaccinated, neutered, dewormed,
			sex, description, available, sociable_with_cats, sociable_with_dogs, photo_path, ong_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.Name, a.Species, a.Age, a.Breed, a.Size, a.Color, a.Vaccinated, a.Neutered, a.Dewormed,
		a.Sex, a.Description, a.Available, a.SociableWithCats, a.SociableWithDogs, a.PhotoPath, a.OngID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if isForeignKeyViolation(err) {
		return ErrOngNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create animal: %w", err)
	}
	return nil
}

// GetByID retrieves an animal by ID
func (r *AnimalRepository) GetByID(ctx context.Context, id int64) (*models.Animal, error) {
	var a models.Animal
	err := r.db.GetContext(ctx, &a, `SELECT `+animalColumns+` FROM animals WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get animal: %w", err)
	}
	return &a, nil
}

// List returns the animals matching filter, newest first
func (r *AnimalRepository) List(ctx context.Context, filter models.AnimalFilter) ([]*models.Animal, error) {
	query, args := buildAnimalListQuery(filter)
	animals := []*models.Animal{}
	if err := r.db.SelectContext(ctx, &animals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list animals: %w", err)
	}
	return animals, nil
}

func buildAnimalListQuery(f models.AnimalFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Name != "" {
		add(`name ILIKE $%d ESCAPE '\'`, containsPattern(f.Name))
	}
	if f.Species != "" {
		add(`species ILIKE $%d ESCAPE '\'`, containsPattern(f.Species))
	}
	if f.Size != "" {
		add(`size ILIKE $%d ESCAPE '\'`, containsPattern(f.Size))
	}
	if f.Available != nil {
		add("available = $%d", *f.Available)
	}
	if f.SociableWithCats != nil {
		add("sociable_with_cats = $%d", *f.SociableWithCats)
	}
	if f.SociableWithDogs != nil {
		add("sociable_with_dogs = $%d", *f.SociableWithDogs)
	}
	if f.OngID != nil {
		add("ong_id = $%d", *f.OngID)
	}

	query := `SELECT ` + animalColumns + ` FROM animals`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return query, args
}

// containsPattern turns user text into an ILIKE substring pattern, escaping
// the LIKE wildcards it may contain.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// Update saves every mutable field of a, including the owning ONG. owner is
// the ONG the caller authorized the write against; when the stored ong_id no
// longer matches it nothing is written and ErrAnimalOwnerChanged is returned.
func (r *AnimalRepository) Update(ctx context.Context, a *models.Animal, owner *int64) error {
	query := `
		UPDATE animals SET
			name = $2, species = $3, age = $4, breed = $5, size = $6, color = $7,
			vaccinated = $8, neutered = $9, dewormed = $10, sex = $11, description = $12,
			available = $13, sociable_with_cats = $14, sociable_with_dogs = $15, ong_id = $16,
			updated_at = NOW()
		WHERE id = $1 AND ong_id IS NOT DISTINCT FROM $17
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		a.ID, a.Name, a.Species, a.Age, a.Breed, a.Size, a.Color,
		a.Vaccinated, a.Neutered, a.Dewormed, a.Sex, a.Description,
		a.Available, a.SociableWithCats, a.SociableWithDogs, a.OngID, owner,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r.missingOrMoved(ctx, a.ID)
	}
	if isForeignKeyViolation(err) {
		return ErrOngNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update animal: %w", err)
	}
	return nil
}

// SetPhoto records the storage key of the animal's photo, guarded by owner
// like Update.
func (r *AnimalRepository) SetPhoto(ctx context.Context, id int64, path string, owner *int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE animals SET photo_path = $2, updated_at = NOW() WHERE id = $1 AND ong_id IS NOT DISTINCT FROM $3`,
		id, path, owner)
	if err != nil {
		return fmt.Errorf("failed to set animal photo: %w", err)
	}
	return r.checkGuarded(ctx, res, id, "set animal photo")
}

// Delete removes an animal, guarded by owner like Update.
func (r *AnimalRepository) Delete(ctx context.Context, id int64, owner *int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM animals WHERE id = $1 AND ong_id IS NOT DISTINCT FROM $2`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete animal: %w", err)
	}
	return r.checkGuarded(ctx, res, id, "delete animal")
}

func (r *AnimalRepository) checkGuarded(ctx context.Context, res sql.Result, id int64, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return r.missingOrMoved(ctx, id)
	}
	return nil
}

// missingOrMoved tells apart the two reasons a guarded write matched no row.
func (r *AnimalRepository) missingOrMoved(ctx context.Context, id int64) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM animals WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check animal: %w", err)
	}
	if exists {
		return ErrAnimalOwnerChanged
	}
	return ErrAnimalNotFound
}
