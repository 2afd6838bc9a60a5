package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/db/repositories"
	"github.com/rede-de-patas/patas-api/internal/policy"
	"github.com/rede-de-patas/patas-api/internal/storage"
	"github.com/rede-de-patas/patas-api/internal/telemetry"
	"github.com/rede-de-patas/patas-api/internal/validation"
)

// AnimalInput is the payload of a new animal
type AnimalInput struct {
	Name    string
	Species string
	// OngID names the owning ONG. Required under the explicit owner strategy,
	// rejected under the others.
	OngID            *int64
	Age              *int
	Breed            *string
	Size             *string
	Color            *string
	Vaccinated       *bool
	Neutered         *bool
	Dewormed         *bool
	Sex              *string
	Description      *string
	Available        *bool
	SociableWithCats *bool
	SociableWithDogs *bool
}

// AnimalPatch is a partial animal update. Nil fields are left unchanged; a
// non-nil OngID moves the animal to that ONG.
type AnimalPatch struct {
	Name             *string
	Species          *string
	OngID            *int64
	Age              *int
	Breed            *string
	Size             *string
	Color            *string
	Vaccinated       *bool
	Neutered         *bool
	Dewormed         *bool
	Sex              *string
	Description      *string
	Available        *bool
	SociableWithCats *bool
	SociableWithDogs *bool
}

// PhotoOptions configures photo handling
type PhotoOptions struct {
	// Backend names the storage backend, for metrics
	Backend  string
	MaxBytes int64
	URLTTL   time.Duration
}

// AnimalService manages the adoption catalogue
type AnimalService struct {
	animals AnimalStore
	ongs    OngStore
	guard   guard
	photos  storage.Storage
	opts    PhotoOptions
}

// NewAnimalService creates a new animal service. photos may be nil, in which
// case photo operations fail with Unavailable.
func NewAnimalService(animals AnimalStore, ongs OngStore, pol *policy.Policy, photos storage.Storage, opts PhotoOptions) *AnimalService {
	return &AnimalService{
		animals: animals,
		ongs:    ongs,
		guard:   guard{policy: pol, ongs: ongs},
		photos:  photos,
		opts:    opts,
	}
}

// Create adds an animal owned by the ONG the configured strategy resolves.
func (s *AnimalService) Create(ctx context.Context, actor *models.User, in AnimalInput) (*models.Animal, error) {
	a, err := s.guard.begin(ctx, actor, policy.ActionAnimalCreate)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	species := strings.TrimSpace(in.Species)
	if name == "" || species == "" {
		return nil, invalid("name and species are required")
	}

	switch s.guard.policy.OwnerStrategy() {
	case config.OwnerStrategyExplicit:
		if in.OngID == nil {
			return nil, invalid("ong_id is required")
		}
		if _, err := s.loadOng(ctx, *in.OngID); err != nil {
			return nil, err
		}
	case config.OwnerStrategyFirstMembership:
		if in.OngID != nil {
			return nil, invalid("ong_id must not be set; animals are assigned to your first ONG")
		}
	case config.OwnerStrategyLegacyCreatorID:
		if in.OngID != nil {
			return nil, invalid("ong_id must not be set under the legacy owner strategy")
		}
		slog.Warn("creating animal with deprecated legacy_creator_id owner strategy", "user_id", a.UserID)
	}

	d, err := s.guard.decide(a, policy.ActionAnimalCreate, policy.Resource{RequestedOwner: in.OngID})
	if err != nil {
		return nil, err
	}

	available := true
	if in.Available != nil {
		available = *in.Available
	}
	owner := d.OwnerID
	animal := &models.Animal{
		Name:             name,
		Species:          species,
		Age:              in.Age,
		Breed:            in.Breed,
		Size:             in.Size,
		Color:            in.Color,
		Vaccinated:       in.Vaccinated,
		Neutered:         in.Neutered,
		Dewormed:         in.Dewormed,
		Sex:              in.Sex,
		Description:      in.Description,
		Available:        available,
		SociableWithCats: in.SociableWithCats,
		SociableWithDogs: in.SociableWithDogs,
		OngID:            &owner,
	}
	if err := s.animals.Create(ctx, animal); err != nil {
		if errors.Is(err, repositories.ErrOngNotFound) {
			if s.guard.policy.OwnerStrategy() == config.OwnerStrategyLegacyCreatorID {
				return nil, invalid(fmt.Sprintf("no ONG with id %d matches the creator", owner))
			}
			return nil, notFound("ong", owner)
		}
		return nil, unavailable("create_animal", err)
	}
	return animal, nil
}

// Get returns one animal
func (s *AnimalService) Get(ctx context.Context, id int64) (*models.Animal, error) {
	return s.load(ctx, id)
}

// List returns the animals matching filter
func (s *AnimalService) List(ctx context.Context, filter models.AnimalFilter) ([]*models.Animal, error) {
	animals, err := s.animals.List(ctx, filter)
	if err != nil {
		return nil, unavailable("list_animals", err)
	}
	return animals, nil
}

// Update applies a partial update. The actor must belong to the animal's
// current ONG, and to the destination ONG when the patch moves it.
// The write only lands while the animal is still in the ONG that was checked.
func (s *AnimalService) Update(ctx context.Context, actor *models.User, id int64, patch AnimalPatch) (*models.Animal, error) {
	a, err := s.guard.begin(ctx, actor, policy.ActionAnimalUpdate)
	if err != nil {
		return nil, err
	}
	animal, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.OngID != nil {
		if _, err := s.loadOng(ctx, *patch.OngID); err != nil {
			return nil, err
		}
	}
	authorizedOwner := animal.OngID
	res := policy.Resource{CurrentOwner: authorizedOwner, RequestedOwner: patch.OngID}
	if err := s.guard.check(a, policy.ActionAnimalUpdate, res); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, invalid("name must not be empty")
		}
		animal.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Species != nil {
		if strings.TrimSpace(*patch.Species) == "" {
			return nil, invalid("species must not be empty")
		}
		animal.Species = strings.TrimSpace(*patch.Species)
	}
	setIfPresent(&animal.OngID, patch.OngID)
	setIfPresent(&animal.Age, patch.Age)
	setIfPresent(&animal.Breed, patch.Breed)
	setIfPresent(&animal.Size, patch.Size)
	setIfPresent(&animal.Color, patch.Color)
	setIfPresent(&animal.Sex, patch.Sex)
	setIfPresent(&animal.Description, patch.Description)
	setIfPresent(&animal.SociableWithCats, patch.SociableWithCats)
	setIfPresent(&animal.SociableWithDogs, patch.SociableWithDogs)
	setIfPresent(&animal.Vaccinated, patch.Vaccinated)
	setIfPresent(&animal.Neutered, patch.Neutered)
	setIfPresent(&animal.Dewormed, patch.Dewormed)
	setValueIfPresent(&animal.Available, patch.Available)

	if err := s.animals.Update(ctx, animal, authorizedOwner); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAnimalNotFound):
			return nil, notFound("animal", id)
		case errors.Is(err, repositories.ErrAnimalOwnerChanged):
			return nil, ownerChanged(err)
		case errors.Is(err, repositories.ErrOngNotFound):
			return nil, notFound("ong", *patch.OngID)
		}
		return nil, unavailable("update_animal", err)
	}
	return animal, nil
}

// Delete removes an animal and, best effort, its photo
func (s *AnimalService) Delete(ctx context.Context, actor *models.User, id int64) error {
	a, err := s.guard.begin(ctx, actor, policy.ActionAnimalDelete)
	if err != nil {
		return err
	}
	animal, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.check(a, policy.ActionAnimalDelete, policy.Resource{CurrentOwner: animal.OngID}); err != nil {
		return err
	}

	if err := s.animals.Delete(ctx, id, animal.OngID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAnimalNotFound):
			return notFound("animal", id)
		case errors.Is(err, repositories.ErrAnimalOwnerChanged):
			return ownerChanged(err)
		}
		return unavailable("delete_animal", err)
	}
	if animal.PhotoPath != nil {
		s.removePhoto(ctx, *animal.PhotoPath)
	}
	return nil
}

// UploadPhoto replaces the animal's photo. It is authorized as an update of
// the animal.
func (s *AnimalService) UploadPhoto(ctx context.Context, actor *models.User, id int64, reader io.Reader) (*models.Animal, error) {
	a, err := s.guard.begin(ctx, actor, policy.ActionAnimalUpdate)
	if err != nil {
		return nil, err
	}
	animal, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.check(a, policy.ActionAnimalUpdate, policy.Resource{CurrentOwner: animal.OngID}); err != nil {
		return nil, err
	}
	if s.photos == nil {
		return nil, &Error{Kind: KindUnavailable, Msg: "photo storage is not configured"}
	}

	photo, err := validation.ReadPhoto(reader, s.opts.MaxBytes)
	if err != nil {
		if errors.Is(err, validation.ErrPhotoEmpty) || errors.Is(err, validation.ErrPhotoTooLarge) ||
			errors.Is(err, validation.ErrUnsupportedPhotoType) {
			telemetry.PhotoUploadsTotal.WithLabelValues(s.opts.Backend, "rejected").Inc()
			return nil, invalid(err.Error())
		}
		return nil, invalid(fmt.Sprintf("could not read photo: %v", err))
	}

	key := fmt.Sprintf("animals/%d/%s%s", id, uuid.NewString(), photo.Ext)
	result, err := s.photos.Upload(ctx, key, photo.Reader(), photo.ContentType)
	if err != nil {
		telemetry.PhotoUploadsTotal.WithLabelValues(s.opts.Backend, "error").Inc()
		return nil, unavailable("upload_photo", err)
	}

	if err := s.animals.SetPhoto(ctx, id, result.Path, animal.OngID); err != nil {
		s.removePhoto(ctx, result.Path)
		switch {
		case errors.Is(err, repositories.ErrAnimalNotFound):
			return nil, notFound("animal", id)
		case errors.Is(err, repositories.ErrAnimalOwnerChanged):
			return nil, ownerChanged(err)
		}
		return nil, unavailable("set_photo", err)
	}
	telemetry.PhotoUploadsTotal.WithLabelValues(s.opts.Backend, "success").Inc()
	slog.Info("animal photo uploaded", "animal_id", id, "path", result.Path, "size", result.Size, "sha256", result.Checksum)

	if animal.PhotoPath != nil && *animal.PhotoPath != result.Path {
		s.removePhoto(ctx, *animal.PhotoPath)
	}
	animal.PhotoPath = &result.Path
	return animal, nil
}

// PhotoURL returns a URL the client can fetch the animal's photo from
func (s *AnimalService) PhotoURL(ctx context.Context, id int64) (string, error) {
	animal, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if animal.PhotoPath == nil {
		return "", &Error{Kind: KindNotFound, Resource: "photo", ID: id, Msg: "animal has no photo"}
	}
	if s.photos == nil {
		return "", &Error{Kind: KindUnavailable, Msg: "photo storage is not configured"}
	}

	url, err := s.photos.GetURL(ctx, *animal.PhotoPath, s.opts.URLTTL)
	if errors.Is(err, storage.ErrNotFound) {
		return "", &Error{Kind: KindNotFound, Resource: "photo", ID: id, Msg: "animal photo is missing from storage"}
	}
	if err != nil {
		return "", unavailable("photo_url", err)
	}
	return url, nil
}

func (s *AnimalService) load(ctx context.Context, id int64) (*models.Animal, error) {
	animal, err := s.animals.GetByID(ctx, id)
	if err != nil {
		return nil, unavailable("get_animal", err)
	}
	if animal == nil {
		return nil, notFound("animal", id)
	}
	return animal, nil
}

func (s *AnimalService) loadOng(ctx context.Context, id int64) (*models.Organization, error) {
	org, err := s.ongs.GetByID(ctx, id)
	if err != nil {
		return nil, unavailable("get_ong", err)
	}
	if org == nil {
		return nil, notFound("ong", id)
	}
	return org, nil
}

func (s *AnimalService) removePhoto(ctx context.Context, path string) {
	if s.photos == nil {
		return
	}
	if err := s.photos.Delete(ctx, path); err != nil {
		slog.Warn("failed to delete animal photo", "path", path, "error", err)
	}
}

// ownerChanged reports a write whose animal moved to another ONG after the
// actor was authorized. Reloading and retrying re-runs the membership check.
func ownerChanged(err error) *Error {
	return conflict("animal was moved to another ONG; reload it and retry", err)
}

func setValueIfPresent[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
