// Package animals implements the /api/v1/animals endpoints, including photo
// upload and retrieval.
package animals

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rede-de-patas/patas-api/internal/api/httperr"
	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/middleware"
	"github.com/rede-de-patas/patas-api/internal/services"
)

// PhotoField is the multipart field carrying an uploaded photo
const PhotoField = "photo"

// Handlers serves the animal endpoints
type Handlers struct {
	animals *services.AnimalService
}

// NewHandlers creates the animal handlers
func NewHandlers(animals *services.AnimalService) *Handlers {
	return &Handlers{animals: animals}
}

type animalRequest struct {
	Name             string  `json:"name" binding:"required"`
	Species          string  `json:"species" binding:"required"`
	OngID            *int64  `json:"ong_id"`
	Age              *int    `json:"age" binding:"omitempty,min=0"`
	Breed            *string `json:"breed"`
	Size             *string `json:"size"`
	Color            *string `json:"color"`
	Vaccinated       *bool   `json:"vaccinated"`
	Neutered         *bool   `json:"neutered"`
	Dewormed         *bool   `json:"dewormed"`
	Sex              *string `json:"sex"`
	Description      *string `json:"description"`
	Available        *bool   `json:"available"`
	SociableWithCats *bool   `json:"sociable_with_cats"`
	SociableWithDogs *bool   `json:"sociable_with_dogs"`
}

type animalPatchRequest struct {
	Name             *string `json:"name"`
	Species          *string `json:"species"`
	OngID            *int64  `json:"ong_id"`
	Age              *int    `json:"age" binding:"omitempty,min=0"`
	Breed            *string `json:"breed"`
	Size             *string `json:"size"`
	Color            *string `json:"color"`
	Vaccinated       *bool   `json:"vaccinated"`
	Neutered         *bool   `json:"neutered"`
	Dewormed         *bool   `json:"dewormed"`
	Sex              *string `json:"sex"`
	Description      *string `json:"description"`
	Available        *bool   `json:"available"`
	SociableWithCats *bool   `json:"sociable_with_cats"`
	SociableWithDogs *bool   `json:"sociable_with_dogs"`
}

type listQuery struct {
	Name             string `form:"name"`
	Species          string `form:"species"`
	Size             string `form:"size"`
	Available        *bool  `form:"available"`
	SociableWithCats *bool  `form:"sociable_with_cats"`
	SociableWithDogs *bool  `form:"sociable_with_dogs"`
	OngID            *int64 `form:"ong_id"`
}

// @Summary      List animals
// @Description  Text filters match case-insensitive substrings.
// @Tags         Animals
// @Produce      json
// @Param        name                query  string  false  "Name contains"
// @Param        species             query  string  false  "Species contains"
// @Param        size                query  string  false  "Size contains"
// @Param        available           query  bool    false  "Availability"
// @Param        sociable_with_cats  query  bool    false  "Gets along with cats"
// @Param        sociable_with_dogs  query  bool    false  "Gets along with dogs"
// @Param        ong_id              query  int     false  "Owning ONG"
// @Success      200  {array}  models.Animal
// @Router       /api/v1/animals [get]
// List searches the catalogue
func (h *Handlers) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		var q listQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			httperr.BadRequest(c, "invalid query: "+err.Error())
			return
		}
		animals, err := h.animals.List(c.Request.Context(), models.AnimalFilter{
			Name:             q.Name,
			Species:          q.Species,
			Size:             q.Size,
			Available:        q.Available,
			SociableWithCats: q.SociableWithCats,
			SociableWithDogs: q.SociableWithDogs,
			OngID:            q.OngID,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, animals)
	}
}

// @Summary      Get animal
// @Tags         Animals
// @Produce      json
// @Param        id  path  int  true  "Animal ID"
// @Success      200  {object}  models.Animal
// @Router       /api/v1/animals/{id} [get]
// Get returns one animal
func (h *Handlers) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		animal, err := h.animals.Get(c.Request.Context(), id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, animal)
	}
}

// @Summary      Create animal
// @Tags         Animals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.Animal
// @Failure      403  {object}  map[string]interface{}  "error, reason: not_admin | not_member | no_membership_assigned"
// @Router       /api/v1/animals [post]
// Create adds an animal
func (h *Handlers) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req animalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		animal, err := h.animals.Create(c.Request.Context(), middleware.CurrentUser(c), services.AnimalInput{
			Name:             req.Name,
			Species:          req.Species,
			OngID:            req.OngID,
			Age:              req.Age,
			Breed:            req.Breed,
			Size:             req.Size,
			Color:            req.Color,
			Vaccinated:       req.Vaccinated,
			Neutered:         req.Neutered,
			Dewormed:         req.Dewormed,
			Sex:              req.Sex,
			Description:      req.Description,
			Available:        req.Available,
			SociableWithCats: req.SociableWithCats,
			SociableWithDogs: req.SociableWithDogs,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, animal)
	}
}

// @Summary      Update animal
// @Description  Partial update. Setting ong_id moves the animal; the caller must belong to both ONGs.
// @Tags         Animals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  int  true  "Animal ID"
// @Success      200  {object}  models.Animal
// @Router       /api/v1/animals/{id} [put]
// Update modifies an animal
func (h *Handlers) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		var req animalPatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		animal, err := h.animals.Update(c.Request.Context(), middleware.CurrentUser(c), id, services.AnimalPatch{
			Name:             req.Name,
			Species:          req.Species,
			OngID:            req.OngID,
			Age:              req.Age,
			Breed:            req.Breed,
			Size:             req.Size,
			Color:            req.Color,
			Vaccinated:       req.Vaccinated,
			Neutered:         req.Neutered,
			Dewormed:         req.Dewormed,
			Sex:              req.Sex,
			Description:      req.Description,
			Available:        req.Available,
			SociableWithCats: req.SociableWithCats,
			SociableWithDogs: req.SociableWithDogs,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, animal)
	}
}

// @Summary      Delete animal
// @Tags         Animals
// @Security     Bearer
// @Param        id  path  int  true  "Animal ID"
// @Success      204
// @Router       /api/v1/animals/{id} [delete]
// Delete removes an animal
func (h *Handlers) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		if err := h.animals.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary      Upload animal photo
// @Description  Replaces the animal's photo. JPEG, PNG, GIF and WebP are accepted.
// @Tags         Animals
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id     path      int   true  "Animal ID"
// @Param        photo  formData  file  true  "Photo"
// @Success      200  {object}  models.Animal
// @Router       /api/v1/animals/{id}/photo [put]
// UploadPhoto stores a new photo for an animal
func (h *Handlers) UploadPhoto() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		header, err := c.FormFile(PhotoField)
		if err != nil {
			httperr.BadRequest(c, "multipart field \""+PhotoField+"\" is required")
			return
		}
		file, err := header.Open()
		if err != nil {
			httperr.BadRequest(c, "could not read uploaded photo")
			return
		}
		defer file.Close()

		animal, err := h.animals.UploadPhoto(c.Request.Context(), middleware.CurrentUser(c), id, file)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, animal)
	}
}

// @Summary      Animal photo
// @Description  Redirects to a URL serving the photo.
// @Tags         Animals
// @Param        id  path  int  true  "Animal ID"
// @Success      302
// @Failure      404  {object}  map[string]interface{}  "Animal or photo not found"
// @Router       /api/v1/animals/{id}/photo [get]
// Photo redirects to the animal's photo
func (h *Handlers) Photo() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		url, err := h.animals.PhotoURL(c.Request.Context(), id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.Redirect(http.StatusFound, url)
	}
}
