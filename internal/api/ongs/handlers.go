// Package ongs implements the /api/v1/ongs endpoints: ONG CRUD and membership
// management.
package ongs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rede-de-patas/patas-api/internal/api/httperr"
	"github.com/rede-de-patas/patas-api/internal/middleware"
	"github.com/rede-de-patas/patas-api/internal/services"
)

// Handlers serves the ONG endpoints
type Handlers struct {
	ongs *services.OngService
}

// NewHandlers creates the ONG handlers
func NewHandlers(ongs *services.OngService) *Handlers {
	return &Handlers{ongs: ongs}
}

type ongRequest struct {
	Name        string  `json:"name" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	SocialMedia *string `json:"social_media"`
	Website     *string `json:"website"`
}

type ongPatchRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	SocialMedia *string `json:"social_media"`
	Website     *string `json:"website"`
}

type inviteRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// @Summary      List ONGs
// @Tags         ONGs
// @Produce      json
// @Success      200  {array}   models.Organization
// @Router       /api/v1/ongs [get]
// List returns every ONG
func (h *Handlers) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgs, err := h.ongs.List(c.Request.Context())
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, orgs)
	}
}

// @Summary      Get ONG
// @Tags         ONGs
// @Produce      json
// @Param        id  path  int  true  "ONG ID"
// @Success      200  {object}  models.Organization
// @Failure      404  {object}  map[string]interface{}  "ONG not found"
// @Router       /api/v1/ongs/{id} [get]
// Get returns one ONG
func (h *Handlers) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		org, err := h.ongs.Get(c.Request.Context(), id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

// @Summary      Create ONG
// @Description  Creates an ONG with the caller as its first member. Admins only.
// @Tags         ONGs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.Organization
// @Failure      403  {object}  map[string]interface{}  "error, reason: not_admin"
// @Router       /api/v1/ongs [post]
// Create registers an ONG
func (h *Handlers) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ongRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		org, err := h.ongs.Create(c.Request.Context(), middleware.CurrentUser(c), services.OngInput{
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			Address:     req.Address,
			SocialMedia: req.SocialMedia,
			Website:     req.Website,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, org)
	}
}

// @Summary      Update ONG
// @Description  Partial update. The caller must be a member of the ONG.
// @Tags         ONGs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  int  true  "ONG ID"
// @Success      200  {object}  models.Organization
// @Failure      403  {object}  map[string]interface{}  "error, reason: not_admin | not_member"
// @Router       /api/v1/ongs/{id} [put]
// Update applies a partial update to an ONG
func (h *Handlers) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		var req ongPatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		org, err := h.ongs.Update(c.Request.Context(), middleware.CurrentUser(c), id, services.OngPatch{
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			Address:     req.Address,
			SocialMedia: req.SocialMedia,
			Website:     req.Website,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, org)
	}
}

// @Summary      Delete ONG
// @Description  Deletes the ONG and its memberships. Its animals become unowned.
// @Tags         ONGs
// @Security     Bearer
// @Param        id  path  int  true  "ONG ID"
// @Success      204
// @Router       /api/v1/ongs/{id} [delete]
// Delete removes an ONG
func (h *Handlers) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		if err := h.ongs.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary      List ONG members
// @Tags         ONGs
// @Produce      json
// @Param        id  path  int  true  "ONG ID"
// @Success      200  {array}  models.OrganizationMemberWithUser
// @Router       /api/v1/ongs/{id}/members [get]
// ListMembers returns the members of an ONG
func (h *Handlers) ListMembers() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		members, err := h.ongs.ListMembers(c.Request.Context(), id)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, members)
	}
}

// @Summary      Invite member
// @Description  Adds a user to the ONG. Answers 409 when the user already belongs to it.
// @Tags         ONGs
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id  path  int  true  "ONG ID"
// @Success      201  {array}   models.OrganizationMemberWithUser
// @Failure      404  {object}  map[string]interface{}  "error, reason: not_found"
// @Failure      409  {object}  map[string]interface{}  "error, reason: already_member"
// @Router       /api/v1/ongs/{id}/members [post]
// Invite adds a member and returns the updated member list
func (h *Handlers) Invite() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		var req inviteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		members, err := h.ongs.Invite(c.Request.Context(), middleware.CurrentUser(c), id, req.UserID)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, members)
	}
}

// @Summary      Remove member
// @Tags         ONGs
// @Security     Bearer
// @Param        id       path  int  true  "ONG ID"
// @Param        user_id  path  int  true  "User ID"
// @Success      204
// @Router       /api/v1/ongs/{id}/members/{user_id} [delete]
// RemoveMember deletes a membership
func (h *Handlers) RemoveMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httperr.PathID(c, "id")
		if !ok {
			return
		}
		userID, ok := httperr.PathID(c, "user_id")
		if !ok {
			return
		}
		if err := h.ongs.RemoveMember(c.Request.Context(), middleware.CurrentUser(c), id, userID); err != nil {
			httperr.Respond(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
