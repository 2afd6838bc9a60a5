// Package accounts implements the authentication and user endpoints under
// /api/v1/auth and /api/v1/users.
package accounts

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/rede-de-patas/patas-api/internal/api/httperr"
	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/middleware"
	"github.com/rede-de-patas/patas-api/internal/services"
)

// Handlers serves the account endpoints
type Handlers struct {
	accounts *services.AccountService
	ongs     *services.OngService
}

// NewHandlers creates the account handlers
func NewHandlers(accounts *services.AccountService, ongs *services.OngService) *Handlers {
	return &Handlers{accounts: accounts, ongs: ongs}
}

// loginRequest accepts JSON {email, password} and the OAuth2 password form
// (username, password).
type loginRequest struct {
	Email    string `json:"email" form:"username"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	services.Token
	User *models.User `json:"user"`
}

type registerRequest struct {
	Name       string  `json:"name" binding:"required"`
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required"`
	Phone      *string `json:"phone"`
	PostalCode *string `json:"postal_code"`
	Address    *string `json:"address"`
	IsAdmin    bool    `json:"is_admin"`
	models.HousingSurvey
}

type profileRequest struct {
	Name       *string `json:"name"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Password   *string `json:"password"`
	Phone      *string `json:"phone"`
	PostalCode *string `json:"postal_code"`
	Address    *string `json:"address"`
	models.HousingSurvey
}

// @Summary      Log in
// @Description  Exchanges credentials for a bearer token. Accepts JSON or an OAuth2 password form.
// @Tags         Authentication
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Success      200  {object}  loginResponse
// @Failure      401  {object}  map[string]interface{}  "Incorrect email or password"
// @Router       /api/v1/auth/login [post]
// Login authenticates a user
func (h *Handlers) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		var err error
		switch c.ContentType() {
		case binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
			err = c.ShouldBindWith(&req, binding.Form)
		default:
			err = c.ShouldBindJSON(&req)
		}
		if err != nil || req.Email == "" || req.Password == "" {
			httperr.BadRequest(c, "email and password are required")
			return
		}

		token, user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, loginResponse{Token: *token, User: user})
	}
}

// @Summary      Refresh token
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  services.Token
// @Router       /api/v1/auth/refresh [post]
// Refresh issues a new token for the caller
func (h *Handlers) Refresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := h.accounts.Refresh(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, token)
	}
}

// @Summary      Current user
// @Description  Returns the caller with the ONGs they belong to.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  models.UserWithMemberships
// @Router       /api/v1/auth/me [get]
// Me returns the authenticated user
func (h *Handlers) Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		me, err := h.accounts.Me(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, me)
	}
}

// @Summary      Register
// @Tags         Users
// @Accept       json
// @Produce      json
// @Success      201  {object}  models.User
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Router       /api/v1/users [post]
// Register creates an account
func (h *Handlers) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		user, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
			Name:          req.Name,
			Email:         req.Email,
			Password:      req.Password,
			Phone:         req.Phone,
			PostalCode:    req.PostalCode,
			Address:       req.Address,
			IsAdmin:       req.IsAdmin,
			HousingSurvey: req.HousingSurvey,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

// @Summary      List users
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   models.User
// @Failure      403  {object}  map[string]interface{}  "error, reason: not_admin"
// @Router       /api/v1/users [get]
// ListUsers returns every account
func (h *Handlers) ListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.accounts.ListUsers(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// @Summary      Update profile
// @Description  Partial update of the caller's own account. is_admin cannot be changed.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Success      200  {object}  models.User
// @Router       /api/v1/users/me [put]
// UpdateProfile updates the caller's account
func (h *Handlers) UpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		user, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c), services.ProfileInput{
			Name:          req.Name,
			Email:         req.Email,
			Password:      req.Password,
			Phone:         req.Phone,
			PostalCode:    req.PostalCode,
			Address:       req.Address,
			HousingSurvey: req.HousingSurvey,
		})
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// @Summary      My ONGs
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  models.UserMembership
// @Router       /api/v1/users/me/ongs [get]
// MyOngs lists the ONGs the caller belongs to
func (h *Handlers) MyOngs() gin.HandlerFunc {
	return func(c *gin.Context) {
		memberships, err := h.ongs.ListForUser(c.Request.Context(), middleware.CurrentUser(c))
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, memberships)
	}
}
