package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/rede-de-patas/patas-api/internal/api/httperr"
	"github.com/rede-de-patas/patas-api/internal/auth"
	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/services"
)

// UserKey is the gin.Context key holding the authenticated *models.User.
const UserKey = "user"

// Authenticator resolves a bearer token to a user. services.AccountService
// implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware requires a valid bearer token and stores the user under
// UserKey. Missing or bad tokens are rejected with 401.
func AuthMiddleware(authn Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			httperr.Respond(c, &services.Error{Kind: services.KindUnauthenticated, Msg: err.Error()})
			return
		}

		user, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			httperr.Respond(c, err)
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user set by the auth middleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
