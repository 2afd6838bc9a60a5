// Package api wires together all HTTP routes for the adoption API.
//
// Route grouping:
//   - Reads of ONGs, members and animals are public so the adoption catalogue
//     can be browsed without an account.
//   - Every write goes through the authenticated group. Handlers pass the
//     authenticated user to the services, which ask the policy whether the
//     action is allowed.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/rede-de-patas/patas-api/internal/api/accounts"
	"github.com/rede-de-patas/patas-api/internal/api/animals"
	"github.com/rede-de-patas/patas-api/internal/api/ongs"
	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/db/repositories"
	"github.com/rede-de-patas/patas-api/internal/middleware"
	"github.com/rede-de-patas/patas-api/internal/policy"
	"github.com/rede-de-patas/patas-api/internal/services"
	"github.com/rede-de-patas/patas-api/internal/storage"
	"github.com/rede-de-patas/patas-api/internal/storage/local"
)

// Version is the server version reported by /version. Overridden at build time
// with -ldflags "-X github.com/rede-de-patas/patas-api/internal/api.Version=..."
var Version = "0.1.0"

// readinessProbePath is a key that is never written; Exists on it exercises
// the backend's credentials and connectivity without creating state.
const readinessProbePath = ".readiness-probe"

// NewRouter builds the gin engine. photos may be nil, in which case photo
// endpoints answer 503 and readiness skips the storage check.
func NewRouter(cfg *config.Config, database *sqlx.DB, photos storage.Storage) *gin.Engine {
	router := gin.New()

	// Repositories
	userRepo := repositories.NewUserRepository(database)
	orgRepo := repositories.NewOrganizationRepository(database)
	animalRepo := repositories.NewAnimalRepository(database)

	// Services
	pol := policy.New(cfg.Policy)
	accountService := services.NewAccountService(userRepo, orgRepo, cfg.Auth)
	ongService := services.NewOngService(orgRepo, userRepo, pol)
	animalService := services.NewAnimalService(animalRepo, orgRepo, pol, photos, services.PhotoOptions{
		Backend:  cfg.Storage.DefaultBackend,
		MaxBytes: cfg.Storage.MaxPhotoBytes(),
		URLTTL:   cfg.Storage.PhotoURLTTL,
	})
	slog.Info("authorization policy loaded",
		"animal_owner_strategy", pol.OwnerStrategy(),
		"invite_requires_admin", cfg.Policy.InviteRequiresAdmin)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	router.GET("/health", healthCheckHandler(database))
	router.GET("/ready", readinessHandler(database, photos))
	router.GET("/version", versionHandler())

	// Photos on the local backend are served by the API itself
	if ls, ok := photos.(*local.LocalStorage); ok && ls.ServeDirectly() {
		router.Static(local.FilesRoute, ls.BasePath())
	}

	accountHandlers := accounts.NewHandlers(accountService, ongService)
	ongHandlers := ongs.NewHandlers(ongService)
	animalHandlers := animals.NewHandlers(animalService)

	v1 := router.Group("/api/v1")
	{
		// Public routes
		v1.POST("/auth/login", accountHandlers.Login())
		v1.POST("/users", accountHandlers.Register())

		v1.GET("/ongs", ongHandlers.List())
		v1.GET("/ongs/:id", ongHandlers.Get())
		v1.GET("/ongs/:id/members", ongHandlers.ListMembers())

		v1.GET("/animals", animalHandlers.List())
		v1.GET("/animals/:id", animalHandlers.Get())
		v1.GET("/animals/:id/photo", animalHandlers.Photo())

		// Authenticated routes
		authed := v1.Group("")
		authed.Use(middleware.AuthMiddleware(accountService))
		{
			authed.POST("/auth/refresh", accountHandlers.Refresh())
			authed.GET("/auth/me", accountHandlers.Me())

			authed.GET("/users", accountHandlers.ListUsers())
			authed.PUT("/users/me", accountHandlers.UpdateProfile())
			authed.GET("/users/me/ongs", accountHandlers.MyOngs())

			authed.POST("/ongs", ongHandlers.Create())
			authed.PUT("/ongs/:id", ongHandlers.Update())
			authed.DELETE("/ongs/:id", ongHandlers.Delete())
			authed.POST("/ongs/:id/members", ongHandlers.Invite())
			authed.DELETE("/ongs/:id/members/:user_id", ongHandlers.RemoveMember())

			authed.POST("/animals", animalHandlers.Create())
			authed.PUT("/animals/:id", animalHandlers.Update())
			authed.DELETE("/animals/:id", animalHandlers.Delete())
			authed.PUT("/animals/:id/photo", animalHandlers.UploadPhoto())
		}
	}

	return router
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(database *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks the database and the photo storage backend.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks, error"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike /health it also probes the photo storage backend.
func readinessHandler(database *sqlx.DB, photos storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := database.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if photos == nil {
			checks["storage"] = "disabled"
		} else if _, err := photos.Exists(c.Request.Context(), readinessProbePath); err != nil {
			slog.Warn("storage readiness probe failed", "error", err)
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		} else {
			checks["storage"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the server version and the API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}
