// @title           Rede de Patas API
// @version         0.1.0
// @description     Adoption catalogue for animal-protection ONGs: accounts, ONG membership and animals.
// @contact.name    Rede de Patas
// @license.name    Apache-2.0
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                        Authorization
// @description                 "JWT access token: 'Bearer {token}'"
//
// @tag.name         System
// @tag.description  Health, readiness and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics are served on a side port (default 9090, PATAS_TELEMETRY_METRICS_PROMETHEUS_PORT) at GET /metrics. pprof, when PATAS_TELEMETRY_PROFILING_ENABLED=true, is served on PATAS_TELEMETRY_PROFILING_PORT (default 6060). Neither is served by the Gin router.

// Package main is the entry point for the adoption API server binary.
// It dispatches four subcommands (serve, migrate, promote, version) via a
// switch on os.Args so the binary's whole CLI surface is readable in one place.
// serve runs migrations on startup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- only served on the dedicated profiling port, never on the Gin listener
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rede-de-patas/patas-api/internal/api"
	"github.com/rede-de-patas/patas-api/internal/auth"
	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/db"
	"github.com/rede-de-patas/patas-api/internal/db/repositories"
	"github.com/rede-de-patas/patas-api/internal/safego"
	"github.com/rede-de-patas/patas-api/internal/services"
	"github.com/rede-de-patas/patas-api/internal/storage"
	"github.com/rede-de-patas/patas-api/internal/telemetry"

	// Import storage backends to register them
	_ "github.com/rede-de-patas/patas-api/internal/storage/azure"
	_ "github.com/rede-de-patas/patas-api/internal/storage/gcs"
	_ "github.com/rede-de-patas/patas-api/internal/storage/local"
	_ "github.com/rede-de-patas/patas-api/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if command == "version" {
		fmt.Printf("Rede de Patas API v%s\n", api.Version)
		return nil
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "promote":
		return promote(cfg, os.Args[2:])
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, promote, version", command)
	}
}

func serve(cfg *config.Config) error {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := auth.ValidateJWTSecret(); err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}

	slog.Info("connecting to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port,
		"user", cfg.Database.User, "dbname", cfg.Database.Name, "sslmode", cfg.Database.SSLMode)
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	telemetry.StartDBStatsCollector(database)

	slog.Info("running database migrations")
	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := db.GetMigrationVersion(database); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", version, "dirty", dirty)
	}

	photos, err := storage.NewStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	if p, ok := photos.(storage.Provisioner); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := p.EnsureReady(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("storage backend %s is not ready: %w", cfg.Storage.DefaultBackend, err)
		}
	}
	slog.Info("photo storage initialized", "backend", cfg.Storage.DefaultBackend)

	// Metrics live on their own port so the scrape path stays off the public ingress.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		safego.Go("metrics-server", func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		})
	}

	if cfg.Telemetry.Profiling.Enabled {
		pprofAddr := fmt.Sprintf(":%d", cfg.Telemetry.Profiling.Port)
		safego.Go("pprof-server", func() {
			slog.Info("starting pprof server", "addr", pprofAddr)
			srv := &http.Server{ //nolint:gosec // #nosec G112 -- internal-only pprof port
				Addr:         pprofAddr,
				Handler:      http.DefaultServeMux, // #nosec G108 -- pprof-only internal port
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("pprof server error", "error", err)
			}
		})
	}

	router := api.NewRouter(cfg, sqlx.NewDb(database, "postgres"), photos)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", cfg.Server.GetAddress(),
			"base_url", cfg.Server.BaseURL,
			"tls", cfg.Security.TLS.Enabled)

		var err error
		if cfg.Security.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("migration completed", "version", version, "dirty", dirty)
	return nil
}

// promote grants or revokes the admin flag. It is the only way to create the
// first admin when auth.allow_admin_signup is off.
func promote(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("promote", flag.ContinueOnError)
	revoke := fs.Bool("revoke", false, "clear the admin flag instead of setting it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s promote [--revoke] <email>", os.Args[0])
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 2, 1)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	sqlxDB := sqlx.NewDb(database, "postgres")
	accounts := services.NewAccountService(
		repositories.NewUserRepository(sqlxDB),
		repositories.NewOrganizationRepository(sqlxDB),
		cfg.Auth,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	user, err := accounts.PromoteAdmin(ctx, fs.Arg(0), !*revoke)
	if err != nil {
		return err
	}
	fmt.Printf("User %d (%s) is_admin=%v\n", user.ID, user.Email, user.IsAdmin)
	return nil
}
