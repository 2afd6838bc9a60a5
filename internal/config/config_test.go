package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "patas",
				Password: "secret",
				Name:     "rede_de_patas",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=patas password=secret dbname=rede_de_patas sslmode=require",
		},
		{
			name: "empty password",
			cfg: DatabaseConfig{
				Host:    "db.example.com",
				Port:    5433,
				User:    "user",
				Name:    "dbname",
				SSLMode: "disable",
			},
			want: "host=db.example.com port=5433 user=user password= dbname=dbname sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetDSN()
			if got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress / StorageConfig.MaxPhotoBytes
// ---------------------------------------------------------------------------

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 8080}, "0.0.0.0:8080"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Host: "", Port: 8080}, ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetAddress()
			if got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaxPhotoBytes(t *testing.T) {
	s := StorageConfig{MaxPhotoSizeMB: 5}
	if got := s.MaxPhotoBytes(); got != 5*1024*1024 {
		t.Errorf("MaxPhotoBytes() = %d, want %d", got, 5*1024*1024)
	}
}

// ---------------------------------------------------------------------------
// Config.Validate
// ---------------------------------------------------------------------------

func minimalValidConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Name: "rede_de_patas",
			User: "patas",
		},
		Storage: StorageConfig{
			DefaultBackend: "local",
			MaxPhotoSizeMB: 5,
			Local:          LocalStorageConfig{BasePath: "./storage"},
		},
		Auth:    AuthConfig{TokenTTL: 15 * time.Minute, BcryptCost: 12},
		Policy:  PolicyConfig{AnimalOwnerStrategy: OwnerStrategyExplicit},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid minimal config passes", func(t *testing.T) {
		if err := minimalValidConfig().Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid server port 0", func(c *Config) { c.Server.Port = 0 }},
		{"invalid server port 70000", func(c *Config) { c.Server.Port = 70000 }},
		{"missing base_url", func(c *Config) { c.Server.BaseURL = "" }},
		{"missing database host", func(c *Config) { c.Database.Host = "" }},
		{"missing database name", func(c *Config) { c.Database.Name = "" }},
		{"missing database user", func(c *Config) { c.Database.User = "" }},
		{"unknown storage backend", func(c *Config) { c.Storage.DefaultBackend = "ftp" }},
		{"zero photo size", func(c *Config) { c.Storage.MaxPhotoSizeMB = 0 }},
		{"local without base path", func(c *Config) { c.Storage.Local.BasePath = "" }},
		{"s3 without bucket", func(c *Config) {
			c.Storage.DefaultBackend = "s3"
			c.Storage.S3.Region = "us-east-1"
		}},
		{"s3 without region", func(c *Config) {
			c.Storage.DefaultBackend = "s3"
			c.Storage.S3.Bucket = "photos"
		}},
		{"gcs without bucket", func(c *Config) { c.Storage.DefaultBackend = "gcs" }},
		{"azure without account", func(c *Config) {
			c.Storage.DefaultBackend = "azure"
			c.Storage.Azure.AccountKey = "key"
			c.Storage.Azure.ContainerName = "photos"
		}},
		{"negative token ttl", func(c *Config) { c.Auth.TokenTTL = -time.Second }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"bcrypt cost too high", func(c *Config) { c.Auth.BcryptCost = 40 }},
		{"unknown owner strategy", func(c *Config) { c.Policy.AnimalOwnerStrategy = "guess" }},
		{"empty owner strategy", func(c *Config) { c.Policy.AnimalOwnerStrategy = "" }},
		{"tls without cert", func(c *Config) {
			c.Security.TLS.Enabled = true
			c.Security.TLS.KeyFile = "key.pem"
		}},
		{"tls without key", func(c *Config) {
			c.Security.TLS.Enabled = true
			c.Security.TLS.CertFile = "cert.pem"
		}},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() expected error, got nil")
			}
		})
	}

	t.Run("all owner strategies accepted", func(t *testing.T) {
		for _, s := range []string{OwnerStrategyExplicit, OwnerStrategyFirstMembership, OwnerStrategyLegacyCreatorID} {
			cfg := minimalValidConfig()
			cfg.Policy.AnimalOwnerStrategy = s
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error for strategy %q: %v", s, err)
			}
		}
	})

	t.Run("complete s3 config passes", func(t *testing.T) {
		cfg := minimalValidConfig()
		cfg.Storage.DefaultBackend = "s3"
		cfg.Storage.S3.Bucket = "photos"
		cfg.Storage.S3.Region = "sa-east-1"
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		// An explicit path that does not exist is a read error, not a fallback.
		if !strings.Contains(err.Error(), "invalid configuration") &&
			!strings.Contains(err.Error(), "error reading config file") {
			t.Fatalf("Load() unexpected error kind: %v", err)
		}
		return
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default server port = %d, want 8080", cfg.Server.Port)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Run("expands ${VAR} syntax", func(t *testing.T) {
		t.Setenv("CONFIG_TEST_SECRET", "super-secret")
		if got := expandEnv("${CONFIG_TEST_SECRET}"); got != "super-secret" {
			t.Errorf("expandEnv() = %q, want %q", got, "super-secret")
		}
	})

	t.Run("plain string passthrough", func(t *testing.T) {
		if got := expandEnv("no-vars-here"); got != "no-vars-here" {
			t.Errorf("expandEnv() = %q, want %q", got, "no-vars-here")
		}
	})

	t.Run("unset variable expands to empty string", func(t *testing.T) {
		os.Unsetenv("CONFIG_TEST_DEFINITELY_UNSET_12345")
		if got := expandEnv("${CONFIG_TEST_DEFINITELY_UNSET_12345}"); got != "" {
			t.Errorf("expandEnv() = %q, want empty string", got)
		}
	})
}

// writeTempConfig creates a temp YAML file and registers a cleanup to remove it.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "config-test-*.yaml")
	if err != nil {
		t.Fatal("CreateTemp:", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		t.Fatal("WriteString:", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_WithConfigFile(t *testing.T) {
	const content = `
server:
  host: "testhost"
  port: 9999
  base_url: "http://testhost:9999"
database:
  host: "dbhost"
  name: "testdb"
  user: "testuser"
policy:
  invite_requires_admin: true
  animal_owner_strategy: "first_membership"
auth:
  token_ttl: "1h"
logging:
  level: "debug"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "testhost" {
		t.Errorf("Server.Host = %q, want testhost", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("Database.Name = %q, want testdb", cfg.Database.Name)
	}
	if !cfg.Policy.InviteRequiresAdmin {
		t.Error("Policy.InviteRequiresAdmin = false, want true")
	}
	if cfg.Policy.AnimalOwnerStrategy != OwnerStrategyFirstMembership {
		t.Errorf("Policy.AnimalOwnerStrategy = %q, want %q", cfg.Policy.AnimalOwnerStrategy, OwnerStrategyFirstMembership)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("Auth.TokenTTL = %v, want 1h", cfg.Auth.TokenTTL)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	const content = `
logging:
  level: "info"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.SSLMode != "require" {
		t.Errorf("default Database.SSLMode = %q, want require", cfg.Database.SSLMode)
	}
	if cfg.Auth.TokenTTL != 15*time.Minute {
		t.Errorf("default Auth.TokenTTL = %v, want 15m", cfg.Auth.TokenTTL)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Errorf("default Auth.BcryptCost = %d, want 12", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.AllowAdminSignup {
		t.Error("default Auth.AllowAdminSignup = true, want false")
	}
	if cfg.Policy.InviteRequiresAdmin {
		t.Error("default Policy.InviteRequiresAdmin = true, want false")
	}
	if cfg.Policy.AnimalOwnerStrategy != OwnerStrategyExplicit {
		t.Errorf("default Policy.AnimalOwnerStrategy = %q, want explicit", cfg.Policy.AnimalOwnerStrategy)
	}
	if cfg.Storage.MaxPhotoSizeMB != 5 {
		t.Errorf("default Storage.MaxPhotoSizeMB = %d, want 5", cfg.Storage.MaxPhotoSizeMB)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PATAS_POLICY_ANIMAL_OWNER_STRATEGY", "legacy_creator_id")
	t.Setenv("PATAS_SERVER_PORT", "9191")
	path := writeTempConfig(t, "logging:\n  level: info\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Policy.AnimalOwnerStrategy != OwnerStrategyLegacyCreatorID {
		t.Errorf("AnimalOwnerStrategy = %q, want legacy_creator_id", cfg.Policy.AnimalOwnerStrategy)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASS", "mysecret")
	const content = `
database:
  password: "${TEST_DB_PASS}"
logging:
  level: "info"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Password != "mysecret" {
		t.Errorf("Database.Password = %q, want mysecret", cfg.Database.Password)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidStrategyRejected(t *testing.T) {
	path := writeTempConfig(t, "policy:\n  animal_owner_strategy: sole\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "animal_owner_strategy") {
		t.Errorf("Load() error = %v, want animal_owner_strategy error", err)
	}
}
