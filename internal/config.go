package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/othala/internal/storage"
	"github.com/starford/othala/internal/workspace"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Storage   StorageConfig     `yaml:"storage"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects and parameterises the content backend.
//
// Backend controls which backend holds file content:
//   - "auto" (default): probe the directory backend, fall back to SQLite.
//   - "dir": directory backend only.
//   - "kv": SQLite key-value backend only.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	Root       string `yaml:"root"`
	SQLitePath string `yaml:"sqlite_path"`
	QuotaBytes int64  `yaml:"quota_bytes"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = storage.PreferAuto
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required,
			validation.In(storage.PreferAuto, storage.PreferDir, storage.PreferKV)),
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.SQLitePath, validation.Required),
		validation.Field(&c.QuotaBytes, validation.Min(0)),
	)
}

// Options converts the config into storage open options.
func (c *StorageConfig) Options() storage.Options {
	return storage.Options{
		Prefer:     c.Backend,
		Root:       c.Root,
		SQLitePath: c.SQLitePath,
		Quota:      c.QuotaBytes,
	}
}

// WorkspaceConfig holds workspace registry defaults.
type WorkspaceConfig struct {
	Default      string `yaml:"default"`
	RecentsLimit int    `yaml:"recents_limit"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	if c.Default == "" {
		c.Default = workspace.DefaultWorkspace
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.RecentsLimit, validation.Min(0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Backend:    storage.PreferAuto,
			Root:       "./data",
			SQLitePath: "./othala.db",
		},
		Workspace: WorkspaceConfig{
			Default:      workspace.DefaultWorkspace,
			RecentsLimit: 20,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
