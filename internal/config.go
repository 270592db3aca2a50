package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/learnvex/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage drivers.
const (
	StorageDriverFS = "fs"
	StorageDriverS3 = "s3"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Storage   StorageConfig     `yaml:"storage"`
	Seed      SeedConfig        `yaml:"seed"`
	RateLimit RateLimitConfig   `yaml:"rate_limit"`
	Events    EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.RateLimit.Validate()
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
	// PublicURL is the externally visible base URL, used to build upload
	// links for the fs storage driver.
	PublicURL string `yaml:"public_url"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// BaseURL returns PublicURL, or a localhost URL on Port when it is unset.
func (c *HTTPConfig) BaseURL() string {
	if c.PublicURL != "" {
		return c.PublicURL
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
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

// StorageConfig selects and configures the object store for course media.
type StorageConfig struct {
	Driver string         `yaml:"driver"`
	FS     FSConfig       `yaml:"fs"`
	S3     S3BucketConfig `yaml:"s3"`
}

// FSConfig configures the local object store.
type FSConfig struct {
	Path   string `yaml:"path"`
	Secret string `yaml:"secret"`
}

// S3BucketConfig configures an S3-compatible bucket.
type S3BucketConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// Options converts the bucket configuration for the S3 driver.
func (c S3BucketConfig) Options() storage.S3Config {
	return storage.S3Config{
		Endpoint:  c.Endpoint,
		Region:    c.Region,
		Bucket:    c.Bucket,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		PathStyle: c.PathStyle,
	}
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = StorageDriverFS
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(StorageDriverFS, StorageDriverS3)),
	); err != nil {
		return err
	}
	switch c.Driver {
	case StorageDriverS3:
		return validation.ValidateStruct(&c.S3,
			validation.Field(&c.S3.Bucket, validation.Required),
		)
	default:
		return validation.ValidateStruct(&c.FS,
			validation.Field(&c.FS.Path, validation.Required),
			validation.Field(&c.FS.Secret, validation.Required, validation.Length(16, 0)),
		)
	}
}

// SeedConfig points at a directory of YAML course outlines.
type SeedConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Enabled reports whether seeding is configured.
func (c *SeedConfig) Enabled() bool {
	return c.Path != ""
}

// RateLimitConfig bounds course updates per client.
type RateLimitConfig struct {
	Updates int           `yaml:"updates"`
	Window  time.Duration `yaml:"window"`
}

// Validate validates the rate limit configuration.
func (c *RateLimitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Updates, validation.Min(0)),
		validation.Field(&c.Window, validation.Min(time.Duration(0))),
	)
}

// EventsConfig configures server-sent events.
type EventsConfig struct {
	CatalogThrottle time.Duration `yaml:"catalog_throttle"`
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
		SQLite: SQLiteConfig{
			Path: "./learnvex.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Storage: StorageConfig{
			Driver: StorageDriverFS,
			FS: FSConfig{
				Path: "./objects",
			},
		},
		RateLimit: RateLimitConfig{
			Updates: 5,
			Window:  time.Minute,
		},
		Events: EventsConfig{
			CatalogThrottle: 2 * time.Second,
		},
	}
}
