// Package config loads the server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. See Load.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Picker   PickerConfig   `koanf:"picker"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout       time.Duration `koanf:"read_timeout" validate:"min=0"`
	WriteTimeout      time.Duration `koanf:"write_timeout" validate:"min=0"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"` // per IP; 0 disables
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"min=0"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path         string        `koanf:"path" validate:"required"`
	MaxOpenConns int           `koanf:"max_open_conns" validate:"min=1"`
	BusyTimeout  time.Duration `koanf:"busy_timeout" validate:"min=0"`
	AutoMigrate  bool          `koanf:"auto_migrate"`
}

// PickerConfig tunes the simulation and the snapshot cache.
type PickerConfig struct {
	Trials       int           `koanf:"trials" validate:"min=1,max=1000000"`
	Cooldown     time.Duration `koanf:"cooldown" validate:"min=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"min=0"`
	Workers      int           `koanf:"workers" validate:"min=0"` // 0 means GOMAXPROCS
	Seed         uint64        `koanf:"seed"`                     // 0 means a crypto-random seed per run
	RefreshRate  float64       `koanf:"refresh_rate" validate:"min=0"`
	RefreshBurst int           `koanf:"refresh_burst" validate:"min=0"`
}

// CatalogConfig points at the YAML catalog seed. Later files override earlier ones.
type CatalogConfig struct {
	SeedFiles []string `koanf:"seed_files"`
	Watch     bool     `koanf:"watch"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Catalog.Watch && len(c.Catalog.SeedFiles) == 0 {
		return fmt.Errorf("%w: catalog.watch requires catalog.seed_files", ErrInvalidConfig)
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("%w: server.rate_limit_window must be positive when rate limiting is on", ErrInvalidConfig)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
