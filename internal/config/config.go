// Package config loads kgreason settings from the environment and the
// predicate catalog from YAML.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration
type Config struct {
	// Storage and sources
	DBPath    string `env:"KGREASON_DB"`
	NodesPath string `env:"KGREASON_NODES"`
	EdgesPath string `env:"KGREASON_EDGES"`

	// Loader tuning
	BatchSize int `env:"KGREASON_BATCH_SIZE" envDefault:"50000" validate:"min=1,max=1000000"`
	MaxDepth  int `env:"KGREASON_MAX_DEPTH" envDefault:"10" validate:"min=1,max=10"`

	LogLevel string `env:"KGREASON_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	DevLog   bool   `env:"KGREASON_DEV_LOG" envDefault:"false"`

	// HTTP surface
	Listen          string        `env:"KGREASON_LISTEN" envDefault:":8080" validate:"required"`
	ShutdownTimeout time.Duration `env:"KGREASON_SHUTDOWN_TIMEOUT" envDefault:"10s" validate:"gt=0"`

	// PredicatesFile is an optional YAML catalog merged over DefaultCatalog
	PredicatesFile string  `env:"KGREASON_PREDICATES"`
	Catalog        Catalog `env:"-"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load parses the environment, reads the predicate catalog, and validates the result
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	catalog, err := LoadCatalog(cfg.PredicatesFile)
	if err != nil {
		return nil, err
	}
	cfg.Catalog = catalog

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges, including after flag overrides
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
