// Package common provides shared utilities for command implementations.
package common

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/config"
)

// DefaultConfigPath is used when neither --config nor CONFIG_PATH is set.
const DefaultConfigPath = "config.yml"

// ErrConfigRequired is returned when a command runs before configuration loads.
var ErrConfigRequired = errors.New("config is required")

// Options holds the root command's persistent flags.
type Options struct {
	ConfigPath string
	Debug      bool
}

// Load reads and validates configuration and builds the logger.
func (o *Options) Load() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.Debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}
	if err = cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, log.With(logger.String("service", cfg.Service.Name)), nil
}
