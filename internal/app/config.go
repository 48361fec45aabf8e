package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ServicePaths []string // .hcl, .yaml and .yml descriptor files or directories

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	Workers       int
	AutoResume    bool
	PollInterval  time.Duration
	WaitTimeout   time.Duration
	EnableTimeout time.Duration

	// Serve keeps the process alive after activation until the context is
	// cancelled, then disables every service.
	Serve bool

	BulletinURL       string
	BulletinNamespace string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ServicePaths) == 0 {
		return nil, errors.New("at least one service descriptor path is required")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.PollInterval < 0 || cfg.WaitTimeout < 0 || cfg.EnableTimeout < 0 {
		return nil, errors.New("durations cannot be negative")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}
