package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	apperrors "gridguardian-backend/internal/errors"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIGURATION LOADER
// ============================================================================

// Loader builds a Config from layered sources.
// The loading order (from lowest to highest priority):
//  1. Default values (in code)
//  2. The YAML file named by CONFIG_FILE, when set
//  3. Environment variables
type Loader struct {
	path   string
	lookup LookupFunc
}

// NewLoader creates a loader reading the given YAML file (empty for none)
// and the process environment.
func NewLoader(path string) *Loader {
	return &Loader{path: path, lookup: os.LookupEnv}
}

// WithLookup replaces the environment lookup, mainly for tests.
func (l *Loader) WithLookup(lookup LookupFunc) *Loader {
	l.lookup = lookup
	return l
}

// Path returns the YAML file the loader reads.
func (l *Loader) Path() string {
	return l.path
}

// Load loads, overlays and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	if l.path != "" {
		if err := l.loadFile(cfg); err != nil {
			return nil, err
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, l.path)
	}

	if err := applyEnvironment(cfg, l.lookup); err != nil {
		return nil, apperrors.Configuration(string(apperrors.CodeInvalidConfig), "environment is malformed").
			WithCause(err).
			Build()
	}
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile(cfg *Config) error {
	file, err := os.Open(l.path)
	if err != nil {
		return apperrors.Configuration(string(apperrors.CodeInvalidConfig), "cannot open config file").
			WithResource(l.path).
			WithCause(err).
			Build()
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Configuration(string(apperrors.CodeInvalidConfig), fmt.Sprintf("cannot parse %s", l.path)).
			WithResource(l.path).
			WithCause(err).
			Build()
	}
	return nil
}

// Load loads configuration from CONFIG_FILE (optional) and the environment.
func Load() (*Config, error) {
	return NewLoader(os.Getenv("CONFIG_FILE")).Load()
}

// MustLoad loads configuration and panics on error.
// Use this only in main() functions.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
