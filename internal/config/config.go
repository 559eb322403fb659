// Package config loads server settings from the environment.
//
// Variables are read after an optional .env file in the working directory has
// been applied. Values already present in the environment win over .env.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "PAINT_MCP_"

// Config holds the runtime settings.
type Config struct {
	LogLevel      hclog.Level
	MaxImageWidth int
	SampleTarget  int
	JPEGQuality   int
	DecodeTimeout time.Duration
	FetchTimeout  time.Duration

	// CatalogPath is a YAML or JSON paint catalog.
	CatalogPath string

	// DatabaseURL is a PostgreSQL DSN. It takes precedence over CatalogPath.
	DatabaseURL string

	// Default blend settings for new editor sessions.
	Tolerance float64
	Feather   float64
	Opacity   float64
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:      hclog.Info,
		MaxImageWidth: 1200,
		SampleTarget:  5000,
		JPEGQuality:   90,
		DecodeTimeout: 15 * time.Second,
		FetchTimeout:  10 * time.Second,
		Tolerance:     50,
		Feather:       20,
		Opacity:       0.7,
	}
}

// Load applies .env (if present) and then reads the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, starting from Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	var errs []error

	get := func(name string) (string, bool) {
		v, ok := lookup(Prefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	intVar := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", Prefix, name, err))
				return
			}
			*dst = n
		}
	}
	floatVar := func(name string, dst *float64) {
		if v, ok := get(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", Prefix, name, err))
				return
			}
			*dst = f
		}
	}
	durationVar := func(name string, dst *time.Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", Prefix, name, err))
				return
			}
			*dst = d
		}
	}

	if v, ok := get("LOG_LEVEL"); ok {
		lvl := hclog.LevelFromString(v)
		if lvl == hclog.NoLevel {
			errs = append(errs, fmt.Errorf("%sLOG_LEVEL: unknown level %q", Prefix, v))
		} else {
			cfg.LogLevel = lvl
		}
	}
	intVar("MAX_IMAGE_WIDTH", &cfg.MaxImageWidth)
	intVar("SAMPLE_TARGET", &cfg.SampleTarget)
	intVar("JPEG_QUALITY", &cfg.JPEGQuality)
	durationVar("DECODE_TIMEOUT", &cfg.DecodeTimeout)
	durationVar("FETCH_TIMEOUT", &cfg.FetchTimeout)
	floatVar("TOLERANCE", &cfg.Tolerance)
	floatVar("FEATHER", &cfg.Feather)
	floatVar("OPACITY", &cfg.Opacity)
	if v, ok := get("CATALOG_PATH"); ok {
		cfg.CatalogPath = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		cfg.DatabaseURL = v
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges. Out-of-range values are reported, never clamped.
func (c Config) Validate() error {
	var errs []error
	if c.MaxImageWidth <= 0 {
		errs = append(errs, fmt.Errorf("max image width must be > 0, got %d", c.MaxImageWidth))
	}
	if c.SampleTarget <= 0 {
		errs = append(errs, fmt.Errorf("sample target must be > 0, got %d", c.SampleTarget))
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be 1-100, got %d", c.JPEGQuality))
	}
	if c.DecodeTimeout < 0 || c.FetchTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if math.IsNaN(c.Tolerance) || c.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("tolerance must be >= 0, got %v", c.Tolerance))
	}
	if math.IsNaN(c.Feather) || c.Feather < 0 {
		errs = append(errs, fmt.Errorf("feather must be >= 0, got %v", c.Feather))
	}
	if math.IsNaN(c.Opacity) || c.Opacity < 0 || c.Opacity > 1 {
		errs = append(errs, fmt.Errorf("opacity must be within [0,1], got %v", c.Opacity))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// NewLogger returns a stderr logger at the configured level. stdout is
// reserved for the MCP protocol.
func (c Config) NewLogger(name string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  c.LogLevel,
		Output: os.Stderr,
	})
}
