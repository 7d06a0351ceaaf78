// Package config holds the tunable parameters shared by the annotation
// session, the frame loader and the motility calculator.
//
// Values are resolved in layers: built-in defaults, then an optional JSON
// config file, then an optional .env file, then the process environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigPath = "spine-tools.json"
	DefaultEnvPath    = ".env"

	// DefaultPixelToMicron is the objective's calibration: 7.75 px per micron.
	DefaultPixelToMicron      = 1 / 7.75
	DefaultStabilityThreshold = 50.0
	DefaultDisplayGamma       = 1.0
	DefaultLogLevel           = "info"
)

// Environment variable names understood by Load.
const (
	EnvPixelToMicron      = "SPINE_PIXEL_TO_MICRON"
	EnvStabilityThreshold = "SPINE_STABILITY_THRESHOLD"
	EnvExtensions         = "SPINE_EXTENSIONS"
	EnvDisplayGamma       = "SPINE_DISPLAY_GAMMA"
	EnvLogLevel           = "SPINE_LOG_LEVEL"
)

// DefaultExtensions are the image extensions picked up from a folder.
var DefaultExtensions = []string{".tif", ".tiff"}

// Config is passed explicitly to every component that needs it.
type Config struct {
	// PixelToMicron converts a pixel length to microns.
	PixelToMicron float64 `json:"pixel_to_micron"`

	// StabilityThreshold is the pixel length below which a spine is stable.
	StabilityThreshold float64 `json:"stability_threshold"`

	// Extensions lists the accepted image file extensions, with leading dot.
	Extensions []string `json:"extensions"`

	// DisplayGamma is applied to frames before display. 1.0 leaves them as is.
	DisplayGamma float64 `json:"display_gamma"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
}

// NewDefaultConfig returns a Config populated with the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		PixelToMicron:      DefaultPixelToMicron,
		StabilityThreshold: DefaultStabilityThreshold,
		Extensions:         append([]string(nil), DefaultExtensions...),
		DisplayGamma:       DefaultDisplayGamma,
		LogLevel:           DefaultLogLevel,
	}
}

// Load resolves the configuration. A missing config or .env file is not an
// error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(DefaultEnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", DefaultEnvPath, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	if c.PixelToMicron, err = envFloat(EnvPixelToMicron, c.PixelToMicron); err != nil {
		return err
	}
	if c.StabilityThreshold, err = envFloat(EnvStabilityThreshold, c.StabilityThreshold); err != nil {
		return err
	}
	if c.DisplayGamma, err = envFloat(EnvDisplayGamma, c.DisplayGamma); err != nil {
		return err
	}
	if v := os.Getenv(EnvExtensions); v != "" {
		c.Extensions = splitExtensions(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

// splitExtensions parses ".tif, TIFF,png" into [".tif" ".tiff" ".png"].
func splitExtensions(s string) []string {
	var exts []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		exts = append(exts, part)
	}
	return exts
}

// Validate reports the first parameter that cannot be used.
func (c *Config) Validate() error {
	if c.PixelToMicron <= 0 {
		return fmt.Errorf("pixel_to_micron must be positive, got %g", c.PixelToMicron)
	}
	if c.StabilityThreshold <= 0 {
		return fmt.Errorf("stability_threshold must be positive, got %g", c.StabilityThreshold)
	}
	if len(c.Extensions) == 0 {
		return errors.New("at least one image extension is required")
	}
	if c.DisplayGamma <= 0 {
		return fmt.Errorf("display_gamma must be positive, got %g", c.DisplayGamma)
	}
	return nil
}

// HasExtension reports whether name ends in one of the configured extensions.
func (c *Config) HasExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range c.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Save writes the configuration as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Level maps LogLevel onto a slog level. Unknown names fall back to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
