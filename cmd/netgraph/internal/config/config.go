package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory
const FileName = "netgraph.yaml"

var validate = validator.New()

// Config represents netgraph.yaml
type Config struct {
	Scene  SceneConfig  `yaml:"scene"`
	Render RenderConfig `yaml:"render"`
	Gate   GateConfig   `yaml:"gate"`
	Prefs  PrefsConfig  `yaml:"prefs"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// SceneConfig controls scene generation
type SceneConfig struct {
	// Number of nodes
	Nodes int `yaml:"nodes" validate:"min=1,max=2000"`

	// Seed for reproducible scenes; 0 seeds from the clock
	Seed int64 `yaml:"seed"`
}

// RenderConfig controls the frame loop and surfaces
type RenderConfig struct {
	// Frames per second of the scheduler
	FPS int `yaml:"fps" validate:"min=1,max=240"`

	// Upper bound of the device pixel ratio; it can only lower the built-in
	// cap of 1.5
	PixelRatioCap float64 `yaml:"pixelRatioCap" validate:"gte=1,lte=1.5"`

	// SVG viewport size in CSS pixels
	Width  int `yaml:"width" validate:"min=1"`
	Height int `yaml:"height" validate:"min=1"`
}

// GateConfig controls the render gate policy
type GateConfig struct {
	// Number of restorations after a surface loss; negative disables them
	MaxRestores int `yaml:"maxRestores" validate:"gte=-1,lte=100"`

	// Keep low-end devices on the fallback
	DisableOnLowEnd bool `yaml:"disableOnLowEnd"`
}

// PrefsConfig locates the motion preference files
type PrefsConfig struct {
	// Path of the persisted user preference; empty means the user config dir
	Path string `yaml:"path"`

	// Optional system file holding the reduced-motion setting
	SystemPath string `yaml:"systemPath"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	// Server host
	Host string `yaml:"host" validate:"required"`

	// Server port
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// Whether to expose /metrics
	Metrics bool `yaml:"metrics"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	config := &Config{
		Server: ServerConfig{Metrics: true},
	}
	applyDefaults(config)
	return config
}

// applyDefaults fills unset values
func applyDefaults(config *Config) {
	if config.Scene.Nodes == 0 {
		config.Scene.Nodes = 40
	}
	if config.Render.FPS == 0 {
		config.Render.FPS = 60
	}
	if config.Render.PixelRatioCap == 0 {
		config.Render.PixelRatioCap = 1.5
	}
	if config.Render.Width == 0 {
		config.Render.Width = 1600
	}
	if config.Render.Height == 0 {
		config.Render.Height = 900
	}
	if config.Gate.MaxRestores == 0 {
		config.Gate.MaxRestores = 1
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// Load loads configuration from netgraph.yaml in dir. A missing file yields
// the defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile loads configuration from path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for values the file zeroed
	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Save saves configuration to netgraph.yaml in dir
func Save(config *Config, dir string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0644)
}

// Addr is the server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks every field against its bounds
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Report the first error in a user-friendly format
	e := validationErrs[0]
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "min", "gte":
		return fmt.Errorf("%s: must be at least %s", field, e.Param())
	case "max", "lte":
		return fmt.Errorf("%s: must not exceed %s", field, e.Param())
	case "oneof":
		return fmt.Errorf("%s: must be one of %s", field, e.Param())
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}
