package matsys

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Capabilities describes the runtime a material is resolved and compiled for.
type Capabilities struct {
	// FeatureLevel is the shader model level times ten (90, 95).
	FeatureLevel int `json:"featureLevel" yaml:"featureLevel" toml:"featureLevel"`
	// GPULevel is the coarse GPU tier, 0 (lowest) to 3.
	GPULevel int `json:"gpuLevel" yaml:"gpuLevel" toml:"gpuLevel"`
	// MaxTexCoords is the number of texcoord units the geometry pipeline consumes.
	MaxTexCoords int `json:"maxTexCoords" yaml:"maxTexCoords" toml:"maxTexCoords"`
	// MaxBoneWeights is the number of bone weights per vertex the pipeline consumes.
	MaxBoneWeights int `json:"maxBoneWeights" yaml:"maxBoneWeights" toml:"maxBoneWeights"`

	HDR     bool `json:"hdr" yaml:"hdr" toml:"hdr"`             // High dynamic range rendering
	SRGB    bool `json:"srgb" yaml:"srgb" toml:"srgb"`          // sRGB reads and writes
	Console bool `json:"console" yaml:"console" toml:"console"` // Game console target

	Flashlight bool `json:"flashlight" yaml:"flashlight" toml:"flashlight"` // Flashlight passes
	Editor     bool `json:"editor" yaml:"editor" toml:"editor"`             // Editor passes
	Paint      bool `json:"paint" yaml:"paint" toml:"paint"`                // Paint layer passes
	Deferred   bool `json:"deferred" yaml:"deferred" toml:"deferred"`       // G-buffer passes
}

// DefaultCapabilities returns a desktop, shader model 9.5 configuration
// with flashlight and paint passes and no editor or deferred passes.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		FeatureLevel:   95,
		GPULevel:       3,
		MaxTexCoords:   8,
		MaxBoneWeights: 4,
		HDR:            true,
		SRGB:           true,
		Flashlight:     true,
		Paint:          true,
	}
}

// normalize fills zero limits with defaults.
func (c Capabilities) normalize() Capabilities {
	if c.FeatureLevel <= 0 {
		c.FeatureLevel = 95
	}
	if c.MaxTexCoords <= 0 {
		c.MaxTexCoords = 8
	}
	if c.MaxBoneWeights <= 0 {
		c.MaxBoneWeights = 4
	}
	c.GPULevel = min(max(c.GPULevel, 0), 3)

	return c
}

// Config is the file form of the runtime configuration.
type Config struct {
	// Root is the directory material documents are read from.
	Root string `json:"root" yaml:"root" toml:"root"`
	// Extension is the document file extension (default ".vmt").
	Extension string `json:"extension,omitempty" yaml:"extension,omitempty" toml:"extension,omitempty"`
	// MaxIncludeDepth bounds patch $include chains (default 10).
	MaxIncludeDepth int `json:"maxIncludeDepth,omitempty" yaml:"maxIncludeDepth,omitempty" toml:"maxIncludeDepth,omitempty"`
	// LogLevel is one of debug, info, warn, error (default info).
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty" toml:"logLevel,omitempty"`

	Capabilities Capabilities `json:"capabilities" yaml:"capabilities" toml:"capabilities"`
	Store        StoreOptions `json:"store" yaml:"store" toml:"store"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Root:            ".",
		Extension:       defaultExtension,
		MaxIncludeDepth: defaultMaxIncludeDepth,
		LogLevel:        "info",
		Capabilities:    DefaultCapabilities(),
	}
}

// decoderFunc creates a decoder for one config file format.
type decoderFunc func(r io.Reader) interface{ Decode(v any) error }

// configDecoders maps file extensions to decoders.
var configDecoders = map[string]decoderFunc{
	".yaml": func(r io.Reader) interface{ Decode(v any) error } { return yaml.NewDecoder(r) },
	".yml":  func(r io.Reader) interface{ Decode(v any) error } { return yaml.NewDecoder(r) },
	".toml": func(r io.Reader) interface{ Decode(v any) error } { return toml.NewDecoder(r) },
}

// LoadConfig reads a YAML or TOML config file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	dec, ok := configDecoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := dec(bufio.NewReader(f)).Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}

	cfg.Capabilities = cfg.Capabilities.normalize()
	if cfg.Extension == "" {
		cfg.Extension = defaultExtension
	}

	return cfg, nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}

	return lvl
}

// SystemOptions returns system options for this config with the given logger.
func (c Config) SystemOptions(logger *slog.Logger) *SystemOptions {
	return &SystemOptions{
		Capabilities:    c.Capabilities,
		MaxIncludeDepth: c.MaxIncludeDepth,
		Logger:          logger,
	}
}

// StoreOptions returns store options for this config with the given logger.
func (c Config) StoreOptions(logger *slog.Logger) *StoreOptions {
	opt := c.Store
	opt.Logger = logger
	return &opt
}
