package matsys

import (
	"log/slog"
	"time"
)

// ParseOptions controls parsing behavior.
type ParseOptions struct {
	// DisableComments disables // and /* */ comments.
	DisableComments bool
}

// FormatOptions controls writer formatting.
type FormatOptions struct {
	// Indent is the indentation string for nested sections (default is a tab).
	Indent string
	// QuoteKeys quotes every key, not only the ones containing spaces.
	QuoteKeys bool
}

// ValidateOptions controls validation rules.
type ValidateOptions struct {
	// Capabilities skips conditional sections that do not apply to it.
	// Nil validates every conditional section.
	Capabilities *Capabilities
	// DisableUndeclaredCheck disables warnings about keys the shader does not declare.
	DisableUndeclaredCheck bool
	// DisableTextureCheck disables texture name checks.
	DisableTextureCheck bool
	// DisableShaderNameCheck disables validation of the root shader name.
	DisableShaderNameCheck bool
}

// StoreOptions controls the variable store.
type StoreOptions struct {
	// PageSize is the number of variables per allocator page (default 256).
	PageSize int `json:"pageSize,omitempty" yaml:"pageSize,omitempty" toml:"pageSize,omitempty"`
	// QueueSize is the capacity of the deferred mutation channel (default 4096).
	QueueSize int `json:"queueSize,omitempty" yaml:"queueSize,omitempty" toml:"queueSize,omitempty"`
	// Logger receives store diagnostics (default slog.Default()).
	Logger *slog.Logger `json:"-" yaml:"-" toml:"-"`
}

// SystemOptions controls a material system.
type SystemOptions struct {
	// Capabilities describes the runtime the materials are resolved for.
	Capabilities Capabilities
	// MaxIncludeDepth bounds patch $include chains (default 10).
	MaxIncludeDepth int
	// PreloadWorkers bounds concurrent document reads in Preload (default 8).
	PreloadWorkers int
	// LogInterval is the minimum interval between repeats of a rate-limited message (default 5s).
	LogInterval time.Duration
	// Parse controls document parsing.
	Parse ParseOptions
	// Logger receives system diagnostics (default slog.Default()).
	Logger *slog.Logger
}

// defaults used by normalize.
const (
	defaultPageSize        = 256
	defaultQueueSize       = 4096
	defaultMaxIncludeDepth = 10
	defaultPreloadWorkers  = 8
	defaultLogInterval     = 5 * time.Second
)

// normalize normalizes the ParseOptions.
func (o *ParseOptions) normalize() ParseOptions {
	if o == nil {
		return ParseOptions{}
	}

	return *o
}

// normalize normalizes the FormatOptions.
func (o *FormatOptions) normalize() FormatOptions {
	if o == nil {
		return FormatOptions{Indent: "\t"}
	}

	out := *o
	if out.Indent == "" {
		out.Indent = "\t"
	}

	return out
}

// normalize normalizes the ValidateOptions.
func (o *ValidateOptions) normalize() ValidateOptions {
	if o == nil {
		return ValidateOptions{}
	}

	return *o
}

// normalize normalizes the StoreOptions.
func (o *StoreOptions) normalize() StoreOptions {
	if o == nil {
		return StoreOptions{PageSize: defaultPageSize, QueueSize: defaultQueueSize, Logger: slog.Default()}
	}

	out := *o
	if out.PageSize <= 0 {
		out.PageSize = defaultPageSize
	}
	if out.QueueSize <= 0 {
		out.QueueSize = defaultQueueSize
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}

	return out
}

// normalize normalizes the SystemOptions.
func (o *SystemOptions) normalize() SystemOptions {
	var out SystemOptions
	if o == nil {
		out.Capabilities = DefaultCapabilities()
	} else {
		out = *o
	}

	if out.MaxIncludeDepth <= 0 {
		out.MaxIncludeDepth = defaultMaxIncludeDepth
	}
	if out.PreloadWorkers <= 0 {
		out.PreloadWorkers = defaultPreloadWorkers
	}
	if out.LogInterval <= 0 {
		out.LogInterval = defaultLogInterval
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	out.Capabilities = out.Capabilities.normalize()

	return out
}
