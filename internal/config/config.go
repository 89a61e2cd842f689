// Package config loads sealstore configuration.
//
// Sources are applied in order, later ones overriding earlier ones:
//  1. Defaults (Default)
//  2. YAML file, when one is given
//  3. Environment variables, SEALSTORE_SECTION_KEY -> section.key
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/illarion/sealstore/internal/crypto"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "SEALSTORE_"

// Storage engines
const (
	EngineBolt   = "bolt"
	EngineBadger = "badger"
	EngineMemory = "memory"
)

// Encryption fallback policies
const (
	FallbackFail      = "fail"
	FallbackLegacy    = "legacy"
	FallbackPlaintext = "plaintext"
)

// Config is the full sealstore configuration.
type Config struct {
	Dir         string            `koanf:"dir"`
	Engine      string            `koanf:"engine"`
	Prefix      string            `koanf:"prefix"`
	Encryption  EncryptionConfig  `koanf:"encryption"`
	Fingerprint FingerprintConfig `koanf:"fingerprint"`
	Log         LogConfig         `koanf:"log"`
	Metrics     MetricsConfig     `koanf:"metrics"`
}

type EncryptionConfig struct {
	Iterations int `koanf:"iterations"`
	// Fallback decides what happens when encryption fails while the
	// provider reports itself available: fail, legacy or plaintext.
	Fallback string `koanf:"fallback"`
}

type FingerprintConfig struct {
	Geometry bool `koanf:"geometry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the operation counters in Prometheus
	// text format each time a command finishes.
	Textfile string `koanf:"textfile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Dir:    DefaultDir(),
		Engine: EngineBolt,
		Prefix: "sealstore:",
		Encryption: EncryptionConfig{
			Iterations: crypto.DefaultIterations,
			Fallback:   FallbackFail,
		},
		// Off so piped and interactive runs derive the same key.
		Fingerprint: FingerprintConfig{Geometry: false},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DefaultDir returns the per-user data directory.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".sealstore"
	}
	return filepath.Join(dir, "sealstore")
}

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option is a function that configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load applies file and environment on top of the defaults and validates
// the result.
func (l *Loader) Load() (*Config, error) {
	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", l.filePath, err)
		}
	}

	// SEALSTORE_LOG_LEVEL -> log.level
	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := l.k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is shorthand for NewLoader(opts...).Load().
func Load(opts ...Option) (*Config, error) {
	return NewLoader(opts...).Load()
}

// Validate checks enumerated fields and bounds.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineBolt, EngineBadger, EngineMemory:
	default:
		return fmt.Errorf("config: unknown engine %q", c.Engine)
	}

	switch c.Encryption.Fallback {
	case FallbackFail, FallbackLegacy, FallbackPlaintext:
	default:
		return fmt.Errorf("config: unknown encryption fallback %q", c.Encryption.Fallback)
	}

	if c.Encryption.Iterations < crypto.MinIterations {
		return fmt.Errorf("config: encryption iterations must be at least %d", crypto.MinIterations)
	}
	if c.Prefix == "" {
		return fmt.Errorf("config: prefix must not be empty")
	}
	if c.Engine != EngineMemory && c.Dir == "" {
		return fmt.Errorf("config: dir is required for engine %q", c.Engine)
	}
	return nil
}
