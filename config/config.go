// Package config loads the linefit application config from YAML or TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/epbkit/linefit/revise/gemini"
	"github.com/epbkit/linefit/revise/openai"
)

// Provider names accepted in config.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config is the full application config. Zero fields fall back to Defaults.
type Config struct {
	Form           string         `yaml:"form" toml:"form"`
	FormFile       string         `yaml:"form_file" toml:"form_file"`
	Slot           string         `yaml:"slot" toml:"slot"`
	Provider       string         `yaml:"provider" toml:"provider"`
	Model          string         `yaml:"model" toml:"model"`
	TimeoutSeconds int            `yaml:"timeout_seconds" toml:"timeout_seconds"`
	OpenAI         openai.Options `yaml:"openai" toml:"openai"`
	Gemini         gemini.Options `yaml:"gemini" toml:"gemini"`
	Store          StoreConfig    `yaml:"store" toml:"store"`
	Log            LogConfig      `yaml:"log" toml:"log"`
	Preview        PreviewConfig  `yaml:"preview" toml:"preview"`
}

// StoreConfig selects the draft store.
type StoreConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // memory | sqlite
	Path   string `yaml:"path" toml:"path"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // json | console
}

// PreviewConfig configures PDF previews.
type PreviewConfig struct {
	FontFile string   `yaml:"font_file" toml:"font_file"`
	Families []string `yaml:"families" toml:"families"`
}

// Defaults returns the built-in config.
func Defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Form:           "AF1206",
		Slot:           "statement",
		Provider:       ProviderMock,
		TimeoutSeconds: 60,
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(home, ".linefit", "drafts.db"),
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Timeout returns the revision timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderMock, ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("provider: unknown %q", c.Provider))
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path: required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown %q", c.Store.Driver))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown %q", c.Log.Format))
	}
	if c.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("timeout_seconds: must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads path over Defaults. The format follows the extension
// (.yaml, .yml, .toml); ${VAR} references are expanded from the environment.
// An empty path returns Defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(filepath.Ext(path), data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode decodes data in the format named by ext into cfg, rejecting unknown keys.
func Decode(ext string, data []byte, cfg *Config) error {
	data = []byte(os.ExpandEnv(string(data)))
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return fmt.Errorf("yaml: %w", err)
		}
	case "toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return fmt.Errorf("toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return fmt.Errorf("toml: unknown keys %s", strings.Join(keys, ", "))
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}
