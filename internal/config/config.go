// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"

	"github.com/incrime/incrime-tui/internal/util"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "INCRIME_"

var (
	// ErrUnknownKey is returned by Get and Set for a key that names no value.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalidValue is returned by Set when the text does not parse.
	ErrInvalidValue = errors.New("invalid config value")
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete incrime configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Remote API configuration
	API APIConfig `toml:"api" json:"api"`

	// Local durable storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// Logging configuration
	Log LogConfig `toml:"log" json:"log"`
}

// APIConfig contains remote InCrime API settings.
type APIConfig struct {
	// BaseURL is the server root; endpoint paths start with /api.
	BaseURL string `toml:"base_url" json:"base_url" env:"API_URL"`
	// TimeoutSecs bounds every request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" env:"API_TIMEOUT_SECS"`
	// RatePerSecond throttles outgoing requests (0 = unlimited).
	RatePerSecond float64 `toml:"rate_per_second" json:"rate_per_second" env:"API_RATE"`
	// Burst is the limiter bucket size.
	Burst int `toml:"burst" json:"burst" env:"API_BURST"`
	// BreakerFailures is the number of consecutive chat failures that open
	// the circuit breaker (0 disables it).
	BreakerFailures int `toml:"breaker_failures" json:"breaker_failures" env:"API_BREAKER_FAILURES"`
	// BreakerCooldownSecs is how long the breaker stays open.
	BreakerCooldownSecs int `toml:"breaker_cooldown_secs" json:"breaker_cooldown_secs" env:"API_BREAKER_COOLDOWN_SECS"`
}

// StorageConfig contains local persistence settings.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", "memory".
	Backend string `toml:"backend" json:"backend" env:"STORAGE_BACKEND"`
	// DataDir holds stored values; empty means the config directory.
	DataDir string `toml:"data_dir" json:"data_dir" env:"DATA_DIR"`
	// ChatsKey is the key of the serialized transcript collection.
	ChatsKey string `toml:"chats_key" json:"chats_key"`
	// TokenKey is the key of the bearer token.
	TokenKey string `toml:"token_key" json:"token_key"`
	// SealToken encrypts the stored bearer token at rest.
	SealToken bool `toml:"seal_token" json:"seal_token" env:"SEAL_TOKEN"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `toml:"theme" json:"theme" env:"THEME"`
	// ShowTimes renders message timestamps.
	ShowTimes bool `toml:"show_times" json:"show_times"`
	// ShowSuggestions renders starter prompts on the welcome view.
	ShowSuggestions bool `toml:"show_suggestions" json:"show_suggestions"`
	// RenderMarkdown renders assistant replies with glamour.
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level string `toml:"level" json:"level" env:"LOG_LEVEL"`
	// File is the log file; empty means incrime.log in the data directory.
	File string `toml:"file" json:"file" env:"LOG_FILE"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:             "https://incrime-server.onrender.com",
			TimeoutSecs:         60,
			RatePerSecond:       2,
			Burst:               4,
			BreakerFailures:     5,
			BreakerCooldownSecs: 30,
		},

		Storage: StorageConfig{
			Backend:   "file",
			DataDir:   "",
			ChatsKey:  "crime_chats",
			TokenKey:  "incrime_token",
			SealToken: false,
		},

		UI: UIConfig{
			Theme:           "light",
			ShowTimes:       true,
			ShowSuggestions: true,
			RenderMarkdown:  true,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the incrime configuration directory path.
// INCRIME_HOME overrides the default ~/.incrime.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".incrime"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ResolveDataDir returns the storage directory, expanding a leading "~".
func (c *Config) ResolveDataDir() (string, error) {
	dir := c.Storage.DataDir
	if dir == "" {
		return ConfigDir()
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir, nil
}

// ResolveLogFile returns the log file path.
func (c *Config) ResolveLogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "incrime.log"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path, ok := existingConfigFile(); ok {
		return LoadFromPath(path)
	}

	cfg := Default()
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// existingConfigFile returns the config file on disk, TOML first.
func existingConfigFile() (string, bool) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	// Keys missing from the file keep their defaults.
	cfg := Default()
	if err := decodeFile(cfg, path); err != nil {
		return nil, err
	}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile decodes path into cfg, choosing the format by extension.
func decodeFile(cfg *Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
		return nil
	}
	if err := LoadTOML(cfg, path); err != nil {
		return fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}
	return nil
}

// finish applies env overrides, defaults and validation.
func finish(cfg *Config) error {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
// Booleans are left as decoded; an explicit false in a file is honored.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// API
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	if cfg.API.TimeoutSecs <= 0 {
		cfg.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if cfg.API.Burst <= 0 {
		cfg.API.Burst = defaults.API.Burst
	}
	if cfg.API.BreakerCooldownSecs <= 0 {
		cfg.API.BreakerCooldownSecs = defaults.API.BreakerCooldownSecs
	}

	// Storage
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Storage.ChatsKey == "" {
		cfg.Storage.ChatsKey = defaults.Storage.ChatsKey
	}
	if cfg.Storage.TokenKey == "" {
		cfg.Storage.TokenKey = defaults.Storage.TokenKey
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SetInFile sets one key in a config file and writes the file back.
// An empty path edits the existing default file, or creates the TOML one.
// Environment overrides are not applied, so they never end up in the file.
// It returns the saved config and the path written.
func SetInFile(path, key, value string) (*Config, string, error) {
	if path == "" {
		path, _ = existingConfigFile()
	}

	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := decodeFile(cfg, path); err != nil {
				return nil, path, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, path, err
		}
	}

	if err := cfg.Set(key, value); err != nil {
		return nil, path, err
	}
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config: %w", err)
	}

	var err error
	switch {
	case path == "":
		if path, err = ConfigPathTOML(); err == nil {
			err = Save(cfg)
		}
	case strings.HasSuffix(path, ".json"):
		err = SaveJSON(cfg, path)
	default:
		err = SaveTOML(cfg, path)
	}
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# incrime configuration file\n")
	sb.WriteString("# Generated by incrime - edit with care\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be an absolute http(s) URL", c.API.BaseURL),
		})
	}

	if c.API.RatePerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.rate_per_second",
			Message: "cannot be negative",
		})
	}

	if c.API.BreakerFailures < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.breaker_failures",
			Message: "cannot be negative",
		})
	}

	validBackends := map[string]bool{"file": true, "sqlite": true, "memory": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}

	if c.Storage.ChatsKey == c.Storage.TokenKey {
		errs = append(errs, ValidationError{
			Field:   "storage.chats_key",
			Message: "must differ from storage.token_key",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies INCRIME_* environment variables on top of the
// current values. Unset variables leave fields untouched.
//
//   - INCRIME_API_URL: overrides api.base_url
//   - INCRIME_API_TIMEOUT_SECS, INCRIME_API_RATE, INCRIME_API_BURST
//   - INCRIME_STORAGE_BACKEND, INCRIME_DATA_DIR, INCRIME_SEAL_TOKEN
//   - INCRIME_THEME
//   - INCRIME_LOG_LEVEL, INCRIME_LOG_FILE
func (c *Config) ApplyEnvOverrides() error {
	return env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix})
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrUnknownKey)
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTOMLName(v, part)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: '%s' is not a section", ErrUnknownKey, strings.Join(parts[:i+1], "."))
		}
		v = field
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Set assigns a value given as text to a dotted key, parsing it for the
// field's type.
func (c *Config) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrUnknownKey)
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTOMLName(v, part)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(parts[:i+1], "."))
		}
		if i < len(parts)-1 {
			if field.Kind() != reflect.Struct {
				return fmt.Errorf("%w: '%s' is not a section", ErrUnknownKey, strings.Join(parts[:i+1], "."))
			}
			v = field
			continue
		}
		return setField(field, key, value)
	}
	return fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

func setField(field reflect.Value, key, value string) error {
	value = strings.TrimSpace(value)
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false, got %q", ErrInvalidValue, key, value)
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidValue, key, value)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidValue, key, value)
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("%w: '%s' is a section", ErrUnknownKey, key)
	}
	return nil
}

// fieldByTOMLName finds the struct field whose toml tag matches name.
func fieldByTOMLName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	collectKeys(reflect.TypeOf(Config{}), "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("toml"), ",")[0]
		if name == "" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, name, keys)
			continue
		}
		*keys = append(*keys, name)
	}
}
