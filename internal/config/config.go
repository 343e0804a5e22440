// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for pymolchat.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.pymolchat/config.toml
//   - ~/.pymolchat/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/jharlan/pymolchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete pymolchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend is the local gateway the chat client talks to.
	Backend BackendConfig `toml:"backend" json:"backend"`

	// LLM is the upstream completion provider used by the server.
	LLM LLMConfig `toml:"llm" json:"llm"`

	// Server configures the local HTTP backend.
	Server ServerConfig `toml:"server" json:"server"`

	// History configures local transcript persistence.
	History HistoryConfig `toml:"history" json:"history"`

	// UI configures the chat interface.
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig points the chat client at its backend.
type BackendConfig struct {
	// URL is the backend base URL. Explicit IPv4 loopback by default:
	// "localhost" can resolve to ::1 while the server binds only v4.
	URL string `toml:"url" json:"url"`
	// TimeoutSecs bounds a full chat round-trip. Generation can take tens
	// of seconds, so the default is generous.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// AuthToken is sent as a bearer token on every request. Required
	// only when the server has server.auth_token set.
	AuthToken string `toml:"auth_token" json:"auth_token"`
}

// LLMConfig contains upstream completion provider settings.
type LLMConfig struct {
	// APIKey authenticates against the provider. Prefer the
	// PYMOLCHAT_API_KEY / OPENAI_API_KEY environment variables over
	// writing the key to disk.
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL is the provider endpoint (OpenAI-compatible).
	BaseURL string `toml:"base_url" json:"base_url"`
	// Model is the completion model to use.
	Model string `toml:"model" json:"model"`
	// Temperature controls sampling. Kept low so command output stays
	// deterministic.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// MaxTokens caps completion length.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
}

// ServerConfig contains local HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `toml:"host" json:"host"`
	// Port is the listen port.
	Port int `toml:"port" json:"port"`
	// RateLimit is the per-client request budget per minute (0 disables).
	RateLimit int `toml:"rate_limit" json:"rate_limit"`
	// AllowedOrigins lists CORS origins. Empty means same-host only.
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	// AuthToken, when set, requires a matching bearer token on every
	// request. Empty leaves the server open (loopback-only by default).
	AuthToken string `toml:"auth_token" json:"auth_token"`
	// AllowedIPs restricts clients to the listed IPs or CIDR ranges.
	// Empty allows any client address.
	AllowedIPs []string `toml:"allowed_ips" json:"allowed_ips"`
}

// HistoryConfig contains transcript persistence settings.
type HistoryConfig struct {
	// Enabled controls whether exchanges are persisted at all.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the SQLite database location (empty = default
	// ~/.pymolchat/history.db).
	Path string `toml:"path" json:"path"`
}

// UIConfig contains chat interface settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// SyntaxTheme is the chroma style used for command highlighting.
	SyntaxTheme string `toml:"syntax_theme" json:"syntax_theme"`
	// CompactMode uses a more compact layout.
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// ShowTimestamps displays per-turn timestamps in the transcript.
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
	// ExportFormat is the transcript export format: "markdown", "html",
	// or "json".
	ExportFormat string `toml:"export_format" json:"export_format"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			URL:         "http://127.0.0.1:5001",
			TimeoutSecs: 90,
		},

		LLM: LLMConfig{
			APIKey:      "",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o",
			Temperature: 0.1,
			MaxTokens:   2000,
		},

		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      5001,
			RateLimit: 60,
		},

		History: HistoryConfig{
			Enabled: true,
			Path:    "",
		},

		UI: UIConfig{
			Theme:          "dark",
			SyntaxTheme:    "monokai",
			CompactMode:    false,
			ShowTimestamps: true,
			ExportFormat:   "markdown",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the pymolchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".pymolchat"), nil
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
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) because
// they can carry the provider API key.
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
	cfg := Default()
	var loadErr error

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finishLoad applies env overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
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
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write
// only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if the file already
	// existed.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# pymolchat configuration file")
	fmt.Fprintln(file, "# Generated by pymolchat - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
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

	if c.Backend.URL != "" {
		if u, err := url.Parse(c.Backend.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "backend.url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Backend.URL),
			})
		}
	}
	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.LLM.BaseURL != "" {
		if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "llm.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.LLM.BaseURL),
			})
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "llm.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.LLM.Temperature),
		})
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "llm.max_tokens",
			Message: "must be non-negative",
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be 1-65535, got %d", c.Server.Port),
		})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit",
			Message: "must be non-negative",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	validFormats := map[string]bool{"markdown": true, "md": true, "html": true, "json": true}
	if c.UI.ExportFormat != "" && !validFormats[strings.ToLower(c.UI.ExportFormat)] {
		errs = append(errs, ValidationError{
			Field:   "ui.export_format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: markdown, html, json", c.UI.ExportFormat),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Backend.URL == "" {
		c.Backend.URL = defaults.Backend.URL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaults.LLM.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.LLM.Model
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = defaults.LLM.Temperature
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = defaults.LLM.MaxTokens
	}

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.SyntaxTheme == "" {
		c.UI.SyntaxTheme = defaults.UI.SyntaxTheme
	}
	if c.UI.ExportFormat == "" {
		c.UI.ExportFormat = defaults.UI.ExportFormat
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PYMOLCHAT_API_KEY: overrides llm.api_key
//   - OPENAI_API_KEY: fallback for llm.api_key
//   - PYMOLCHAT_MODEL: overrides llm.model
//   - PYMOLCHAT_BASE_URL: overrides llm.base_url
//   - PYMOLCHAT_BACKEND_URL: overrides backend.url
//   - PYMOLCHAT_PORT: overrides server.port
//   - PYMOLCHAT_AUTH_TOKEN: overrides server.auth_token
//   - PYMOLCHAT_HISTORY: set to "0" or "false" to disable persistence
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("PYMOLCHAT_API_KEY"); key != "" {
		c.LLM.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = key
	}

	if model := os.Getenv("PYMOLCHAT_MODEL"); model != "" {
		c.LLM.Model = model
	}

	if base := os.Getenv("PYMOLCHAT_BASE_URL"); base != "" {
		c.LLM.BaseURL = base
	}

	if backend := os.Getenv("PYMOLCHAT_BACKEND_URL"); backend != "" {
		c.Backend.URL = backend
	}

	if port := os.Getenv("PYMOLCHAT_PORT"); port != "" {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
			c.Server.Port = p
		}
	}

	if token := os.Getenv("PYMOLCHAT_AUTH_TOKEN"); token != "" {
		c.Server.AuthToken = token
	}

	if hist := os.Getenv("PYMOLCHAT_HISTORY"); hist != "" {
		c.History.Enabled = !(hist == "0" || strings.ToLower(hist) == "false")
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// ServerAddr returns the host:port the server should bind.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.AllowedOrigins != nil {
		clone.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	}
	if c.Server.AllowedIPs != nil {
		clone.Server.AllowedIPs = append([]string(nil), c.Server.AllowedIPs...)
	}
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the API key so it cannot leak through logs or debug
// output.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.LLM.APIKey != "" {
		safe.LLM.APIKey = "[REDACTED]"
	}
	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
