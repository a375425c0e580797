// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for sage-tui.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.sage/config.toml
//   - ~/.sage/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/sagedesk/sage-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete sage-tui configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Server holds backend connection settings.
	Server ServerConfig `toml:"server" json:"server"`

	// Chat holds the state-core tunables.
	Chat ChatConfig `toml:"chat" json:"chat"`

	// UI holds presentation settings.
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains backend connection configuration.
type ServerConfig struct {
	// BaseURL is the backend root, without the API prefix.
	BaseURL string `toml:"base_url" json:"base_url"`
	// RequestTimeoutSecs bounds each API request.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// RequestsPerSecond limits outbound request rate (0 = default).
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// ChatConfig contains the state-core tunables.
type ChatConfig struct {
	// PageSize is the session list page size. Valid range 1-100.
	PageSize int `toml:"page_size" json:"page_size"`
	// GracePeriodSecs is the delete-undo window in seconds.
	GracePeriodSecs int `toml:"grace_period_secs" json:"grace_period_secs"`
	// SearchDebounceMs is the search quiet period in milliseconds.
	SearchDebounceMs int `toml:"search_debounce_ms" json:"search_debounce_ms"`
	// SearchLimit caps search results per query.
	SearchLimit int `toml:"search_limit" json:"search_limit"`
	// HistoryLimit is the message window loaded when opening a session.
	HistoryLimit int `toml:"history_limit" json:"history_limit"`
	// ContextMessages is how much history the backend considers per send.
	ContextMessages int `toml:"context_messages" json:"context_messages"`
	// Temperature is the generation temperature forwarded on send.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// DefaultDataSource is the knowledge-base tag used when none is picked.
	DefaultDataSource string `toml:"default_data_source" json:"default_data_source"`
}

// UIConfig contains presentation configuration.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light", "auto".
	Theme string `toml:"theme" json:"theme"`
	// ShowSources toggles the retrieval citation footer on replies.
	ShowSources bool `toml:"show_sources" json:"show_sources"`
	// CompactSidebar hides timestamps in the session sidebar.
	CompactSidebar bool `toml:"compact_sidebar" json:"compact_sidebar"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: util.Version,
		Server: ServerConfig{
			BaseURL:            "http://localhost:8000",
			RequestTimeoutSecs: 60,
			RequestsPerSecond:  5,
		},
		Chat: ChatConfig{
			PageSize:          20,
			GracePeriodSecs:   5,
			SearchDebounceMs:  300,
			SearchLimit:       50,
			HistoryLimit:      200,
			ContextMessages:   10,
			Temperature:       0.7,
			DefaultDataSource: "company_faqs",
		},
		UI: UIConfig{
			Theme:       "auto",
			ShowSources: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory (~/.sage).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, ".sage"), nil
}

// PathTOML returns the TOML config file path.
func PathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the JSON config file path.
func PathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration: TOML first, JSON as fallback, defaults
// when neither exists. Env overrides and validation always apply.
func Load() (*Config, error) {
	cfg := Default()

	if path, err := PathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
			return finish(cfg)
		}
	}

	if path, err := PathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadJSON(cfg, path); err != nil {
				return nil, err
			}
			return finish(cfg)
		}
	}

	return finish(cfg)
}

// LoadFromPath reads one explicit config file, picking the decoder by
// extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.Clamp()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML config: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON config: %w", err)
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration as TOML.
// SECURITY: Config files carry 0600 permissions (owner read/write only).
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# sage-tui configuration file\n")
	buf.WriteString("# Edit with care; invalid values are clamped on load\n\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENV OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variables over file values:
//   - SAGE_BASE_URL: overrides server.base_url
//   - SAGE_PAGE_SIZE: overrides chat.page_size
//   - SAGE_DATA_SOURCE: overrides chat.default_data_source
//   - SAGE_THEME: overrides ui.theme
//   - SAGE_TIMEOUT_SECS: overrides server.request_timeout_secs
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("SAGE_BASE_URL"); base != "" {
		c.Server.BaseURL = base
	}
	if size := os.Getenv("SAGE_PAGE_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			c.Chat.PageSize = n
		}
	}
	if src := os.Getenv("SAGE_DATA_SOURCE"); src != "" {
		c.Chat.DefaultDataSource = src
	}
	if theme := os.Getenv("SAGE_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if secs := os.Getenv("SAGE_TIMEOUT_SECS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil {
			c.Server.RequestTimeoutSecs = n
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Clamp forces out-of-range numeric values back into their valid ranges
// rather than rejecting the file.
func (c *Config) Clamp() {
	def := Default()

	if c.Chat.PageSize < 1 || c.Chat.PageSize > 100 {
		c.Chat.PageSize = def.Chat.PageSize
	}
	if c.Chat.GracePeriodSecs < 1 || c.Chat.GracePeriodSecs > 60 {
		c.Chat.GracePeriodSecs = def.Chat.GracePeriodSecs
	}
	if c.Chat.SearchDebounceMs < 50 || c.Chat.SearchDebounceMs > 2000 {
		c.Chat.SearchDebounceMs = def.Chat.SearchDebounceMs
	}
	if c.Chat.SearchLimit < 1 || c.Chat.SearchLimit > 500 {
		c.Chat.SearchLimit = def.Chat.SearchLimit
	}
	if c.Chat.HistoryLimit < 1 || c.Chat.HistoryLimit > 1000 {
		c.Chat.HistoryLimit = def.Chat.HistoryLimit
	}
	if c.Chat.ContextMessages < 0 || c.Chat.ContextMessages > 50 {
		c.Chat.ContextMessages = def.Chat.ContextMessages
	}
	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		c.Chat.Temperature = def.Chat.Temperature
	}
	if c.Server.RequestTimeoutSecs < 1 || c.Server.RequestTimeoutSecs > 600 {
		c.Server.RequestTimeoutSecs = def.Server.RequestTimeoutSecs
	}
	if c.Server.RequestsPerSecond <= 0 || c.Server.RequestsPerSecond > 100 {
		c.Server.RequestsPerSecond = def.Server.RequestsPerSecond
	}
}

// Validate checks the fields that cannot be clamped into sense.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url scheme must be http or https, got %q", u.Scheme)
	}

	switch c.UI.Theme {
	case "dark", "light", "auto", "":
	default:
		return fmt.Errorf("ui.theme %q is not one of dark, light, auto", c.UI.Theme)
	}

	switch c.Chat.DefaultDataSource {
	case "company_faqs", "uploaded_files", "general_knowledge":
	default:
		return fmt.Errorf("chat.default_data_source %q is unknown", c.Chat.DefaultDataSource)
	}
	return nil
}
