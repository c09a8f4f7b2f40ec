package codelet

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	defaults "github.com/Paranoid-AF/codelet/default"
)

// Config represents the user's codelet configuration.
type Config struct {
	Version    int              `json:"version"`
	Generation GenerationConfig `json:"generation"`
	Languages  []string         `json:"languages"`
	Context    ContextConfig    `json:"context"`
}

// GenerationConfig holds settings for the inference server.
type GenerationConfig struct {
	Endpoint       string `json:"endpoint"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	RedactSecrets  *bool  `json:"redact_secrets,omitempty"`
}

// ContextConfig controls the project context made available to prompt templates.
type ContextConfig struct {
	Enabled    *bool `json:"enabled,omitempty"`
	TTLMinutes int   `json:"ttl_minutes,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $CODELET_CONFIG_DIR > $XDG_CONFIG_HOME/codelet > ~/.config/codelet
func ConfigDir() string {
	if dir := os.Getenv("CODELET_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "codelet")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "codelet-config")
	}
	return filepath.Join(home, ".config", "codelet")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// PromptPath returns the custom prompt template path.
func PromptPath() string {
	return filepath.Join(ConfigDir(), "prompt.md")
}

// DefaultConfig returns the default configuration from the embedded default_config.json.
func DefaultConfig() *Config {
	var cfg Config
	if err := json.Unmarshal(defaults.DefaultConfigJSON, &cfg); err != nil {
		panic("codelet: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.Generation.Endpoint == "" {
		cfg.Generation.Endpoint = defaults.Generation.Endpoint
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = defaults.Generation.Model
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = defaults.Generation.TimeoutSeconds
	}
	if cfg.Generation.RedactSecrets == nil {
		cfg.Generation.RedactSecrets = defaults.Generation.RedactSecrets
	}
	if cfg.Languages == nil {
		cfg.Languages = defaults.Languages
	}
	if cfg.Context.Enabled == nil {
		cfg.Context.Enabled = defaults.Context.Enabled
	}
	if cfg.Context.TTLMinutes == 0 {
		cfg.Context.TTLMinutes = defaults.Context.TTLMinutes
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	endpoint := ResolveEndpoint(cfg)
	if u, err := url.Parse(endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		warnings = append(warnings, fmt.Sprintf("endpoint %q is not an http(s) URL; completions will fail", endpoint))
	}
	if ResolveModel(cfg) == "" {
		warnings = append(warnings, "model is empty; the inference server will reject requests")
	}
	if len(cfg.Languages) == 0 {
		warnings = append(warnings, "languages is empty; no document will be completed")
	}
	if cfg.Generation.TimeoutSeconds < 0 {
		warnings = append(warnings, "timeout_seconds is negative; no timeout will be applied")
	}
	return warnings
}

// ResolveEndpoint returns the generate endpoint URL.
// Priority: $CODELET_ENDPOINT env > config value.
func ResolveEndpoint(cfg *Config) string {
	if endpoint := os.Getenv("CODELET_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	if cfg != nil {
		return cfg.Generation.Endpoint
	}
	return ""
}

// ResolveModel returns the model name.
// Priority: $CODELET_MODEL env > config value.
func ResolveModel(cfg *Config) string {
	if model := os.Getenv("CODELET_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Generation.Model
	}
	return ""
}

// Timeout returns the transport timeout. Zero means none.
func Timeout(cfg *Config) time.Duration {
	if cfg == nil || cfg.Generation.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(cfg.Generation.TimeoutSeconds) * time.Second
}

// LanguageSupported reports whether documents in languageID are completed.
func LanguageSupported(cfg *Config, languageID string) bool {
	if cfg == nil {
		return false
	}
	return slices.Contains(cfg.Languages, languageID)
}

// RedactSecretsEnabled returns whether prompts are scrubbed of secrets.
func RedactSecretsEnabled(cfg *Config) bool {
	if cfg == nil || cfg.Generation.RedactSecrets == nil {
		return false
	}
	return *cfg.Generation.RedactSecrets
}

// ContextEnabled returns whether project context is gathered for prompts.
func ContextEnabled(cfg *Config) bool {
	if cfg == nil || cfg.Context.Enabled == nil {
		return false
	}
	return *cfg.Context.Enabled
}
