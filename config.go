package inkling

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	ktoml "github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	defaults "github.com/Paranoid-AF/inkling/default"
)

// Store keys read by the Resolve helpers.
const (
	KeyAPIKey = "api_key"
	KeyDebug  = "debug"
)

// Values is a read-only view of the persisted key/value store.
type Values interface {
	Get(key string) string
}

// Config represents the user's inkling configuration.
type Config struct {
	Version    int              `json:"version" koanf:"version"`
	Generation GenerationConfig `json:"generation" koanf:"generation"`
	Debug      DebugConfig      `json:"debug" koanf:"debug"`
}

// GenerationConfig holds settings for the completion service.
type GenerationConfig struct {
	BaseURL        string  `json:"base_url" koanf:"base_url"`
	Model          string  `json:"model" koanf:"model"`
	Temperature    float64 `json:"temperature" koanf:"temperature"`
	MaxTokens      int     `json:"max_tokens,omitempty" koanf:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty" koanf:"timeout_seconds"`
	RedactPrompt   bool    `json:"redact_prompt" koanf:"redact_prompt"`
}

// DebugConfig holds settings for the offline debug response.
type DebugConfig struct {
	DelayMillis int `json:"delay_ms" koanf:"delay_ms"`
}

// ConfigDir returns the config directory path.
// Resolution order: $INKLING_CONFIG_DIR > $XDG_CONFIG_HOME/inkling > ~/.config/inkling
func ConfigDir() string {
	if dir := os.Getenv("INKLING_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "inkling")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "inkling-config")
	}
	return filepath.Join(home, ".config", "inkling")
}

// ConfigPaths returns the candidate config file paths, in order of preference.
func ConfigPaths() []string {
	dir := ConfigDir()
	return []string{
		filepath.Join(dir, "config.json"),
		filepath.Join(dir, "config.toml"),
	}
}

// PromptPath returns the custom system prompt path.
func PromptPath() string {
	return filepath.Join(ConfigDir(), "prompt.md")
}

// StorePath returns the path of the persisted key/value store.
func StorePath() string {
	return filepath.Join(ConfigDir(), "store.toml")
}

// SocketPath returns the daemon socket path.
// Resolution order: $INKLING_SOCKET > $XDG_RUNTIME_DIR/inkling.sock > /tmp/inkling-<uid>.sock
func SocketPath() string {
	if path := os.Getenv("INKLING_SOCKET"); path != "" {
		return path
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "inkling.sock")
	}
	return fmt.Sprintf("/tmp/inkling-%d.sock", os.Getuid())
}

// DefaultConfig returns the default configuration from the embedded default_config.json.
func DefaultConfig() *Config {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults.DefaultConfigJSON), kjson.Parser()); err != nil {
		panic("inkling: invalid embedded default_config.json: " + err.Error())
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		panic("inkling: invalid embedded default_config.json: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads the first config file found in ConfigDir over the
// embedded defaults. Keys missing from the file keep their default value.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults.DefaultConfigJSON), kjson.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	for _, path := range ConfigPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		var parser koanf.Parser = kjson.Parser()
		if strings.HasSuffix(path, ".toml") {
			parser = ktoml.Parser()
		}
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		break
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if ResolveModel(cfg) == "" {
		warnings = append(warnings, "generation.model is empty; the completion service will reject requests")
	}
	if base := ResolveBaseURL(cfg); base != "" && !strings.HasPrefix(base, "https://") {
		warnings = append(warnings, "generation.base_url is not https; the API key will be sent in clear text")
	}
	if t := cfg.Generation.Temperature; t < 0 || t > 2 {
		warnings = append(warnings, fmt.Sprintf("generation.temperature %.2f is outside [0, 2]", t))
	}
	if cfg.Debug.DelayMillis < 0 {
		warnings = append(warnings, "debug.delay_ms is negative; the debug response will return immediately")
	}
	return warnings
}

// ResolveBaseURL returns the completion service base URL.
// Priority: $INKLING_BASE_URL env > config value.
func ResolveBaseURL(cfg *Config) string {
	if url := os.Getenv("INKLING_BASE_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	if cfg != nil {
		return strings.TrimRight(cfg.Generation.BaseURL, "/")
	}
	return ""
}

// ResolveModel returns the completion model name.
// Priority: $INKLING_MODEL env > config value.
func ResolveModel(cfg *Config) string {
	if model := os.Getenv("INKLING_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Generation.Model
	}
	return ""
}

// ResolveAPIKey returns the completion service API key.
// Priority: $INKLING_API_KEY env > stored value.
func ResolveAPIKey(store Values) string {
	if key := os.Getenv("INKLING_API_KEY"); key != "" {
		return key
	}
	if store != nil {
		return strings.TrimSpace(store.Get(KeyAPIKey))
	}
	return ""
}

// DebugEnabled reports whether the offline debug response is switched on.
// Only the literal "true" enables it.
// Priority: $INKLING_DEBUG env > stored value.
func DebugEnabled(store Values) bool {
	if v, ok := os.LookupEnv("INKLING_DEBUG"); ok {
		return v == "true"
	}
	if store != nil {
		return store.Get(KeyDebug) == "true"
	}
	return false
}
