package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/lazypower/lexloop/internal/priority"
)

// Config holds all lexloop configuration.
type Config struct {
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Speech   SpeechConfig   `toml:"speech"`
	Render   RenderConfig   `toml:"render"`
	Server   ServerConfig   `toml:"server"`
}

type SessionConfig struct {
	StatePath      string `toml:"state_path"`      // weights snapshot, default ~/.lexloop/weights.json
	Vocabulary     string `toml:"vocabulary"`      // word file; empty uses the built-in lists
	MaxRepetitions int    `toml:"max_repetitions"` // initial weight is 2^max_repetitions
	Interval       string `toml:"interval"`        // pause between exposures, e.g. "2m"
	MaxExposures   int    `toml:"max_exposures"`   // 0 = until mastered

	// MaxConsecutiveFailures stops a session after this many generation
	// failures in a row. 0 keeps retrying.
	MaxConsecutiveFailures int `toml:"max_consecutive_failures"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LLMConfig struct {
	Provider     string `toml:"provider"` // "claude-cli", "anthropic", "ollama"
	Model        string `toml:"model"`
	OllamaURL    string `toml:"ollama_url"`
	OllamaModel  string `toml:"ollama_model"` // e.g. "llama3.2"
	AnthropicKey string `toml:"anthropic_key"`
}

type SpeechConfig struct {
	Enabled bool              `toml:"enabled"`
	Command string            `toml:"command"` // "espeak-ng" or "say"
	Rate    int               `toml:"rate"`    // words per minute when a language has no entry in rates
	Voices  map[string]string `toml:"voices"`  // language tag → voice name
	Rates   map[string]int    `toml:"rates"`   // language tag → words per minute
}

type RenderConfig struct {
	Enabled  bool   `toml:"enabled"`
	Output   string `toml:"output"`   // PNG path, empty disables the file
	Terminal bool   `toml:"terminal"` // print a styled card to stdout
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Session: SessionConfig{
			StatePath:      "", // resolved at runtime via priority.DefaultStatePath()
			MaxRepetitions: 3,
			Interval:       "2m",
		},
		LLM: LLMConfig{
			Provider: "ollama",
		},
		Speech: SpeechConfig{
			Enabled: true,
			Command: "espeak-ng",
			Rate:    175,
			Voices: map[string]string{
				"de": "de",
				"en": "en-us",
			},
			Rates: map[string]int{
				"de": 145,
			},
		},
		Render: RenderConfig{
			Enabled:  true,
			Terminal: true,
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
	}
}

// DefaultPath returns the default config file path: ~/.lexloop/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".lexloop", "config.toml"), nil
}

// Load reads the TOML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if p := os.Getenv("LEXLOOP_STATE"); p != "" {
		c.Session.StatePath = p
	}
	if p := os.Getenv("LEXLOOP_DB"); p != "" {
		c.Database.Path = p
	}
	// ANTHROPIC_API_KEY switches the provider, same as an explicit config.
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.Provider = "anthropic"
		c.LLM.AnthropicKey = key
	}
}

// Validate checks values that would otherwise fail deep inside the loop.
func (c *Config) Validate() error {
	if c.Session.MaxRepetitions < 0 || c.Session.MaxRepetitions > priority.MaxRepetitions {
		return fmt.Errorf("session.max_repetitions %d out of range [0, %d]", c.Session.MaxRepetitions, priority.MaxRepetitions)
	}
	if _, err := c.IntervalDuration(); err != nil {
		return err
	}
	if c.Session.MaxExposures < 0 {
		return fmt.Errorf("session.max_exposures %d must not be negative", c.Session.MaxExposures)
	}
	if c.Session.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("session.max_consecutive_failures %d must not be negative", c.Session.MaxConsecutiveFailures)
	}
	return nil
}

// IntervalDuration parses Session.Interval. Empty means no pause.
func (c *Config) IntervalDuration() (time.Duration, error) {
	if c.Session.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Session.Interval)
	if err != nil {
		return 0, fmt.Errorf("session.interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("session.interval %s must not be negative", d)
	}
	return d, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
