// Package config loads bot settings from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/deutschbot/deutschbot/internal/llm"
)

// EnvPrefix prefixes every environment variable the bot reads.
const EnvPrefix = "DEUTSCHBOT"

// Config holds all application configuration.
type Config struct {
	Telegram TelegramConfig
	LLM      llm.Config
	Session  SessionConfig
	Log      LogConfig

	// DBPath is the SQLite event log. Empty means the XDG default.
	DBPath string

	// HTTPAddr enables the admin endpoint when set, e.g. ":8080".
	HTTPAddr string

	// NarratorThreshold is the number of user messages between narrator
	// events in a roleplay.
	NarratorThreshold int
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token string

	// Whitelist lists usernames allowed to talk to the bot. Empty allows
	// everyone.
	Whitelist []string

	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int

	// RatePerSecond and Burst bound outbound API calls.
	RatePerSecond float64
	Burst         int

	// QueueSize is the per-chat backlog of updates.
	QueueSize int
}

// SessionConfig controls idle session cleanup.
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return l, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	return l, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("http_addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.rate_per_second", 25.0)
	v.SetDefault("telegram.burst", 5)
	v.SetDefault("telegram.queue_size", 16)
	v.SetDefault("session.idle_timeout", 2*time.Hour)
	v.SetDefault("session.sweep_interval", 10*time.Minute)
	v.SetDefault("roleplay.narrator_threshold", 3)
}

// Load reads configuration. A .env file in the working directory is
// applied first if present. configPath names a YAML file; when empty,
// config.yaml is looked up in the working directory and ignored if absent.
// Environment variables (DEUTSCHBOT_*) override the file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:         v.GetString("telegram.token"),
			Whitelist:     stringList(v.Get("username_whitelist")),
			PollTimeout:   v.GetInt("telegram.poll_timeout"),
			RatePerSecond: v.GetFloat64("telegram.rate_per_second"),
			Burst:         v.GetInt("telegram.burst"),
			QueueSize:     v.GetInt("telegram.queue_size"),
		},
		LLM: loadLLM(v),
		Session: SessionConfig{
			IdleTimeout:   v.GetDuration("session.idle_timeout"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		DBPath:            v.GetString("db"),
		HTTPAddr:          v.GetString("http_addr"),
		NarratorThreshold: v.GetInt("roleplay.narrator_threshold"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadLLM starts from the vendor key discovery and lets explicit
// DEUTSCHBOT_* settings override it.
func loadLLM(v *viper.Viper) llm.Config {
	cfg, ok := llm.DiscoverConfig()
	if !ok {
		cfg = llm.DefaultConfig()
	}

	override(&cfg.Provider, v.GetString("llm.provider"))
	override(&cfg.Anthropic.APIKey, v.GetString("anthropic.api_key"))
	override(&cfg.Anthropic.Model, v.GetString("anthropic.model"))
	override(&cfg.Anthropic.BaseURL, v.GetString("anthropic.base_url"))
	override(&cfg.OpenAI.APIKey, v.GetString("openai.api_key"))
	override(&cfg.OpenAI.Model, v.GetString("openai.model"))
	override(&cfg.OpenAI.BaseURL, v.GetString("openai.base_url"))
	override(&cfg.Gemini.APIKey, v.GetString("gemini.api_key"))
	override(&cfg.Gemini.Model, v.GetString("gemini.model"))
	override(&cfg.OpenRouter.APIKey, v.GetString("openrouter.api_key"))
	override(&cfg.OpenRouter.Model, v.GetString("openrouter.model"))
	override(&cfg.OpenRouter.BaseURL, v.GetString("openrouter.base_url"))

	if d := v.GetDuration("llm.timeout"); d > 0 {
		cfg.Timeout = d
	}
	if n := v.GetInt("llm.retry_attempts"); n > 0 {
		cfg.Retry.MaxAttempts = n
	}
	return cfg
}

func override(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

// stringList accepts a YAML list or a comma separated string.
func stringList(raw any) []string {
	var items []string
	if s, ok := raw.(string); ok {
		items = strings.Split(s, ",")
	} else {
		items = cast.ToStringSlice(raw)
	}
	var out []string
	for _, it := range items {
		it = strings.TrimPrefix(strings.TrimSpace(it), "@")
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}

// Validate checks settings shared by every command. The Telegram token is
// checked by ValidateTelegram since local play does not need it.
func (c *Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session idle timeout must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session sweep interval must be positive")
	}
	if c.NarratorThreshold < 1 {
		return fmt.Errorf("narrator threshold must be at least 1, got %d", c.NarratorThreshold)
	}
	return nil
}

// ValidateTelegram checks the settings the Telegram transport needs.
func (c *Config) ValidateTelegram() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%s_TELEGRAM_TOKEN is required", EnvPrefix)
	}
	if c.Telegram.RatePerSecond <= 0 || c.Telegram.Burst < 1 {
		return fmt.Errorf("telegram rate limit must be positive")
	}
	if c.Telegram.QueueSize < 1 {
		return fmt.Errorf("telegram queue size must be at least 1")
	}
	return nil
}
