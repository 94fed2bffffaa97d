package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory with no vendor keys set.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 3, cfg.NarratorThreshold)
	assert.Equal(t, 60, cfg.Telegram.PollTimeout)
	assert.Empty(t, cfg.Telegram.Whitelist)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Empty(t, cfg.HTTPAddr)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("DEUTSCHBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("DEUTSCHBOT_USERNAME_WHITELIST", "anna, @bohdan ,,")
	t.Setenv("DEUTSCHBOT_LOG_LEVEL", "debug")
	t.Setenv("DEUTSCHBOT_SESSION_IDLE_TIMEOUT", "45m")
	t.Setenv("DEUTSCHBOT_ROLEPLAY_NARRATOR_THRESHOLD", "5")
	t.Setenv("DEUTSCHBOT_HTTP_ADDR", ":9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, []string{"anna", "bohdan"}, cfg.Telegram.Whitelist)
	assert.Equal(t, 45*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 5, cfg.NarratorThreshold)
	assert.Equal(t, ":9090", cfg.HTTPAddr)

	lvl, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
	assert.NoError(t, cfg.ValidateTelegram())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DEUTSCHBOT_TELEGRAM_TOKEN", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-test\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
}

func TestLoad_ExplicitProviderOverridesDiscovery(t *testing.T) {
	isolate(t)
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("DEUTSCHBOT_LLM_PROVIDER", "anthropic")
	t.Setenv("DEUTSCHBOT_ANTHROPIC_API_KEY", "a-key")
	t.Setenv("DEUTSCHBOT_ANTHROPIC_MODEL", "claude-test")
	t.Setenv("DEUTSCHBOT_LLM_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "a-key", cfg.LLM.Anthropic.APIKey)
	assert.Equal(t, "claude-test", cfg.LLM.Anthropic.Model)
	assert.Equal(t, "g-key", cfg.LLM.Gemini.APIKey)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.NoError(t, cfg.LLM.Validate())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bot.yaml")
	yaml := `
log:
  format: json
username_whitelist:
  - anna
  - "@olena"
telegram:
  burst: 2
session:
  sweep_interval: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"anna", "olena"}, cfg.Telegram.Whitelist)
	assert.Equal(t, 2, cfg.Telegram.Burst)
	assert.Equal(t, 30*time.Second, cfg.Session.SweepInterval)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad level", map[string]string{"DEUTSCHBOT_LOG_LEVEL": "loud"}},
		{"bad format", map[string]string{"DEUTSCHBOT_LOG_FORMAT": "xml"}},
		{"zero idle", map[string]string{"DEUTSCHBOT_SESSION_IDLE_TIMEOUT": "0s"}},
		{"zero threshold", map[string]string{"DEUTSCHBOT_ROLEPLAY_NARRATOR_THRESHOLD": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateTelegram_RequiresToken(t *testing.T) {
	isolate(t)
	t.Setenv("DEUTSCHBOT_TELEGRAM_TOKEN", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Error(t, cfg.ValidateTelegram())
}
