package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deutschbot/deutschbot/internal/chat"
	"github.com/deutschbot/deutschbot/internal/config"
	"github.com/deutschbot/deutschbot/internal/llm"
	"github.com/deutschbot/deutschbot/internal/session"
)

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "WARN", line["level"])
}

func TestNewProvider_MissingKey(t *testing.T) {
	lc := llm.DefaultConfig()
	lc.Provider = "anthropic"
	_, err := newProvider(context.Background(), lc, false, nil, quiet())
	assert.ErrorContains(t, err, "not configured")
}

func TestNewProvider_MockMeansOffline(t *testing.T) {
	lc := llm.DefaultConfig()
	lc.Provider = "mock"
	p, err := newProvider(context.Background(), lc, false, nil, quiet())
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestMachine_OfflineStart(t *testing.T) {
	p, err := newProvider(context.Background(), llm.DefaultConfig(), true, nil, quiet())
	require.NoError(t, err)

	sessions := session.NewStore()
	defer sessions.Close()
	m := newMachine(p, sessions, nil, 2, quiet())

	rec := chat.NewRecorder()
	require.NoError(t, m.Handle(context.Background(), 1, rec, "/start"))
	assert.NotEmpty(t, rec.Visible())
	assert.Equal(t, 1, sessions.Len())
}
