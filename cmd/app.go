package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/deutschbot/deutschbot/internal/exercise"
	"github.com/deutschbot/deutschbot/internal/llm"
	"github.com/deutschbot/deutschbot/internal/offline"
	"github.com/deutschbot/deutschbot/internal/progress"
	"github.com/deutschbot/deutschbot/internal/roleplay"
	"github.com/deutschbot/deutschbot/internal/session"
	"github.com/deutschbot/deutschbot/internal/store"
)

// app holds the dependencies shared by the serve and play commands.
type app struct {
	store    *store.Store
	sessions *session.Store
	machine  *session.Machine
	logger   *slog.Logger
}

// openApp opens the store and builds the conversation machine. The caller
// must call close.
func openApp(cmd *cobra.Command, logger *slog.Logger) (*app, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	offlineMode, _ := cmd.Flags().GetBool("offline")
	provider, err := newProvider(cmd.Context(), cfg.LLM, offlineMode, st.EventRepo(), logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	sessions := session.NewStore()
	return &app{
		store:    st,
		sessions: sessions,
		machine:  newMachine(provider, sessions, st.EventRepo(), cfg.NarratorThreshold, logger),
		logger:   logger,
	}, nil
}

func (a *app) close() {
	a.sessions.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Error("close store", "error", err)
	}
}

// newProvider returns the configured LLM provider, or canned offline replies
// when offline is set or the provider is "mock".
func newProvider(ctx context.Context, lc llm.Config, offlineMode bool, events store.EventRepo, logger *slog.Logger) (llm.Provider, error) {
	if offlineMode || lc.Provider == "mock" {
		lc.Provider = "offline"
		logger.Info("using offline replies")
		return llm.Wrap(offline.NewProvider(), lc, events, logger), nil
	}
	if err := lc.Validate(); err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	p, err := llm.NewProvider(ctx, lc, events, logger)
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	logger.Info("LLM provider ready", "provider", lc.Provider)
	return p, nil
}

func newMachine(p llm.Provider, sessions *session.Store, events store.EventRepo, narratorThreshold int, logger *slog.Logger) *session.Machine {
	ecfg := exercise.DefaultConfig()
	rcfg := roleplay.DefaultConfig()
	if narratorThreshold > 0 {
		rcfg.NarratorThreshold = narratorThreshold
	}
	pcfg := progress.DefaultConfig()

	character := roleplay.NewCharacter(p, rcfg)
	orchestrator := roleplay.NewOrchestrator(
		roleplay.NewNarrator(p, rcfg),
		character,
		roleplay.NewGrammarChecker(p, rcfg),
		rcfg, pcfg, logger,
	)

	return session.NewMachine(sessions, session.Config{
		Generator: exercise.NewGenerator(p, ecfg),
		Evaluator: exercise.NewEvaluator(p, ecfg),
		Tutor:     exercise.NewTutor(p, ecfg),
		Director:  roleplay.NewDirector(p, character, rcfg),
		Roleplay:  orchestrator,
		Events:    events,
		Progress:  pcfg,
		Logger:    logger,
	})
}
