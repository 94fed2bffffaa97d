package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/deutschbot/deutschbot/internal/server"
	"github.com/deutschbot/deutschbot/internal/session"
	"github.com/deutschbot/deutschbot/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateTelegram(); err != nil {
			return err
		}
		logger := slog.Default()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		a, err := openApp(cmd, logger)
		if err != nil {
			return err
		}
		defer a.close()

		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("connect to telegram: %w", err)
		}
		logger.Info("authorized", "bot", bot.Self.UserName)

		dispatcher := telegram.NewDispatcher(bot, a.machine, telegram.Options{
			Whitelist: cfg.Telegram.Whitelist,
			QueueSize: cfg.Telegram.QueueSize,
			Limiter:   rate.NewLimiter(rate.Limit(cfg.Telegram.RatePerSecond), cfg.Telegram.Burst),
			Logger:    logger.With("component", "telegram"),
		})

		janitor := session.NewJanitor(a.sessions, cfg.Session.SweepInterval, cfg.Session.IdleTimeout, logger)
		janitor.Start(ctx)
		defer janitor.Stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			dispatcher.Run(gctx, telegram.Poll(gctx, bot, cfg.Telegram.PollTimeout))
			return nil
		})
		if cfg.HTTPAddr != "" {
			h := server.NewHandler(a.store, a.sessions, a.store.EventRepo(), logger)
			srv := server.New(cfg.HTTPAddr, h, logger.With("component", "http"))
			g.Go(func() error { return srv.Run(gctx) })
		}

		logger.Info("bot running", "whitelist", len(cfg.Telegram.Whitelist))
		err = g.Wait()
		logger.Info("shutting down", "sessions", a.sessions.Len())
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().Bool("offline", false, "Answer with canned content instead of calling an LLM")
}
