package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deutschbot/deutschbot/internal/console"
)

// consoleUserID identifies the local player in the event log.
const consoleUserID = 0

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Practice in the terminal instead of Telegram",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}

		// The TUI owns the terminal, so logs go to a file beside the database.
		logPath := filepath.Join(filepath.Dir(dbPath), "play.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logger := newLogger(f, cfg.Log)
		slog.SetDefault(logger)

		a, err := openApp(cmd, logger)
		if err != nil {
			return err
		}
		defer a.close()

		return console.Run(cmd.Context(), a.machine, consoleUserID)
	},
}

func init() {
	playCmd.Flags().Bool("offline", false, "Answer with canned content instead of calling an LLM")
}
