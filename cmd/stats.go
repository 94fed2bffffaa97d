package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deutschbot/deutschbot/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation accuracy per level and tense",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		var opts store.QueryOpts
		opts.SessionID, _ = cmd.Flags().GetString("session")
		if days > 0 {
			opts.Since = time.Now().AddDate(0, 0, -days)
		}
		rows, err := s.EventRepo().ExerciseStats(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query stats: %w", err)
		}
		if len(rows) == 0 {
			fmt.Println("No exercises recorded yet.")
			return nil
		}

		fmt.Printf("%-6s  %-26s  %6s  %7s  %8s\n", "Level", "Tense", "Total", "Correct", "Accuracy")
		fmt.Println(strings.Repeat("─", 60))

		var total, correct int
		for _, r := range rows {
			fmt.Printf("%-6s  %-26s  %6d  %7d  %7.0f%%\n",
				r.Level, truncate(r.Tense, 26), r.Total, r.Correct, r.Accuracy()*100)
			total += r.Total
			correct += r.Correct
		}

		fmt.Println(strings.Repeat("─", 60))
		overall := store.TenseStats{Total: total, Correct: correct}
		fmt.Printf("%-6s  %-26s  %6d  %7d  %7.0f%%\n", "TOTAL", "", total, correct, overall.Accuracy()*100)
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("days", 0, "Only count exercises from the last N days (0 means all)")
	statsCmd.Flags().StringP("session", "s", "", "Only this session (id or prefix, see llm sessions)")
}
