package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deutschbot/deutschbot/internal/llm"
	"github.com/deutschbot/deutschbot/internal/store"
)

// shortID is how many characters of a session id the tables show. Any
// prefix works as a --session filter.
const shortID = 8

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the bot's LLM calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := eventFilter(cmd)
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Purpose, _ = cmd.Flags().GetString("purpose")

		return withEvents(cmd, func(ctx context.Context, repo store.EventRepo) error {
			events, err := repo.QueryLLMEvents(ctx, opts)
			if err != nil {
				return err
			}
			printLLMEvents(cmd.OutOrStdout(), events)
			return nil
		})
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}
		return withEvents(cmd, func(ctx context.Context, repo store.EventRepo) error {
			e, err := repo.GetLLMEvent(ctx, id)
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("event %d not found", id)
			}
			printLLMEvent(cmd.OutOrStdout(), e)
			return nil
		})
	},
}

var llmSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show LLM usage per chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := eventFilter(cmd)
		opts.Limit, _ = cmd.Flags().GetInt("limit")

		return withEvents(cmd, func(ctx context.Context, repo store.EventRepo) error {
			usage, err := repo.LLMUsageBySession(ctx, opts)
			if err != nil {
				return err
			}
			printSessionUsage(cmd.OutOrStdout(), usage)
			return nil
		})
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per purpose and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEvents(cmd, func(ctx context.Context, repo store.EventRepo) error {
			byPurpose, err := repo.LLMUsageByPurpose(ctx)
			if err != nil {
				return err
			}
			byModel, err := repo.LLMUsageByModel(ctx)
			if err != nil {
				return err
			}
			printUsage(cmd.OutOrStdout(), byPurpose, byModel)
			return nil
		})
	},
}

// withEvents opens the event store for the duration of fn.
func withEvents(cmd *cobra.Command, fn func(context.Context, store.EventRepo) error) error {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer s.Close()
	return fn(cmd.Context(), s.EventRepo())
}

// eventFilter reads the --session and --since flags.
func eventFilter(cmd *cobra.Command) store.QueryOpts {
	var opts store.QueryOpts
	opts.SessionID, _ = cmd.Flags().GetString("session")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		opts.Since = time.Now().Add(-since)
	}
	return opts
}

func printLLMEvents(w io.Writer, events []store.LLMEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No LLM calls found.")
		return
	}
	fmt.Fprintf(w, "%-5s  %-19s  %-8s  %-13s  %-24s  %6s  %5s  %6s  %s\n",
		"ID", "Time", "Session", "Purpose", "Model", "In", "Out", "Ms", "OK")
	fmt.Fprintln(w, strings.Repeat("─", 100))
	for _, e := range events {
		ok := "✓"
		if !e.Success {
			ok = "✗"
		}
		fmt.Fprintf(w, "%-5d  %-19s  %-8s  %-13s  %-24s  %6d  %5d  %6d  %s\n",
			e.ID,
			e.Timestamp.Local().Format(time.DateTime),
			orDash(truncate(e.SessionID, shortID)),
			e.Purpose,
			truncate(e.Model, 24),
			e.InputTokens, e.OutputTokens, e.LatencyMs, ok,
		)
	}
}

func printLLMEvent(w io.Writer, e *store.LLMEvent) {
	fmt.Fprintf(w, "ID:        %d (sequence %d)\n", e.ID, e.Sequence)
	fmt.Fprintf(w, "Time:      %s\n", e.Timestamp.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Session:   %s\n", orDash(e.SessionID))
	fmt.Fprintf(w, "Purpose:   %s\n", e.Purpose)
	fmt.Fprintf(w, "Model:     %s via %s\n", e.Model, e.Provider)
	fmt.Fprintf(w, "Tokens:    %d in / %d out, %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
	if !e.Success {
		fmt.Fprintf(w, "Error:     %s\n", e.ErrorMessage)
	}
	section(w, "REQUEST", e.RequestBody)
	section(w, "RESPONSE", e.ResponseBody)
}

// section prints body under a title, indenting it when it is JSON.
func section(w io.Writer, title, body string) {
	sep := strings.Repeat("─", 60)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", sep, title, sep)
	if body == "" {
		fmt.Fprintln(w, "(not captured)")
		return
	}
	var buf bytes.Buffer
	if json.Indent(&buf, []byte(body), "", "  ") == nil {
		body = buf.String()
	}
	fmt.Fprintln(w, body)
}

func printSessionUsage(w io.Writer, usage []store.SessionUsage) {
	if len(usage) == 0 {
		fmt.Fprintln(w, "No sessions recorded yet.")
		return
	}
	fmt.Fprintf(w, "%-8s  %-16s  %8s  %6s  %6s  %9s  %9s\n",
		"Session", "Last active", "Duration", "Calls", "Failed", "In", "Out")
	fmt.Fprintln(w, strings.Repeat("─", 76))
	for _, u := range usage {
		fmt.Fprintf(w, "%-8s  %-16s  %8s  %6d  %6d  %9d  %9d\n",
			truncate(u.SessionID, shortID),
			u.Last.Local().Format("2006-01-02 15:04"),
			u.Last.Sub(u.First).Round(time.Second),
			u.Calls, u.Failures, u.InputTokens, u.OutputTokens,
		)
	}
}

func printUsage(w io.Writer, byPurpose []store.PurposeUsage, byModel []store.ModelUsage) {
	if len(byPurpose) == 0 {
		fmt.Fprintln(w, "No LLM usage recorded yet.")
		return
	}

	fmt.Fprintln(w, "Usage by purpose")
	fmt.Fprintln(w, strings.Repeat("─", 64))
	var calls, in, out int
	for _, u := range byPurpose {
		fmt.Fprintf(w, "%-14s  %6d calls  %9d in  %8d out  %6dms avg\n",
			u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		calls += u.Calls
		in += u.InputTokens
		out += u.OutputTokens
	}
	fmt.Fprintf(w, "%-14s  %6d calls  %9d in  %8d out\n", "total", calls, in, out)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Estimated cost (USD)")
	fmt.Fprintln(w, strings.Repeat("─", 64))
	var total float64
	var unpriced []string
	for _, u := range byModel {
		cost := llm.LookupCost(u.Model)
		if cost == nil {
			unpriced = append(unpriced, u.Model)
			fmt.Fprintf(w, "%-32s  %6d calls  %10s\n", truncate(u.Model, 32), u.Calls, "?")
			continue
		}
		c := cost.Cost(u.InputTokens, u.OutputTokens)
		total += c
		fmt.Fprintf(w, "%-32s  %6d calls  %10s\n", truncate(u.Model, 32), u.Calls, formatCost(c))
	}
	label := "total"
	if len(unpriced) > 0 {
		label = "total (priced models only)"
	}
	fmt.Fprintf(w, "%-32s  %12s  %10s\n", label, "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	for _, c := range []*cobra.Command{llmListCmd, llmSessionsCmd} {
		c.Flags().IntP("limit", "n", 20, "Number of rows to show")
		c.Flags().StringP("session", "s", "", "Only this session (id or prefix)")
		c.Flags().Duration("since", 0, "Only calls within this long ago, e.g. 24h")
	}
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (sentence-gen, evaluation, tutor, situation, scene, narrator, character, grammar-check)")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmSessionsCmd, llmStatsCmd)
}
