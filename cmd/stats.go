package cmd

import (
	"fmt"

	"github.com/theirongolddev/quitc/internal/cli"
	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/stats"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Success rate, tokens and streaks for a month",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	month, err := s.month()
	if err != nil {
		return err
	}

	today := s.clock.Today()
	sum := stats.Summarize(s.ledger.Snapshot(), month, today, s.cfg.Policy())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("QUITC  %s", month.Title())))
	fmt.Fprintln(out)

	if month.After(today.MonthOf()) {
		fmt.Fprintf(out, "  %s has not started yet.\n", month.Title())
		return nil
	}

	rows := [][]string{
		{"Days passed", cli.FormatDays(sum.DaysPassed)},
		{"Clean days", cli.FormatDays(sum.CleanDays)},
		{"Tokens used", fmt.Sprintf("%d / %d", sum.TokensUsed, model.MaxTokensPerMonth)},
		{"Tokens left", cli.FormatTokens(sum.TokensLeft)},
		{"Failed days", cli.FormatDays(sum.FailedDays)},
		{"Success rate", cli.RenderProgressBar(sum.SuccessRate, 20)},
		{"---"},
		{"Current streak", cli.FormatDays(sum.CurrentStreak)},
		{"Longest streak", cli.FormatDays(sum.LongestStreak)},
		{"---"},
		{fmt.Sprintf("Clean in %d", month.Year), cli.FormatDays(sum.YearCleanDays)},
		{"Clean all time", cli.FormatDays(sum.TotalCleanDays)},
		{"Tokens all time", cli.FormatNumber(int64(sum.TotalTokens))},
	}

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if at, err := s.backend.SavedAt(cmd.Context()); err == nil && !at.IsZero() {
		fmt.Fprintf(out, "\n  Last saved %s to %s\n", at.Local().Format("2006-01-02 15:04"), s.backend.Path())
	}
	if s.cfg.Stats.HeartCountsAsSuccess {
		fmt.Fprintln(out, "\n  Success rate counts ♥ token days as successful.")
	}
	if _, logged := s.ledger.Status(today); !logged && month.Contains(today) {
		fmt.Fprintln(out, "\n  Today is not logged yet: quitc mark clean")
	}
	return nil
}
