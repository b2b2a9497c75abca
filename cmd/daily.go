package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/quitc/internal/cli"
	"github.com/theirongolddev/quitc/internal/stats"

	"github.com/spf13/cobra"
)

var flagTrendMonths int

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Day-by-day log for a month",
	Args:  cobra.NoArgs,
	RunE:  runDaily,
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Success rate month by month",
	Args:  cobra.NoArgs,
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().IntVarP(&flagTrendMonths, "months", "n", 12, "Number of months ending at --month")
	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(trendCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	month, err := s.month()
	if err != nil {
		return err
	}

	days := s.ledger.Snapshot()
	today := s.clock.Today()
	out := cmd.OutOrStdout()

	last := month.Last()
	if month.Contains(today) {
		last = today
	}
	if month.First().After(today) {
		fmt.Fprintf(out, "\n  %s has not started yet.\n", month.Title())
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("DAILY LOG  %s", month.Title())))
	fmt.Fprintln(out)

	rows := make([][]string, 0, last.Day)
	for d := month.First(); !d.After(last); d = d.AddDays(1) {
		status, marked := days[d]
		rows = append(rows, []string{
			d.String(),
			cli.FormatDayOfWeek(int(d.Weekday())),
			cli.FormatStatus(status, marked),
		})
	}

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Status"},
		Rows:    rows,
	}))
	return nil
}

func runTrend(cmd *cobra.Command, _ []string) error {
	if flagTrendMonths < 1 {
		return errors.New("--months must be at least 1")
	}

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
	trend := stats.Trend(s.ledger.Snapshot(), month, flagTrendMonths, today, s.cfg.Policy())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("TREND  Last %d months", flagTrendMonths)))
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(trend))
	for i := len(trend) - 1; i >= 0; i-- {
		mr := trend[i]
		if mr.Month.After(today.MonthOf()) {
			continue
		}
		rows = append(rows, []string{
			mr.Month.Title(),
			cli.FormatNumber(int64(mr.CleanDays)),
			cli.FormatNumber(int64(mr.TokensUsed)),
			cli.RenderProgressBar(mr.SuccessRate, 20),
		})
	}

	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"Month", "Clean", "Tokens", "Success"},
		Rows:    rows,
	}))
	return nil
}
