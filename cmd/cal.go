package cmd

import (
	"fmt"

	"github.com/theirongolddev/quitc/internal/cli"
	"github.com/theirongolddev/quitc/internal/stats"

	"github.com/spf13/cobra"
)

var calCmd = &cobra.Command{
	Use:     "cal",
	Aliases: []string{"calendar"},
	Short:   "Month calendar of logged days",
	Args:    cobra.NoArgs,
	RunE:    runCal,
}

func init() {
	rootCmd.AddCommand(calCmd)
}

func runCal(cmd *cobra.Command, _ []string) error {
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

	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderCalendar(month, stats.MonthGrid(days, month, today)))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s  %s tokens left  %s success  %s streak\n",
		cli.FormatMonthDelta(month, today.MonthOf()),
		cli.FormatTokens(stats.TokensLeft(days, month)),
		cli.FormatPercent(stats.SuccessRate(days, month, today, s.cfg.Policy())),
		cli.FormatDays(stats.CurrentStreak(days, today)),
	)
	return nil
}
