package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/quitc/internal/cli"
	"github.com/theirongolddev/quitc/internal/ledger"
	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/stats"

	"github.com/spf13/cobra"
)

var errNoTokens = errors.New("no ♥ tokens left this month")

var flagDate string

var markCmd = &cobra.Command{
	Use:       "mark clean|heart",
	Short:     "Log a day as clean or spend a ♥ token on it",
	Example:   "  quitc mark clean\n  quitc mark heart --date yesterday",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"clean", "heart"},
	RunE:      runMark,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the log entry for a day",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	for _, c := range []*cobra.Command{markCmd, clearCmd} {
		c.Flags().StringVar(&flagDate, "date", "", "Day to change: YYYY-MM-DD, today or yesterday (default today)")
		rootCmd.AddCommand(c)
	}
}

func runMark(cmd *cobra.Command, args []string) error {
	status, err := model.ParseStatus(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	date, err := s.date(flagDate)
	if err != nil {
		return err
	}

	result, err := s.ledger.SetStatus(cmd.Context(), date, status)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	month := date.MonthOf()
	left := stats.TokensLeft(s.ledger.Snapshot(), month)
	label := cli.FormatStatus(status, true)

	switch result {
	case ledger.Applied:
		fmt.Fprintf(out, "  Marked %s %s. %s tokens left in %s.\n", date, label, cli.FormatTokens(left), month.Title())
		if status == model.StatusClean {
			streak := stats.CurrentStreak(s.ledger.Snapshot(), s.clock.Today())
			fmt.Fprintf(out, "  Current streak: %s\n", cli.FormatDays(streak))
		}
	case ledger.Unchanged:
		fmt.Fprintf(out, "  %s is already %s.\n", date, label)
	case ledger.Rejected:
		fmt.Fprintf(out, "  All %d tokens of %s are spent; %s was not changed.\n", model.MaxTokensPerMonth, month.Title(), date)
		return errNoTokens
	}
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	date, err := s.date(flagDate)
	if err != nil {
		return err
	}

	result, err := s.ledger.Clear(cmd.Context(), date)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result == ledger.Unchanged {
		fmt.Fprintf(out, "  %s was not logged.\n", date)
		return nil
	}
	fmt.Fprintf(out, "  Cleared %s.\n", date)
	return nil
}
