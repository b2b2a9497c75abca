package cmd

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var flagResetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every logged day",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&flagResetYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	out := cmd.OutOrStdout()
	n := len(s.ledger.Snapshot())

	if !flagResetYes {
		confirmed := false
		err := huh.NewConfirm().
			Title("Reset all data?").
			Description(fmt.Sprintf("This deletes %d logged days from %s.", n, s.backend.Path())).
			Affirmative("Reset").
			Negative("Keep").
			Value(&confirmed).
			Run()
		if err != nil {
			return fmt.Errorf("confirmation: %w", err)
		}
		if !confirmed {
			fmt.Fprintln(out, "  Nothing changed.")
			return nil
		}
	}

	if err := s.ledger.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(out, "  Deleted %d logged days.\n", n)
	return nil
}
