package cmd

import (
	"fmt"

	"github.com/theirongolddev/quitc/internal/config"
	"github.com/theirongolddev/quitc/internal/tui"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	Args:  cobra.NoArgs,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := config.Load()

	vals := tui.NewSetupValues(cfg)
	if err := tui.NewSetupForm(vals).Run(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	vals.Apply(&cfg)

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Saved to %s\n", config.Path())
	fmt.Fprintln(out, "  Run `quitc setup` anytime to reconfigure.")
	fmt.Fprintln(out)
	return nil
}
