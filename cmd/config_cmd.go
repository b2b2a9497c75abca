package cmd

import (
	"fmt"

	"github.com/theirongolddev/quitc/internal/config"
	"github.com/theirongolddev/quitc/internal/store"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Fprintln(out, "  Status: loaded")
	} else {
		fmt.Fprintln(out, "  Status: using defaults (no config file)")
	}
	fmt.Fprintln(out)

	dataDir := config.DataDir(cfg)
	if dataDir == "" {
		dataDir = store.DefaultDataDir()
	}
	timezone := cfg.General.Timezone
	if timezone == "" {
		timezone = "local"
	}

	fmt.Fprintln(out, "  [General]")
	fmt.Fprintf(out, "    Data directory: %s\n", dataDir)
	fmt.Fprintf(out, "    Backend:        %s\n", cfg.General.Backend)
	fmt.Fprintf(out, "    Timezone:       %s\n", timezone)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [Stats]")
	fmt.Fprintf(out, "    Heart counts as success: %v\n", cfg.Stats.HeartCountsAsSuccess)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [Reminder]")
	if cfg.Reminder.Enabled {
		fmt.Fprintf(out, "    Daily at %s (daemon)\n", cfg.Reminder.At)
	} else {
		fmt.Fprintln(out, "    Disabled")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [Daemon]")
	fmt.Fprintf(out, "    Address:       %s\n", cfg.Daemon.Addr)
	fmt.Fprintf(out, "    Events buffer: %d\n", cfg.Daemon.EventsBuffer)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  [Appearance]")
	fmt.Fprintf(out, "    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  Run `quitc setup` to reconfigure.")
	return nil
}
