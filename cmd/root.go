// Package cmd implements the quitc CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/theirongolddev/quitc/internal/config"
	"github.com/theirongolddev/quitc/internal/ledger"
	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDataDir string
	flagBackend string
	flagMonth   string
	flagQuiet   bool
)

var rootCmd = &cobra.Command{
	Use:          "quitc",
	Short:        "Smoke-free day tracker",
	Long:         "Log every smoke-free day, spend up to three ♥ tokens a month, and watch your streaks grow.",
	RunE:         runStats,
	SilenceUsage: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Data directory (default: config, then $XDG_DATA_HOME/quitc)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Storage backend: sqlite or json (default: config)")
	rootCmd.PersistentFlags().StringVarP(&flagMonth, "month", "m", "", "Month to show as YYYY-MM (default: current month)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// session is the shared state every ledger command opens.
type session struct {
	cfg     config.Config
	backend store.Backend
	ledger  *ledger.Ledger
	clock   ledger.Clock
}

// openSession loads the config, opens the storage backend and the ledger on
// top of it. Flags override the config file.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dataDir := resolveDataDir(cfg)
	kind := flagBackend
	if kind == "" {
		kind = cfg.General.Backend
	}

	backend, err := store.Open(kind, dataDir)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		progressf("  %v, using local time\n", err)
	}

	var logw io.Writer = os.Stderr
	if flagQuiet {
		logw = io.Discard
	}
	l := ledger.Open(ctx, backend, ledger.WithLogger(log.New(logw, "", 0)))

	return &session{
		cfg:     cfg,
		backend: backend,
		ledger:  l,
		clock:   ledger.SystemClock{Location: loc},
	}, nil
}

// resolveDataDir applies --data-dir, QUITC_DATA_DIR, the config file and the
// XDG default in that order.
func resolveDataDir(cfg config.Config) string {
	if flagDataDir != "" {
		return flagDataDir
	}
	if dir := config.DataDir(cfg); dir != "" {
		return dir
	}
	return store.DefaultDataDir()
}

func (s *session) Close() error {
	return s.backend.Close()
}

// month resolves --month against today.
func (s *session) month() (model.Month, error) {
	if flagMonth == "" {
		return s.clock.Today().MonthOf(), nil
	}
	m, err := model.ParseMonth(flagMonth)
	if err != nil {
		return model.Month{}, fmt.Errorf("--month: %w", err)
	}
	return m, nil
}

// date resolves a --date value, defaulting to today. Future days are refused.
func (s *session) date(v string) (model.Date, error) {
	today := s.clock.Today()
	if v == "" || v == "today" {
		return today, nil
	}
	if v == "yesterday" {
		return today.AddDays(-1), nil
	}
	d, err := model.ParseDate(v)
	if err != nil {
		return model.Date{}, fmt.Errorf("--date: %w", err)
	}
	if d.After(today) {
		return model.Date{}, fmt.Errorf("%s is in the future", d)
	}
	return d, nil
}

// progressf writes chatter to stderr unless --quiet.
func progressf(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
