package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/theirongolddev/quitc/internal/cli"
	"github.com/theirongolddev/quitc/internal/client"
	"github.com/theirongolddev/quitc/internal/config"
	"github.com/theirongolddev/quitc/internal/daemon"
	"github.com/theirongolddev/quitc/internal/model"

	"github.com/spf13/cobra"
)

type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DataPath  string    `json:"data_path"`
}

var (
	flagDaemonAddr         string
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonNoWatch      bool
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run a background service with HTTP/SSE endpoints and the daily reminder",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the daemon's recent events",
	RunE:  runDaemonEvents,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default: config, 127.0.0.1:8789)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", "", "PID file path (default: <data-dir>/quitcd.pid)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", "", "Log file path for detached mode (default: <data-dir>/quitcd.log)")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default: config)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonNoWatch, "no-watch", false, "Don't reload when the data file changes on disk")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonEventsCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// daemonFiles resolves the daemon's address, pid file and log file from
// flags, then the config file, then the data directory.
func daemonFiles() (addr, pidFile, logFile string) {
	cfg, _ := config.Load()
	dataDir := resolveDataDir(cfg)

	addr = flagDaemonAddr
	if addr == "" {
		addr = cfg.Daemon.Addr
	}
	pidFile = flagDaemonPIDFile
	if pidFile == "" {
		pidFile = filepath.Join(dataDir, "quitcd.pid")
	}
	logFile = flagDaemonLogFile
	if logFile == "" {
		logFile = filepath.Join(dataDir, "quitcd.log")
	}
	return addr, pidFile, logFile
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	if flagDaemonDetach {
		return startDaemonDetached(cmd.OutOrStdout())
	}

	return runDaemonForeground(cmd)
}

func startDaemonDetached(out io.Writer) error {
	addr, pidFile, logFile := daemonFiles()
	if err := ensureDaemonNotRunning(pidFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(pidFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	proc := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	proc.Stdout = logf
	proc.Stderr = logf
	proc.Stdin = nil
	proc.Env = os.Environ()

	if err := proc.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Fprintf(out, "  Started daemon (pid %d)\n", proc.Process.Pid)
	fmt.Fprintf(out, "  PID file: %s\n", pidFile)
	fmt.Fprintf(out, "  API: http://%s/v1/status\n", addr)
	fmt.Fprintf(out, "  Log: %s\n", logFile)
	return nil
}

func runDaemonForeground(cmd *cobra.Command) error {
	addr, pidFile, _ := daemonFiles()
	if err := ensureDaemonNotRunning(pidFile); err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	cfg, err := daemonConfig(s, addr)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(pidFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}

	pid := os.Getpid()
	if err := writePID(pidFile, pid); err != nil {
		return err
	}
	defer func() { _ = os.Remove(pidFile) }()

	state := daemonRuntimeState{
		PID:       pid,
		Addr:      cfg.Addr,
		StartedAt: time.Now(),
		DataPath:  s.backend.Path(),
	}
	_ = writeState(statePath(pidFile), state)
	defer func() { _ = os.Remove(statePath(pidFile)) }()

	svc := daemon.New(cfg, s.ledger, s.clock)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "  quitc daemon listening on http://%s\n", cfg.Addr)
	fmt.Fprintf(out, "  Ledger: %s\n", s.backend.Path())
	if cfg.Reminder.Enabled {
		fmt.Fprintf(out, "  Reminder daily at %02d:%02d\n", cfg.Reminder.Hour, cfg.Reminder.Minute)
	}
	fmt.Fprintf(out, "  Stop with: quitc daemon stop --pid-file %s\n", pidFile)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// daemonConfig builds the service config from the session's config file and
// the daemon flags.
func daemonConfig(s *session, addr string) (daemon.Config, error) {
	cfg := daemon.Config{
		Addr:         addr,
		EventsBuffer: s.cfg.Daemon.EventsBuffer,
		Policy:       s.cfg.Policy(),
	}
	if flagDaemonEventsBuffer > 0 {
		cfg.EventsBuffer = flagDaemonEventsBuffer
	}
	if !flagDaemonNoWatch {
		cfg.WatchPath = s.backend.Path()
	}

	if s.cfg.Reminder.Enabled {
		hour, minute, err := s.cfg.ReminderTime()
		if err != nil {
			return cfg, err
		}
		loc, _ := s.cfg.Location()
		cfg.Reminder = daemon.ReminderConfig{
			Enabled:  true,
			Hour:     hour,
			Minute:   minute,
			Location: loc,
		}
	}
	return cfg, nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	addr, pidFile, _ := daemonFiles()
	out := cmd.OutOrStdout()

	pid, err := readPID(pidFile)
	if err != nil {
		fmt.Fprintf(out, "  Daemon: not running (pid file not found)\n")
		return nil
	}

	alive := processAlive(pid)
	if !alive {
		fmt.Fprintf(out, "  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	if st, err := readState(statePath(pidFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	fmt.Fprintf(out, "  Daemon PID: %d\n", pid)
	fmt.Fprintf(out, "  Address: http://%s\n", addr)

	st, err := client.New(addr).Status(cmd.Context(), model.Month{})
	if err != nil {
		fmt.Fprintf(out, "  API status: unreachable (%v)\n", err)
		return nil
	}

	sum := st.Summary
	fmt.Fprintf(out, "  Instance: %s\n", st.InstanceID)
	fmt.Fprintf(out, "  Ledger: %s (version %d)\n", st.DataPath, st.Version)
	fmt.Fprintf(out, "  Today: %s\n", st.Today)
	fmt.Fprintf(out, "  %s: %s clean, %s tokens left, %s success\n",
		sum.Month.Title(), cli.FormatDays(sum.CleanDays), cli.FormatTokens(sum.TokensLeft), cli.FormatPercent(sum.SuccessRate))
	fmt.Fprintf(out, "  Current streak: %s\n", cli.FormatDays(sum.CurrentStreak))
	if st.ReminderEnabled {
		if st.LastReminderAt.IsZero() {
			fmt.Fprintf(out, "  Reminder: daily at %s, not sent yet\n", st.ReminderAt)
		} else {
			fmt.Fprintf(out, "  Reminder: daily at %s, last sent %s\n", st.ReminderAt, st.LastReminderAt.Local().Format(time.RFC3339))
		}
	}
	fmt.Fprintf(out, "  Events: %d (%d subscribers)\n", st.EventCount, st.SubscriberCount)
	if st.LastError != "" {
		fmt.Fprintf(out, "  Last error: %s\n", st.LastError)
	}
	return nil
}

func runDaemonEvents(cmd *cobra.Command, _ []string) error {
	addr, pidFile, _ := daemonFiles()
	if st, err := readState(statePath(pidFile)); err == nil && st.Addr != "" {
		addr = st.Addr
	}

	events, err := client.New(addr).Events(cmd.Context())
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", addr, err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "  No events yet.")
		return nil
	}

	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		detail := ev.Message
		if ev.Status != "" {
			detail = ev.Status
		}
		rows = append(rows, []string{
			strconv.FormatInt(ev.ID, 10),
			ev.Timestamp.Local().Format("2006-01-02 15:04"),
			ev.Type,
			ev.Date,
			detail,
		})
	}
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Headers: []string{"#", "Time", "Type", "Date", "Detail"},
		Rows:    rows,
	}))
	return nil
}

func runDaemonStop(cmd *cobra.Command, _ []string) error {
	_, pidFile, _ := daemonFiles()
	pid, err := readPID(pidFile)
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(pidFile)
			_ = os.Remove(statePath(pidFile))
			fmt.Fprintf(cmd.OutOrStdout(), "  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureDaemonNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	_ = os.Remove(statePath(pidFile))
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // daemon pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func statePath(pidFile string) string {
	return pidFile + ".json"
}

func writeState(path string, st daemonRuntimeState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func readState(path string) (daemonRuntimeState, error) {
	var st daemonRuntimeState
	//nolint:gosec // daemon state path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	return st, nil
}
