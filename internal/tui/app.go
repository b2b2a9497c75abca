// Package tui provides the interactive Bubble Tea calendar for quitc.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/quitc/internal/config"
	"github.com/theirongolddev/quitc/internal/ledger"
	"github.com/theirongolddev/quitc/internal/model"
	"github.com/theirongolddev/quitc/internal/stats"
	"github.com/theirongolddev/quitc/internal/tui/components"
	"github.com/theirongolddev/quitc/internal/tui/theme"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ledgerChangedMsg carries a committed ledger change into the update loop.
type ledgerChangedMsg struct {
	change ledger.Change
}

// mutationMsg reports the outcome of a set or clear issued from the UI.
type mutationMsg struct {
	date   model.Date
	status *model.DayStatus // nil for clear
	result ledger.Result
	err    error
}

type resetMsg struct {
	err error
}

type reloadMsg struct {
	changed bool
	err     error
}

type tickMsg struct{}

const (
	minTerminalWidth = 44
	maxContentWidth  = 100
	minContentHeight = 5
	trendMonths      = 12
	tickInterval     = 30 * time.Second
	watchBuffer      = 32
)

// App is the root Bubble Tea model.
type App struct {
	ledger    *ledger.Ledger
	clock     ledger.Clock
	cfg       config.Config
	policy    stats.Policy
	memo      *stats.Memo
	changes   <-chan ledger.Change
	stopWatch func()

	// Derived from the latest snapshot
	days    model.Days
	version uint64
	summary model.Summary
	grid    [][]model.DayCell
	trend   []model.MonthRate

	// Month cursor; never persisted
	today  model.Date
	month  model.Month
	cursor model.Date

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	keys      keyMap
	help      help.Model

	status     string
	statusKind components.StatusKind

	// Ledger writes issued but not yet answered
	pending int
	spinner spinner.Model

	// Modal yes/no (token spend, reset)
	confirm   *huh.Form
	confirmed *bool
	onConfirm tea.Cmd

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
}

// NewApp creates the TUI model around an open ledger. needSetup shows the
// first-run wizard before the calendar.
func NewApp(l *ledger.Ledger, clock ledger.Clock, cfg config.Config, needSetup bool) App {
	changes, stop := l.Watch(watchBuffer)
	today := clock.Today()

	a := App{
		ledger:    l,
		clock:     clock,
		cfg:       cfg,
		policy:    cfg.Policy(),
		memo:      stats.NewMemo(),
		changes:   changes,
		stopWatch: stop,
		today:     today,
		month:     today.MonthOf(),
		cursor:    today,
		keys:      defaultKeyMap(),
		help:      help.New(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
	if needSetup {
		a.setupVals = NewSetupValues(cfg)
		a.setupForm = NewSetupForm(a.setupVals)
	}
	a.refresh()
	return a
}

// Close stops the ledger subscription.
func (a App) Close() {
	if a.stopWatch != nil {
		a.stopWatch()
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		waitForChange(a.changes),
		tickCmd(),
	}
	if a.setupForm != nil {
		cmds = append(cmds, a.setupForm.Init())
	}
	return tea.Batch(cmds...)
}

// refresh re-derives everything shown from the ledger's current state.
func (a *App) refresh() {
	a.days, a.version = a.ledger.View()
	a.summary = a.memo.Summary(a.version, a.days, a.month, a.today, a.policy)
	a.grid = stats.MonthGrid(a.days, a.month, a.today)
	a.trend = stats.Trend(a.days, a.month, trendMonths, a.today, a.policy)
}

func (a *App) flash(msg string, kind components.StatusKind) {
	a.status = msg
	a.statusKind = kind
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case ledgerChangedMsg:
		a.refresh()
		return a, waitForChange(a.changes)

	case mutationMsg:
		a.settle()
		a.reportMutation(msg)
		a.refresh()
		return a, nil

	case resetMsg:
		a.settle()
		if msg.err != nil {
			a.flash("reset not saved: "+msg.err.Error(), components.StatusError)
		} else {
			a.flash("all data erased", components.StatusOK)
		}
		a.refresh()
		return a, nil

	case reloadMsg:
		a.settle()
		switch {
		case msg.err != nil:
			a.flash(msg.err.Error(), components.StatusError)
		case msg.changed:
			a.flash("reloaded from disk", components.StatusOK)
		default:
			a.flash("already up to date", components.StatusInfo)
		}
		a.refresh()
		return a, nil

	case tickMsg:
		a.rollDay()
		return a, tickCmd()

	case spinner.TickMsg:
		if a.pending == 0 {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		if a.setupForm != nil || a.confirm != nil || a.showHelp {
			return a, nil
		}
		return a.updateMouse(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.setupForm != nil {
			return a.updateSetupForm(msg)
		}
		if a.confirm != nil {
			return a.updateConfirm(msg)
		}
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		return a.updateKeys(msg)
	}

	// Forms also consume their own internal messages.
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.confirm != nil {
		return a.updateConfirm(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := a.keys
	switch {
	case key.Matches(msg, k.Quit):
		return a, tea.Quit
	case key.Matches(msg, k.Help):
		a.showHelp = true
	case key.Matches(msg, k.NextTab):
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	case key.Matches(msg, k.PrevTab):
		a.activeTab = (a.activeTab + len(components.Tabs) - 1) % len(components.Tabs)

	case key.Matches(msg, k.Left):
		a.moveCursor(-1)
	case key.Matches(msg, k.Right):
		a.moveCursor(1)
	case key.Matches(msg, k.Up):
		a.moveCursor(-7)
	case key.Matches(msg, k.Down):
		a.moveCursor(7)
	case key.Matches(msg, k.PrevMonth):
		a.setMonth(a.month.Prev())
	case key.Matches(msg, k.NextMonth):
		a.setMonth(a.month.Next())
	case key.Matches(msg, k.Today):
		a.month = a.today.MonthOf()
		a.cursor = a.today
		a.refresh()

	case key.Matches(msg, k.Clean):
		return a.mark(model.StatusClean)
	case key.Matches(msg, k.Heart):
		return a.askSpendToken()
	case key.Matches(msg, k.Clear):
		return a.write(a.apply(a.cursor, nil))
	case key.Matches(msg, k.Cycle):
		return a.cycle()
	case key.Matches(msg, k.Reset):
		return a.ask("Reset all data?",
			"Every logged day will be deleted. This cannot be undone.",
			a.resetCmd())
	case key.Matches(msg, k.Reload):
		return a.write(a.reloadCmd())

	default:
		if len(msg.Runes) == 1 {
			if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		a.setMonth(a.month.Prev())
	case tea.MouseButtonWheelDown:
		a.setMonth(a.month.Next())
	case tea.MouseButtonLeft:
		if msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := components.TabAtX(msg.X, a.activeTab); tab >= 0 {
				a.activeTab = tab
			}
		}
	}
	return a, nil
}

// moveCursor shifts the selected day, following it into adjacent months.
func (a *App) moveCursor(days int) {
	a.cursor = a.cursor.AddDays(days)
	if !a.month.Contains(a.cursor) {
		a.month = a.cursor.MonthOf()
	}
	a.refresh()
}

// setMonth shows m, keeping the cursor on the same day-of-month where possible.
func (a *App) setMonth(m model.Month) {
	a.month = m
	day := a.cursor.Day
	if day > m.Length() {
		day = m.Length()
	}
	a.cursor = model.Date{Year: m.Year, Month: m.Month, Day: day}
	a.refresh()
}

// rollDay advances today across midnight. A cursor resting on today follows it.
func (a *App) rollDay() {
	today := a.clock.Today()
	if today == a.today {
		return
	}
	if a.cursor == a.today {
		a.cursor = today
		a.month = today.MonthOf()
	}
	a.today = today
	a.refresh()
}

func (a App) mark(status model.DayStatus) (tea.Model, tea.Cmd) {
	if a.cursor.After(a.today) {
		a.flash("can't log a day that hasn't happened yet", components.StatusWarn)
		return a, nil
	}
	return a.write(a.apply(a.cursor, &status))
}

func (a App) askSpendToken() (tea.Model, tea.Cmd) {
	if a.cursor.After(a.today) {
		a.flash("can't log a day that hasn't happened yet", components.StatusWarn)
		return a, nil
	}
	if a.days[a.cursor] == model.StatusHeart {
		a.flash(a.cursor.String()+" already used a token", components.StatusInfo)
		return a, nil
	}

	month := a.cursor.MonthOf()
	left := stats.TokensLeft(a.days, month)
	if left == 0 {
		a.flash("no ♥ tokens left in "+month.Title(), components.StatusWarn)
		return a, nil
	}

	heart := model.StatusHeart
	return a.ask(
		fmt.Sprintf("Use a token for %s?", a.cursor),
		fmt.Sprintf("You have %d ♥ tokens left in %s.", left, month.Title()),
		a.apply(a.cursor, &heart),
	)
}

// cycle steps the selected day through unmarked, CLEAN and HEART.
func (a App) cycle() (tea.Model, tea.Cmd) {
	status, marked := a.days[a.cursor]
	switch {
	case !marked:
		return a.mark(model.StatusClean)
	case status == model.StatusClean:
		return a.mark(model.StatusHeart)
	default:
		return a.write(a.apply(a.cursor, nil))
	}
}

func (a *App) reportMutation(msg mutationMsg) {
	switch {
	case errors.Is(msg.err, ledger.ErrSave):
		a.flash("changed but not saved: "+msg.err.Error(), components.StatusError)
	case msg.err != nil:
		a.flash(msg.err.Error(), components.StatusError)
	case msg.result == ledger.Rejected:
		a.flash("no ♥ tokens left in "+msg.date.MonthOf().Title(), components.StatusWarn)
	case msg.result == ledger.Unchanged:
		a.flash(msg.date.String()+" unchanged", components.StatusInfo)
	case msg.status == nil:
		a.flash(msg.date.String()+" cleared", components.StatusInfo)
	case *msg.status == model.StatusClean:
		a.flash(msg.date.String()+" logged clean", components.StatusOK)
	default:
		a.flash(msg.date.String()+" ♥ token used", components.StatusOK)
	}
}

// ask opens a yes/no modal; onYes runs only when confirmed.
func (a App) ask(title, description string, onYes tea.Cmd) (tea.Model, tea.Cmd) {
	confirmed := new(bool)
	a.confirmed = confirmed
	a.onConfirm = onYes
	a.confirm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("Cancel").
				Value(confirmed),
		),
	).WithShowHelp(false).WithWidth(52)
	return a, a.confirm.Init()
}

func (a App) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		a.closeConfirm()
		a.flash("cancelled", components.StatusInfo)
		return a, nil
	}

	form, cmd := a.confirm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.confirm = f
	}

	switch a.confirm.State {
	case huh.StateCompleted:
		yes := *a.confirmed
		onYes := a.onConfirm
		a.closeConfirm()
		if yes {
			return a.write(onYes)
		}
		a.flash("cancelled", components.StatusInfo)
		return a, nil
	case huh.StateAborted:
		a.closeConfirm()
		return a, nil
	}
	return a, cmd
}

func (a *App) closeConfirm() {
	a.confirm = nil
	a.confirmed = nil
	a.onConfirm = nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.saveSetup()
		a.setupForm = nil
		a.refresh()
		return a, nil
	case huh.StateAborted:
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// ─── Commands ───────────────────────────────────────────────────

// waitForChange blocks until the ledger publishes the next change.
func waitForChange(ch <-chan ledger.Change) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return ledgerChangedMsg{change: change}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// write dispatches a ledger command and spins until its reply arrives.
func (a App) write(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if cmd == nil {
		return a, nil
	}
	a.pending++
	if a.pending > 1 {
		return a, cmd
	}
	return a, tea.Batch(cmd, a.spinner.Tick)
}

func (a *App) settle() {
	if a.pending > 0 {
		a.pending--
	}
}

func (a App) apply(date model.Date, status *model.DayStatus) tea.Cmd {
	l := a.ledger
	return func() tea.Msg {
		result, err := l.Update(context.Background(), date, status)
		return mutationMsg{date: date, status: status, result: result, err: err}
	}
}

func (a App) resetCmd() tea.Cmd {
	l := a.ledger
	return func() tea.Msg {
		return resetMsg{err: l.Reset(context.Background())}
	}
}

func (a App) reloadCmd() tea.Cmd {
	l := a.ledger
	return func() tea.Msg {
		changed, err := l.Reload(context.Background())
		return reloadMsg{changed: changed, err: err}
	}
}

// ─── Views ──────────────────────────────────────────────────────

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	if a.confirm != nil {
		return a.viewConfirm()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  quitc needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim)

	h := a.help
	h.ShowAll = true

	body := titleStyle.Render("◈ Keyboard Shortcuts") + "\n\n" +
		h.View(a.keys) + "\n\n" +
		dimStyle.Render("Press any key to close")

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(body),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewConfirm() string {
	t := theme.Active
	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 2)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
		cardStyle.Render(a.confirm.View()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	header := components.RenderTabBar(a.activeTab, w)
	status, kind := a.status, a.statusKind
	if a.pending > 0 {
		status, kind = a.spinner.View()+" saving", components.StatusInfo
	}
	statusBar := components.RenderStatusBar(w, a.help.ShortHelpView(a.keys.ShortHelp()), status, kind)

	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var content string
	switch a.activeTab {
	case 0:
		content = a.renderCalendarTab(cw)
	case 1:
		content = a.renderStatsTab(cw)
	case 2:
		content = a.renderTrendTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with the background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}
