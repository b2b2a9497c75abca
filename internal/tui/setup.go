package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/quitc/internal/config"
	"github.com/theirongolddev/quitc/internal/store"
	"github.com/theirongolddev/quitc/internal/tui/components"
	"github.com/theirongolddev/quitc/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the answers of the setup wizard. The form binds to its
// fields by pointer.
type SetupValues struct {
	Backend              string
	Theme                string
	ReminderEnabled      bool
	ReminderAt           string
	HeartCountsAsSuccess bool
}

// NewSetupValues seeds the wizard from an existing config.
func NewSetupValues(cfg config.Config) *SetupValues {
	return &SetupValues{
		Backend:              cfg.General.Backend,
		Theme:                cfg.Appearance.Theme,
		ReminderEnabled:      cfg.Reminder.Enabled,
		ReminderAt:           cfg.Reminder.At,
		HeartCountsAsSuccess: cfg.Stats.HeartCountsAsSuccess,
	}
}

// Apply copies the answers into cfg.
func (v *SetupValues) Apply(cfg *config.Config) {
	cfg.General.Backend = v.Backend
	cfg.Appearance.Theme = v.Theme
	cfg.Reminder.Enabled = v.ReminderEnabled
	cfg.Reminder.At = strings.TrimSpace(v.ReminderAt)
	cfg.Stats.HeartCountsAsSuccess = v.HeartCountsAsSuccess
}

// NewSetupForm builds the first-run wizard. It is shared by `quitc setup`
// and the TUI's first launch.
func NewSetupForm(v *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, name := range theme.Names() {
		themeOpts = append(themeOpts, huh.NewOption(name, name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to quitc").
				Description("Log every smoke-free day. You get three ♥ tokens a month\nfor the days that don't go to plan."),
			huh.NewSelect[string]().
				Title("Where should your days be stored?").
				Options(
					huh.NewOption("SQLite database", store.BackendSQLite),
					huh.NewOption("JSON file", store.BackendJSON),
				).
				Value(&v.Backend),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&v.Theme),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Daily reminder?").
				Description("The daemon reminds you when today is still unlogged.").
				Value(&v.ReminderEnabled),
			huh.NewInput().
				Title("Reminder time (HH:MM)").
				Value(&v.ReminderAt).
				Validate(validateClock),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Count ♥ days as successes in the success rate?").
				Affirmative("Yes").
				Negative("No, only clean days").
				Value(&v.HeartCountsAsSuccess),
		),
	)
}

func validateClock(s string) error {
	if _, err := time.Parse("15:04", strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use 24h HH:MM, e.g. 20:00")
	}
	return nil
}

// saveSetup writes the wizard answers and applies them to the running app.
func (a *App) saveSetup() {
	cfg := a.cfg
	a.setupVals.Apply(&cfg)
	if err := config.Save(cfg); err != nil {
		a.flash(fmt.Sprintf("could not save config: %v", err), components.StatusError)
		return
	}
	a.cfg = cfg
	a.policy = cfg.Policy()
	theme.SetActive(cfg.Appearance.Theme)
	a.flash("settings saved to "+config.Path(), components.StatusOK)
}
