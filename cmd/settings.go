package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/google/subcommands"
)

// settingsCmd holds the flags for the 'settings' subcommand. Only the flags
// that are set are changed.
type settingsCmd struct {
	privacy    bool
	dark       bool
	autoUpdate bool
	interval   time.Duration
	clamp      bool
}

func (*settingsCmd) Name() string     { return "settings" }
func (*settingsCmd) Synopsis() string { return "display or change the portfolio settings" }
func (*settingsCmd) Usage() string {
	return `pcs settings [-privacy=<bool>] [-auto-update=<bool>] [-interval <duration>] [-clamp=<bool>] [-dark=<bool>]

  Without flags, displays the settings saved along the portfolio.
`
}

func (c *settingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.privacy, "privacy", false, "mask amounts in reports")
	f.BoolVar(&c.dark, "dark", false, "dark mode preference")
	f.BoolVar(&c.autoUpdate, "auto-update", true, "refresh prices periodically in 'pcs watch'")
	f.DurationVar(&c.interval, "interval", stockfolio.DefaultUpdateInterval*time.Millisecond, "auto-update period")
	f.BoolVar(&c.clamp, "clamp", true, "never let dividends bring the adjusted cost below zero")
}

func (c *settingsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	s, err := a.settings()
	if err != nil {
		fmt.Fprintf(stderr, "Error reading settings: %v\n", err)
		return subcommands.ExitFailure
	}
	changed := false
	f.Visit(func(fl *flag.Flag) {
		changed = true
		switch fl.Name {
		case "privacy":
			s.PrivacyMode = c.privacy
		case "dark":
			s.DarkMode = c.dark
		case "auto-update":
			s.AutoUpdate = c.autoUpdate
		case "interval":
			s.UpdateInterval = c.interval.Milliseconds()
		case "clamp":
			s.ClampAdjustedCost = c.clamp
		}
	})
	if changed {
		if err := stockfolio.SaveSettings(a.store, s); err != nil {
			fmt.Fprintf(stderr, "Error saving settings: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	fmt.Fprintf(stdout, "privacy      %t\n", s.PrivacyMode)
	fmt.Fprintf(stdout, "dark         %t\n", s.DarkMode)
	fmt.Fprintf(stdout, "auto-update  %t\n", s.AutoUpdate)
	fmt.Fprintf(stdout, "interval     %v\n", s.Interval())
	fmt.Fprintf(stdout, "clamp        %t\n", s.ClampAdjustedCost)
	return subcommands.ExitSuccess
}
