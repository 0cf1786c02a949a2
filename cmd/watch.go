package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/batch"
	"github.com/etnz/stockfolio/scheduler"
	"github.com/google/subcommands"
)

// watchCmd holds the flags for the 'watch' subcommand.
type watchCmd struct {
	interval    time.Duration
	marketHours bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "refresh prices periodically until interrupted" }
func (*watchCmd) Usage() string {
	return `pcs watch [-interval <duration>] [-market-hours]

  Refreshes every price now, then periodically until interrupted. The period
  is -interval, else PCS_UPDATE_INTERVAL, else the saved update interval.
  Runs are skipped while auto-update is off in the settings.

  A SIGHUP refreshes at once. Signals received within a second of the last
  one are ignored.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.interval, "interval", 0, "refresh period, overrides the configuration")
	f.BoolVar(&c.marketHours, "market-hours", false, "only refresh during Taiwan trading hours")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	settings, err := a.settings()
	if err != nil {
		fmt.Fprintf(stderr, "Error reading settings: %v\n", err)
		return subcommands.ExitFailure
	}
	interval := c.interval
	if interval == 0 {
		interval = a.cfg.UpdateInterval
	}
	if interval == 0 {
		interval = settings.Interval()
	}
	if interval < stockfolio.MinUpdateInterval {
		fmt.Fprintf(stderr, "Error: interval must be at least %v\n", stockfolio.MinUpdateInterval)
		return subcommands.ExitUsageError
	}

	job := scheduler.NewRefreshJob(a.holdings, a.cfg.BatchOptions(), a.log)
	job.Settings = a.settings
	if c.marketHours {
		job.Session = &scheduler.TaiwanSession
	}
	job.OnReport = func(rep stockfolio.RefreshReport) {
		fmt.Fprintf(stdout, "%s updated %d of %d holdings\n", time.Now().Format(time.TimeOnly), rep.SuccessCount, rep.Total)
	}

	s := scheduler.New(a.log)
	if err := s.AddJob(scheduler.Every(interval), job); err != nil {
		fmt.Fprintf(stderr, "Error scheduling refresh: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := s.RunNow(job); err != nil {
		fmt.Fprintf(stderr, "Error refreshing prices: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	refresh := batch.Debounce(time.Second, func(struct{}) {
		if err := s.RunNow(job); err != nil {
			a.log.Warn().Err(err).Msg("refresh on demand failed")
		}
	}, true)
	defer refresh.Stop()

	s.Start()
	fmt.Fprintf(stderr, "Refreshing every %v, press Ctrl+C to stop.\n", interval)
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return subcommands.ExitSuccess
		case <-hup:
			refresh.Call(struct{}{})
		}
	}
}
