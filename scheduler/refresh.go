package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/stockfolio"
	"github.com/etnz/stockfolio/batch"
	"github.com/rs/zerolog"
)

// DefaultRefreshTimeout bounds a single refresh run.
const DefaultRefreshTimeout = 2 * time.Minute

// Refresher refreshes the price of every holding, *stockfolio.Holdings implements it.
type Refresher interface {
	RefreshAll(ctx context.Context, opts batch.Options, onProgress func(batch.Stats)) (stockfolio.RefreshReport, error)
}

// RefreshJob is the auto-update job: it refreshes every price when the
// saved settings allow it.
type RefreshJob struct {
	holdings Refresher
	opts     batch.Options
	log      zerolog.Logger

	// Settings, when set, is read before each run and the run is skipped
	// unless AutoUpdate is on.
	Settings func() (stockfolio.Settings, error)
	// Session, when set, restricts runs to trading hours.
	Session *Session
	// Timeout bounds each run, defaults to DefaultRefreshTimeout.
	Timeout time.Duration
	// OnReport, when set, receives the report of every completed run.
	OnReport func(stockfolio.RefreshReport)

	now func() time.Time
}

// NewRefreshJob returns a job refreshing holdings with opts.
func NewRefreshJob(holdings Refresher, opts batch.Options, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		holdings: holdings,
		opts:     opts,
		log:      log.With().Str("job", "refresh-prices").Logger(),
		now:      time.Now,
	}
}

func (j *RefreshJob) Name() string { return "refresh-prices" }

// Run refreshes every price once. It fails only when nothing could be refreshed.
func (j *RefreshJob) Run() error {
	if j.Settings != nil {
		s, err := j.Settings()
		if err != nil {
			return fmt.Errorf("cannot read settings: %w", err)
		}
		if !s.AutoUpdate {
			j.log.Debug().Msg("auto-update disabled, skipping")
			return nil
		}
	}
	if j.Session != nil && !j.Session.IsOpen(j.now()) {
		j.log.Debug().Msg("market closed, skipping")
		return nil
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rep, err := j.holdings.RefreshAll(ctx, j.opts, nil)
	if j.OnReport != nil {
		j.OnReport(rep)
	}
	if err != nil {
		return err
	}
	for _, f := range rep.Failed {
		j.log.Warn().Err(f.Err).Str("code", f.Holding.Code).Msg("price not refreshed")
	}
	if rep.Total > 0 && rep.SuccessCount == 0 {
		return fmt.Errorf("no price refreshed out of %d", rep.Total)
	}
	return nil
}
