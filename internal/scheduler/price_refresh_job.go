package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// PriceRefresher is the slice of the instruments service this job needs
type PriceRefresher interface {
	RefreshAllPrices(ctx context.Context) (int, error)
}

// PriceRefreshJob keeps the cached instrument prices warm so the UI and the
// stale-price fallback have something recent to fall back on.
type PriceRefreshJob struct {
	instruments PriceRefresher
	timeout     time.Duration
	log         zerolog.Logger
}

// NewPriceRefreshJob creates the periodic price refresh job
func NewPriceRefreshJob(instruments PriceRefresher, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		instruments: instruments,
		timeout:     2 * time.Minute,
		log:         log.With().Str("job", "price_refresh").Logger(),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run refreshes every cached price once
func (j *PriceRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	refreshed, err := j.instruments.RefreshAllPrices(ctx)
	if err != nil {
		return err
	}

	j.log.Info().Int("refreshed", refreshed).Msg("Price refresh complete")
	return nil
}
