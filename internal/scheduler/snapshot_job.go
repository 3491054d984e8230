package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotRecorder is the slice of the portfolio service this job needs
type SnapshotRecorder interface {
	RecordDailySnapshot(ctx context.Context) (bool, error)
}

// SnapshotJob records the end-of-day portfolio value. The snapshot store
// keeps the first value written per date, so a snapshot recorded earlier by
// a page view makes this run a no-op.
type SnapshotJob struct {
	portfolio SnapshotRecorder
	timeout   time.Duration
	log       zerolog.Logger
}

// NewSnapshotJob creates the daily snapshot job
func NewSnapshotJob(portfolio SnapshotRecorder, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		portfolio: portfolio,
		timeout:   2 * time.Minute,
		log:       log.With().Str("job", "daily_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "daily_snapshot"
}

// Run records today's snapshot if one does not exist yet
func (j *SnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	created, err := j.portfolio.RecordDailySnapshot(ctx)
	if err != nil {
		return err
	}

	if created {
		j.log.Info().Msg("Daily snapshot recorded")
	} else {
		j.log.Debug().Msg("Snapshot already recorded for today")
	}
	return nil
}
