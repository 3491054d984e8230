package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	count int
	err   error
}

func (f *fakeRefresher) RefreshAllPrices(ctx context.Context) (int, error) {
	f.count++
	return 3, f.err
}

type fakeRecorder struct {
	created bool
	err     error
}

func (f *fakeRecorder) RecordDailySnapshot(ctx context.Context) (bool, error) {
	return f.created, f.err
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	job := NewPriceRefreshJob(&fakeRefresher{}, zerolog.Nop())

	assert.Error(t, s.AddJob("not a schedule", job))
	assert.NoError(t, s.AddJob("0 */15 * * * *", job))
}

func TestPriceRefreshJobRun(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewPriceRefreshJob(refresher, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, 1, refresher.count)

	refresher.err = errors.New("provider down")
	assert.Error(t, job.Run())
}

func TestSnapshotJobRun(t *testing.T) {
	recorder := &fakeRecorder{created: true}
	job := NewSnapshotJob(recorder, zerolog.Nop())
	require.NoError(t, job.Run())

	recorder.err = errors.New("db closed")
	assert.Error(t, job.Run())
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	refresher := &fakeRefresher{}

	require.NoError(t, s.RunNow(NewPriceRefreshJob(refresher, zerolog.Nop())))
	assert.Equal(t, 1, refresher.count)
}
