package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/frontier/internal/analysis"
	"github.com/wonny/frontier/internal/frontier"
	"github.com/wonny/frontier/internal/pricestore"
	"github.com/wonny/frontier/pkg/logger"
)

type fakeSyncer struct {
	end time.Time
	res *pricestore.SyncResult
	err error
}

func (f *fakeSyncer) Sync(_ context.Context, end time.Time) (*pricestore.SyncResult, error) {
	f.end = end
	return f.res, f.err
}

func TestPriceSyncJob(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		j := NewPriceSyncJob(&fakeSyncer{}, "", logger.Nop())
		assert.Equal(t, "price_sync", j.Name())
		assert.Equal(t, DefaultPriceSyncSchedule, j.Schedule())

		j = NewPriceSyncJob(&fakeSyncer{}, "@hourly", logger.Nop())
		assert.Equal(t, "@hourly", j.Schedule())
	})

	t.Run("syncs through now", func(t *testing.T) {
		now := time.Date(2023, 3, 1, 0, 30, 0, 0, time.UTC)
		syncer := &fakeSyncer{res: &pricestore.SyncResult{
			FetchedFrom: now.AddDate(0, 0, -3),
			FetchedTo:   now,
			NewRows:     3,
		}}
		j := NewPriceSyncJob(syncer, "", logger.Nop())
		j.now = func() time.Time { return now }

		require.NoError(t, j.Run(context.Background()))
		assert.Equal(t, now, syncer.end)
	})

	t.Run("skipped", func(t *testing.T) {
		j := NewPriceSyncJob(&fakeSyncer{res: &pricestore.SyncResult{Skipped: true}}, "", logger.Nop())
		assert.NoError(t, j.Run(context.Background()))
	})

	t.Run("error", func(t *testing.T) {
		j := NewPriceSyncJob(&fakeSyncer{err: errors.New("429")}, "", logger.Nop())
		err := j.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sync prices")
	})
}

type fakeRunner struct {
	req   analysis.RobustnessRequest
	calls int
	err   error
}

func (f *fakeRunner) Robustness(_ context.Context, req analysis.RobustnessRequest) (*analysis.RobustnessReport, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.RobustnessReport{RunID: "r", Table: &frontier.RobustnessTable{}}, nil
}

func TestRobustnessWarmupJob(t *testing.T) {
	t.Run("runs seeded study", func(t *testing.T) {
		runner := &fakeRunner{}
		j := NewRobustnessWarmupJob(runner, 42, logger.Nop())

		require.NoError(t, j.Run(context.Background()))
		assert.Equal(t, 1, runner.calls)
		assert.Equal(t, int64(42), runner.req.Seed)
		assert.Equal(t, "robustness_warmup", j.Name())
	})

	t.Run("unseeded is a no-op", func(t *testing.T) {
		runner := &fakeRunner{}
		require.NoError(t, NewRobustnessWarmupJob(runner, 0, logger.Nop()).Run(context.Background()))
		assert.Zero(t, runner.calls)
	})

	t.Run("error", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("no data")}
		assert.Error(t, NewRobustnessWarmupJob(runner, 1, logger.Nop()).Run(context.Background()))
	})
}
