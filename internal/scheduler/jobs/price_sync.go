package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/frontier/internal/pricestore"
	"github.com/wonny/frontier/pkg/logger"
)

// DefaultPriceSyncSchedule runs daily at 00:30 UTC, after the 00:00 snapshot is published
const DefaultPriceSyncSchedule = "0 30 0 * * *"

// PriceSyncer is implemented by pricestore.Syncer
type PriceSyncer interface {
	Sync(ctx context.Context, end time.Time) (*pricestore.SyncResult, error)
}

// PriceSyncJob downloads prices missing from the cache
// ⭐ SSOT: 가격 증분 수집 스케줄은 이 Job에서만
type PriceSyncJob struct {
	syncer   PriceSyncer
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewPriceSyncJob creates a new price sync job; empty schedule means DefaultPriceSyncSchedule
func NewPriceSyncJob(syncer PriceSyncer, schedule string, log *logger.Logger) *PriceSyncJob {
	if schedule == "" {
		schedule = DefaultPriceSyncSchedule
	}
	return &PriceSyncJob{
		syncer:   syncer,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Schedule returns the cron schedule
func (j *PriceSyncJob) Schedule() string {
	return j.schedule
}

// Run executes the incremental download up to today
func (j *PriceSyncJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled price sync")

	res, err := j.syncer.Sync(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("sync prices: %w", err)
	}

	if res.Skipped {
		j.logger.Debug("Price cache already up to date")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"from":     res.FetchedFrom.Format("2006-01-02"),
		"to":       res.FetchedTo.Format("2006-01-02"),
		"new_rows": res.NewRows,
	}).Info("Scheduled price sync completed")

	return nil
}
