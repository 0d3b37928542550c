package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/frontier/internal/analysis"
	"github.com/wonny/frontier/pkg/logger"
)

// DefaultWarmupSchedule runs after the daily price sync
const DefaultWarmupSchedule = "0 45 0 * * *"

// RobustnessRunner is implemented by analysis.Service
type RobustnessRunner interface {
	Robustness(ctx context.Context, req analysis.RobustnessRequest) (*analysis.RobustnessReport, error)
}

// RobustnessWarmupJob precomputes the seeded default robustness study so the
// first API request of the day is served from the result cache
type RobustnessWarmupJob struct {
	runner RobustnessRunner
	seed   int64
	logger *logger.Logger
}

// NewRobustnessWarmupJob creates a warmup job; seed must be non-zero for the result to be cached
func NewRobustnessWarmupJob(runner RobustnessRunner, seed int64, log *logger.Logger) *RobustnessWarmupJob {
	return &RobustnessWarmupJob{
		runner: runner,
		seed:   seed,
		logger: log,
	}
}

// Name returns the job name
func (j *RobustnessWarmupJob) Name() string {
	return "robustness_warmup"
}

// Schedule returns the cron schedule
func (j *RobustnessWarmupJob) Schedule() string {
	return DefaultWarmupSchedule
}

// Run executes the study with configured defaults
func (j *RobustnessWarmupJob) Run(ctx context.Context) error {
	if j.seed == 0 {
		j.logger.Debug("Robustness warmup skipped: no fixed seed configured")
		return nil
	}

	rep, err := j.runner.Robustness(ctx, analysis.RobustnessRequest{Seed: j.seed})
	if err != nil {
		return fmt.Errorf("robustness warmup: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": rep.RunID,
		"rows":   rep.Table.Len(),
		"cached": rep.Cached,
	}).Info("Robustness warmup completed")

	return nil
}
