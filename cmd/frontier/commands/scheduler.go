package commands

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/frontier/internal/scheduler"
	"github.com/wonny/frontier/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/frontier scheduler start
  go run ./cmd/frontier scheduler list
  go run ./cmd/frontier scheduler run price_sync`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- price_sync: 매일 00:30 UTC (SYNC_SCHEDULE, 가격 증분 다운로드)
- robustness_warmup: 매일 00:45 UTC (ANALYSIS_SEED 설정 시 결과 캐시 예열)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// newScheduler registers every job against the wired app
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)

	jobList := []scheduler.Job{
		jobs.NewPriceSyncJob(a.syncer, a.cfg.SyncSchedule, a.log),
		jobs.NewRobustnessWarmupJob(a.service, a.cfg.Analysis.Seed, a.log),
	}
	for _, job := range jobList {
		if err := s.AddJob(job); err != nil {
			return nil, fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}

	return s, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("=== Frontier Scheduler ===")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	s.Start()
	printJobs(s)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()
	s.Stop()

	PrintSuccess("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	printJobs(s)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := newScheduler(a)
	if err != nil {
		return err
	}

	jobName := args[0]
	PrintInfo("Running " + jobName)

	res, err := s.RunJobNow(jobName)
	if err != nil {
		return err
	}
	if !res.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempts (%s): %s", jobName, res.Attempts, res.Duration, res.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("%s completed in %s", jobName, res.Duration))
	return nil
}

func printJobs(s *scheduler.Scheduler) {
	stats := s.GetJobStats()
	names := s.GetAllJobs()
	sort.Strings(names)

	widths := []int{20, 16, 6, 20}
	PrintTableHeader([]string{"Job", "Schedule", "Runs", "Last run"}, widths)
	for _, name := range names {
		st := stats[name]
		lastRun := "-"
		if st.LastRun != nil {
			lastRun = st.LastRun.Format("2006-01-02 15:04:05")
		}
		PrintTableRow([]string{name, st.Schedule, strconv.Itoa(st.TotalRuns), lastRun}, widths)
	}
}
