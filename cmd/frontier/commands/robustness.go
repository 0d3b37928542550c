package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/frontier/internal/analysis"
	"github.com/wonny/frontier/internal/frontier"
	"github.com/wonny/frontier/internal/report"
)

// robustnessCmd represents the robustness command
var robustnessCmd = &cobra.Command{
	Use:   "robustness",
	Short: "최소분산 포트폴리오 강건성 분석",
	Long: `시작일을 하루씩 밀면서 전체 가격 이력의 최소분산 포트폴리오를 다시 찾습니다.

가장 짧은 윈도우도 전체 수익률 행의 --fraction 이상을 유지합니다.
윈도우 i는 seed+i로 시드되므로 --workers와 무관하게 결과가 같습니다.

출력:
- 컬럼별 요약 (중앙값/평균/최소/최대)
- --charts 지정 시 컬럼별 히스토그램 PNG
- --out 지정 시 전체 테이블 JSON

Example:
  go run ./cmd/frontier robustness
  go run ./cmd/frontier robustness --fraction 0.8 --trials 1000 --seed 7 --workers 8
  go run ./cmd/frontier robustness --charts ./charts`,
	RunE: runRobustness,
}

var (
	robustFraction float64
	robustTrials   int
	robustSeed     int64
	robustWorkers  int
	robustCharts   string
	robustBins     int
	robustOut      string
	robustQuiet    bool
)

func init() {
	rootCmd.AddCommand(robustnessCmd)

	// Flags
	robustnessCmd.Flags().Float64Var(&robustFraction, "fraction", 0, "최소 유지 비율 (0,1] (기본: MIN_FRACTION_KEPT)")
	robustnessCmd.Flags().IntVar(&robustTrials, "trials", 0, "윈도우당 시행 횟수 (기본: ROLLING_TRIALS)")
	robustnessCmd.Flags().Int64Var(&robustSeed, "seed", 0, "기본 시드 (0이면 ANALYSIS_SEED 또는 시간 기반)")
	robustnessCmd.Flags().IntVar(&robustWorkers, "workers", 0, "동시 윈도우 수 (기본: ANALYSIS_WORKERS)")
	robustnessCmd.Flags().StringVar(&robustCharts, "charts", "", "히스토그램 PNG 저장 디렉토리")
	robustnessCmd.Flags().IntVar(&robustBins, "bins", report.DefaultBins, "히스토그램 구간 수")
	robustnessCmd.Flags().StringVar(&robustOut, "out", "", "전체 테이블을 JSON 파일로 저장")
	robustnessCmd.Flags().BoolVarP(&robustQuiet, "quiet", "q", false, "윈도우별 진행 출력 생략")
}

func runRobustness(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	PrintRunHeader(RunMetadata{
		RunType:   "Min-Variance Robustness Study",
		Tag:       "Robustness",
		Timestamp: started.Format(time.RFC3339),
	})

	req := analysis.RobustnessRequest{
		MinFractionKept: robustFraction,
		Trials:          robustTrials,
		Seed:            robustSeed,
		Workers:         robustWorkers,
	}
	if !robustQuiet {
		req.OnRow = progressPrinter()
	}

	rep, err := a.service.Robustness(ctx, req)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	fmt.Println()
	PrintKeyValue("Run ID", rep.RunID, 18)
	PrintKeyValue("Data", FormatDate(rep.DataStart)+" ~ "+FormatDate(rep.DataEnd), 18)
	PrintKeyValue("Windows", strconv.Itoa(rep.Table.Len()), 18)
	PrintKeyValue("Min fraction kept", FormatPercent(rep.MinFractionKept), 18)
	PrintKeyValue("Trials/window", strconv.Itoa(rep.TrialsPerWindow), 18)
	PrintKeyValue("Seed", strconv.FormatInt(rep.Seed, 10), 18)
	if rep.Cached {
		PrintInfo("Served from result cache")
	}

	fmt.Println()
	fmt.Println("📊 Distribution across start dates")
	printSummary(rep.Summary)

	if robustCharts != "" {
		paths, err := report.WriteCharts(robustCharts, rep.Table, robustBins)
		if err != nil {
			return fmt.Errorf("write charts: %w", err)
		}
		fmt.Println()
		PrintSuccess(fmt.Sprintf("Wrote %d charts", len(paths)))
		PrintList(paths)
	}

	if robustOut != "" {
		if err := writeJSON(robustOut, rep); err != nil {
			return err
		}
		PrintSuccess("Wrote " + robustOut)
	}

	PrintCompletion("Robustness", time.Since(started))
	return nil
}

// progressPrinter prints roughly every 5% of windows plus the last one
func progressPrinter() func(index, total int, row frontier.RobustnessRow) {
	return func(index, total int, row frontier.RobustnessRow) {
		step := total / 20
		if step < 1 {
			step = 1
		}
		if (index+1)%step != 0 && index+1 != total {
			return
		}
		msg := fmt.Sprintf("%s vol=%s ret=%s", FormatDate(row.StartDate),
			FormatPercent(row.Volatility), FormatPercent(row.Return))
		PrintProgress("Robustness", msg, index+1, total)
	}
}

func printSummary(s frontier.RobustnessSummary) {
	widths := []int{14, 10, 10, 10, 10}
	PrintTableHeader([]string{"Column", "Median", "Mean", "Min", "Max"}, widths)

	cols := append([]frontier.ColumnSummary{s.Return, s.Volatility}, s.Weights...)
	for _, c := range cols {
		PrintTableRow([]string{
			c.Name,
			FormatPercent(c.Median),
			FormatPercent(c.Mean),
			FormatPercent(c.Min),
			FormatPercent(c.Max),
		}, widths)
	}
}
