package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/frontier/internal/analysis"
	"github.com/wonny/frontier/internal/frontier"
	"github.com/wonny/frontier/internal/report"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "효율적 투자선 랜덤 탐색",
	Long: `선택한 기간의 일별 수익률로 랜덤 가중치 포트폴리오를 평가합니다.

출력:
- 최소분산 포트폴리오 (가중치, 연환산 수익률/변동성)
- 자산별 100% 포트폴리오 (코너)
- --out 지정 시 전체 시행 결과 JSON
- --charts 지정 시 프론티어 PNG

Example:
  go run ./cmd/frontier search
  go run ./cmd/frontier search --start 2022-06-01 --end 2023-01-31 --trials 5000 --seed 42
  go run ./cmd/frontier search --out frontier.json --charts ./charts`,
	RunE: runSearch,
}

var (
	searchStart  string
	searchEnd    string
	searchTrials int
	searchSeed   int64
	searchOut    string
	searchCharts string
)

func init() {
	rootCmd.AddCommand(searchCmd)

	// Flags
	searchCmd.Flags().StringVar(&searchStart, "start", "", "시작일 YYYY-MM-DD (기본: DEFAULT_START)")
	searchCmd.Flags().StringVar(&searchEnd, "end", "", "종료일 YYYY-MM-DD (기본: 오늘)")
	searchCmd.Flags().IntVar(&searchTrials, "trials", 0, "시행 횟수 (기본: FRONTIER_TRIALS)")
	searchCmd.Flags().Int64Var(&searchSeed, "seed", 0, "난수 시드 (0이면 ANALYSIS_SEED 또는 시간 기반)")
	searchCmd.Flags().StringVar(&searchOut, "out", "", "전체 결과를 JSON 파일로 저장")
	searchCmd.Flags().StringVar(&searchCharts, "charts", "", "프론티어 PNG 저장 디렉토리")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	startDate, err := parseDateFlag("start", searchStart)
	if err != nil {
		return err
	}
	endDate, err := parseDateFlag("end", searchEnd)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	rep, err := a.service.Frontier(ctx, analysis.FrontierRequest{
		Start:  startDate,
		End:    endDate,
		Trials: searchTrials,
		Seed:   searchSeed,
	})
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintRunHeader(RunMetadata{
		RunID:     rep.RunID,
		RunType:   "Efficient Frontier Search",
		Tag:       "Search",
		Timestamp: started.Format(time.RFC3339),
		Period:    &Period{StartDate: FormatDate(rep.Start), EndDate: FormatDate(rep.End)},
		Assets:    strings.Join(rep.Assets, ", "),
	})

	PrintKeyValue("Return rows", strconv.Itoa(rep.DataRows), 14)
	PrintKeyValue("Trials", strconv.Itoa(rep.Trials), 14)
	PrintKeyValue("Seed", strconv.FormatInt(rep.Seed, 10), 14)
	PrintKeyValue("Periods/year", strconv.Itoa(rep.PeriodsPerYear), 14)
	if rep.Cached {
		PrintInfo("Served from result cache")
	}

	fmt.Println()
	fmt.Println("📉 Minimum-variance portfolio")
	printTrials(rep.Assets, []string{"min-var"}, []frontier.Trial{rep.MinVariance})

	fmt.Println()
	fmt.Println("📌 Single-asset portfolios")
	labels := make([]string, len(rep.Corners))
	for i := range rep.Corners {
		labels[i] = "100% " + rep.Assets[i]
	}
	printTrials(rep.Assets, labels, rep.Corners)

	if searchOut != "" {
		if err := writeJSON(searchOut, rep); err != nil {
			return err
		}
		PrintSuccess("Wrote " + searchOut)
	}

	if searchCharts != "" {
		path, err := report.WriteFrontierChart(searchCharts, rep.Frontier, rep.Corners, report.DefaultFrontierBins)
		if err != nil {
			return fmt.Errorf("write frontier chart: %w", err)
		}
		PrintSuccess("Wrote " + path)
	}

	PrintCompletion("Search", time.Since(started))
	return nil
}

func printTrials(assets []string, labels []string, trials []frontier.Trial) {
	widths := []int{12, 12, 12, 30}
	PrintTableHeader([]string{"Portfolio", "Return", "Volatility", "Weights"}, widths)
	for i, t := range trials {
		PrintTableRow([]string{
			labels[i],
			FormatPercent(t.Return),
			FormatPercent(t.Volatility),
			FormatWeights(assets, t.Weights),
		}, widths)
	}
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
