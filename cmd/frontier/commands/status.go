package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "설정 및 가격 캐시 상태 조회",
	Long: `현재 설정과 가격 캐시 상태를 표시합니다.

표시 정보:
- 자산 목록과 가격 소스 키
- 저장소 종류와 마지막 캐시 날짜
- 선택 가능한 분석 기간
- 분석 기본값

Example:
  go run ./cmd/frontier status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("=== Frontier Status ===")

	fmt.Println()
	fmt.Println("🪙 Assets")
	items := make([]string, len(a.assets))
	for i, asset := range a.assets {
		items[i] = fmt.Sprintf("%s (%s)", asset.Symbol, asset.Key())
	}
	PrintList(items)

	fmt.Println()
	fmt.Println("💾 Storage")
	PrintKeyValue("Price store", a.store.Backend(), 16)
	resultCache := "disabled"
	if a.redis.Enabled() {
		resultCache = "redis " + a.redis.Addr()
	}
	PrintKeyValue("Result cache", resultCache, 16)

	last, ok, err := a.store.LastDate(ctx)
	if err != nil {
		return fmt.Errorf("read last cached date: %w", err)
	}
	if ok {
		PrintKeyValue("Last cached day", FormatDate(last), 16)
	} else {
		PrintKeyValue("Last cached day", "(empty)", 16)
	}

	b := a.service.Bounds()
	fmt.Println()
	fmt.Println("📅 Selectable window")
	PrintKeyValue("Earliest", FormatDate(b.Earliest), 16)
	PrintKeyValue("Latest start", FormatDate(b.LatestStart()), 16)
	PrintKeyValue("Earliest end", FormatDate(b.EarliestEnd()), 16)
	PrintKeyValue("Today", FormatDate(b.Today), 16)

	an := a.cfg.Analysis
	fmt.Println()
	fmt.Println("⚙️  Analysis defaults")
	PrintKeyValue("Periods/year", strconv.Itoa(an.PeriodsPerYear), 16)
	PrintKeyValue("Frontier trials", strconv.Itoa(an.FrontierTrials), 16)
	PrintKeyValue("Rolling trials", strconv.Itoa(an.RollingTrials), 16)
	PrintKeyValue("Min kept", FormatPercent(an.MinFractionKept), 16)
	PrintKeyValue("Workers", strconv.Itoa(an.Workers), 16)
	PrintKeyValue("Auto sync", strconv.FormatBool(an.AutoSync), 16)
	PrintKeyValue("Sync schedule", a.cfg.SyncSchedule, 16)

	if !ok {
		PrintWarning("Price cache is empty. Run `frontier fetch` first.")
	} else if b.Today.Sub(last).Hours() > 48 {
		PrintWarning(fmt.Sprintf("Price cache is stale (%s). Run `frontier fetch` or enable AUTO_SYNC.", FormatDate(last)))
	}

	return nil
}
