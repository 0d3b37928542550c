package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "가격 데이터 증분 다운로드",
	Long: `캐시에 없는 날짜의 일별 시가를 DefiLlama에서 받아 저장합니다.

이 명령어는:
- 캐시의 마지막 날짜 다음날부터 --end 까지 다운로드
- 빈 캐시면 EARLIEST_DATE 부터 전체 다운로드
- 다운로드 결과를 조각(fragment)으로 저장

Example:
  go run ./cmd/frontier fetch
  go run ./cmd/frontier fetch --end 2023-03-01
  go run ./cmd/frontier fetch --list`,
	RunE: runFetch,
}

var (
	fetchEnd  string
	fetchList bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	// Flags
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "다운로드 종료일 YYYY-MM-DD (기본: 오늘)")
	fetchCmd.Flags().BoolVar(&fetchList, "list", false, "다운로드 없이 캐시 조각 목록만 출력")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	end, err := parseDateFlag("end", fetchEnd)
	if err != nil {
		return err
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !fetchList {
		start := time.Now()
		PrintRunHeader(RunMetadata{
			RunType:   "Price Sync",
			Tag:       "Fetch",
			Timestamp: start.Format(time.RFC3339),
			Assets:    strings.Join(assetSymbols(a.assets), ", "),
		})

		res, err := a.syncer.Sync(ctx, end)
		if err != nil {
			PrintError(err.Error())
			return fmt.Errorf("sync prices: %w", err)
		}

		if res.Skipped {
			PrintInfo("Price cache already up to date")
		} else {
			PrintKeyValue("Fetched", FormatDate(res.FetchedFrom)+" ~ "+FormatDate(res.FetchedTo), 10)
			PrintKeyValue("New rows", strconv.Itoa(res.NewRows), 10)
		}
		PrintKeyValue("Total rows", strconv.Itoa(res.Panel.Rows()), 10)
		PrintCompletion("Fetch", time.Since(start))
	}

	return printFragments(ctx, a)
}

func printFragments(ctx context.Context, a *app) error {
	frags, err := a.store.Fragments(ctx)
	if err != nil {
		return fmt.Errorf("list fragments: %w", err)
	}

	fmt.Println()
	fmt.Printf("📦 Cached fragments (%s)\n", a.store.Backend())
	if len(frags) == 0 {
		PrintWarning("Price cache is empty. Run `frontier fetch` first.")
		return nil
	}

	widths := []int{12, 12, 12, 6, 20}
	PrintTableHeader([]string{"Retrieved", "First", "Last", "Rows", "Assets"}, widths)
	for _, f := range frags {
		PrintTableRow([]string{
			FormatDate(f.RetrievedOn),
			FormatDate(f.FirstDate),
			FormatDate(f.LastDate),
			strconv.Itoa(f.Rows),
			strings.Join(f.Assets, ","),
		}, widths)
	}
	return nil
}
