package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "frontier",
	Short: "2-자산 효율적 투자선 & 최소분산 강건성 분석",
	Long: `Frontier Unified CLI

일별 시가 스냅샷으로 두 자산 포트폴리오의 효율적 투자선을 랜덤 탐색하고,
시작일을 밀어가며 최소분산 포트폴리오가 얼마나 안정적인지 분석합니다.

Usage:
  go run ./cmd/frontier [command]

Examples:
  go run ./cmd/frontier fetch
  go run ./cmd/frontier search --start 2022-06-01 --end 2023-01-31 --seed 42
  go run ./cmd/frontier robustness --fraction 0.7 --charts ./charts
  go run ./cmd/frontier api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the command context so long studies stop between windows.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
