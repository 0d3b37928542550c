package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/frontier/internal/api"
	"github.com/wonny/frontier/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                              - Health check
  GET  /api/assets                          - 자산 목록 / 선택 가능 기간
  GET  /api/frontier?start&end&trials&seed  - 효율적 투자선
  GET  /api/robustness?fraction&trials&seed - 강건성 분석
  GET  /api/robustness/chart/{metric}.png   - 컬럼별 히스토그램
  GET  /api/data/coverage                   - 캐시 조각 목록
  POST /api/data/sync                       - 가격 증분 다운로드
  GET  /ws/robustness                       - 강건성 분석 스트리밍 (WebSocket)

Example:
  go run ./cmd/frontier api
  go run ./cmd/frontier api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "같은 프로세스에서 스케줄러도 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fmt.Println("=== Frontier API Server ===")

	// 1. Wire store / syncer / service
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log
	log.WithFields(map[string]interface{}{
		"port":  a.cfg.Port,
		"env":   a.cfg.Env,
		"store": a.store.Backend(),
	}).Info("Initializing API server")

	// 2. Create handlers and router
	router := api.NewRouter(api.Handlers{
		Analysis: handlers.NewAnalysisHandler(a.service, a.assets, log),
		Data:     handlers.NewDataHandler(a.syncer, a.store, log),
		Stream:   handlers.NewStreamHandler(a.service, log),
	}, log)

	// 3. Optional in-process scheduler
	if apiWithScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	// 4. Start server with graceful shutdown
	server := api.New(a.cfg, log, router)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
