package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"

	"github.com/wonny/frontier/internal/analysis"
	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/internal/external/defillama"
	"github.com/wonny/frontier/internal/pricestore"
	"github.com/wonny/frontier/pkg/config"
	"github.com/wonny/frontier/pkg/httputil"
	"github.com/wonny/frontier/pkg/logger"
	"github.com/wonny/frontier/pkg/redis"
)

// resultCachePrefix namespaces analysis results in redis
const resultCachePrefix = "frontier"

// app holds the wired components shared by every command
// ⭐ SSOT: 의존성 조립은 여기서만 (DB/캐시/HTTP 클라이언트는 한 번 생성해서 주입)
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	assets  []contracts.Asset
	store   pricestore.Store
	syncer  *pricestore.Syncer
	redis   *redis.Client
	service *analysis.Service
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		if err := godotenv.Overload(configFile); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp wires store → syncer → service
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	store, err := pricestore.Open(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open price store: %w", err)
	}

	// 캐시는 선택 사항: 연결 실패 시 비활성 클라이언트로 계속
	rdb := redis.ConnectOrDisable(ctx, cfg, log)

	assets := assetsFromConfig(cfg.Assets)
	source := defillama.NewClient(httputil.New(cfg, log), cfg.DefiLlama, log)
	syncer := pricestore.NewSyncer(source, store, assets, cfg.Analysis.EarliestDate, log)
	service := analysis.NewService(syncer, redis.NewCache(rdb, resultCachePrefix), cfg.Analysis, log)

	log.WithFields(map[string]interface{}{
		"store":  store.Backend(),
		"redis":  rdb.Enabled(),
		"assets": len(assets),
	}).Debug("Application wired")

	return &app{
		cfg:     cfg,
		log:     log,
		assets:  assets,
		store:   store,
		syncer:  syncer,
		redis:   rdb,
		service: service,
	}, nil
}

// Close releases the store and redis connections
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close price store")
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

func assetsFromConfig(cfgAssets []config.AssetConfig) []contracts.Asset {
	assets := make([]contracts.Asset, len(cfgAssets))
	for i, a := range cfgAssets {
		assets[i] = contracts.Asset{Symbol: a.Symbol, Chain: a.Chain, Address: a.Address}
	}
	return assets
}

func assetSymbols(assets []contracts.Asset) []string {
	symbols := make([]string, len(assets))
	for i, a := range assets {
		symbols[i] = a.Symbol
	}
	return symbols
}
