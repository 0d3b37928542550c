package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Price store backend: postgres | sqlite
	PriceStore string

	Database DatabaseConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig

	// External APIs
	DefiLlama DefiLlamaConfig

	// Portfolio assets (column order of every panel)
	Assets []AssetConfig

	Analysis AnalysisConfig

	// Scheduler
	SyncSchedule string // cron expression (with seconds)

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SQLiteConfig holds the local price store configuration
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DefiLlamaConfig holds DefiLlama coins API configuration
type DefiLlamaConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RatePerSec   float64
	RateBurst    int
	SearchWidth  string
	MaxRetries   int
	InitialDelay time.Duration
}

// AssetConfig maps a column symbol to its chain and token address
type AssetConfig struct {
	Symbol  string
	Chain   string
	Address string
}

// AnalysisConfig holds frontier / robustness defaults
type AnalysisConfig struct {
	PeriodsPerYear      int
	FrontierTrials      int
	RollingTrials       int
	MinFractionKept     float64
	Workers             int
	Seed                int64
	EarliestDate        time.Time
	DefaultStart        time.Time // 프론티어 기본 시작일
	AutoSync            bool      // 캐시가 요청 종료일보다 오래되면 요청 시 증분 다운로드
	MinSpanFromEarliest time.Duration
	MinSpanBeforeToday  time.Duration
	ResultTTL           time.Duration
}

const dateLayout = "2006-01-02"

// defaultAssets GMX(arbitrum) / GNS(polygon)
const defaultAssets = "GMX=arbitrum:0xfc5a1a6eb076a2c7ad06ed22c90d7e710e35ad0a,GNS=polygon:0xE5417Af564e4bFDA1c483642db72007871397896"

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	assets, err := ParseAssets(getEnv("ASSETS", defaultAssets))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		PriceStore: strings.ToLower(getEnv("PRICE_STORE", "sqlite")),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "prices.db"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		DefiLlama: DefiLlamaConfig{
			BaseURL:      getEnv("DEFILLAMA_BASE_URL", "https://coins.llama.fi"),
			Timeout:      getEnvAsDuration("DEFILLAMA_TIMEOUT", "30s"),
			RatePerSec:   getEnvAsFloat("DEFILLAMA_RATE_PER_SEC", 2),
			RateBurst:    getEnvAsInt("DEFILLAMA_RATE_BURST", 2),
			SearchWidth:  getEnv("DEFILLAMA_SEARCH_WIDTH", "600"),
			MaxRetries:   getEnvAsInt("DEFILLAMA_MAX_RETRIES", 3),
			InitialDelay: getEnvAsDuration("DEFILLAMA_RETRY_DELAY", "1s"),
		},

		Assets: assets,

		Analysis: AnalysisConfig{
			PeriodsPerYear:      getEnvAsInt("PERIODS_PER_YEAR", 365),
			FrontierTrials:      getEnvAsInt("FRONTIER_TRIALS", 1000),
			RollingTrials:       getEnvAsInt("ROLLING_TRIALS", 500),
			MinFractionKept:     getEnvAsFloat("MIN_FRACTION_KEPT", 0.7),
			Workers:             getEnvAsInt("ANALYSIS_WORKERS", 4),
			Seed:                int64(getEnvAsInt("ANALYSIS_SEED", 0)),
			EarliestDate:        getEnvAsDate("EARLIEST_DATE", "2021-11-02"),
			DefaultStart:        getEnvAsDate("DEFAULT_START", "2022-06-01"),
			AutoSync:            getEnvAsBool("AUTO_SYNC", true),
			MinSpanFromEarliest: getEnvAsDuration("MIN_SPAN_FROM_EARLIEST", "2160h"), // 90일
			MinSpanBeforeToday:  getEnvAsDuration("MIN_SPAN_BEFORE_TODAY", "720h"),   // 30일
			ResultTTL:           getEnvAsDuration("RESULT_TTL", "24h"),
		},

		SyncSchedule: getEnv("SYNC_SCHEDULE", "0 30 0 * * *"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.PriceStore {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when PRICE_STORE=postgres")
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required when PRICE_STORE=sqlite")
		}
	default:
		return fmt.Errorf("PRICE_STORE must be one of: postgres, sqlite")
	}

	if len(c.Assets) < 2 {
		return fmt.Errorf("ASSETS must list at least 2 assets, got %d", len(c.Assets))
	}

	if c.Analysis.MinFractionKept <= 0 || c.Analysis.MinFractionKept > 1 {
		return fmt.Errorf("MIN_FRACTION_KEPT must be in (0, 1]")
	}
	if c.Analysis.FrontierTrials <= 0 || c.Analysis.RollingTrials <= 0 {
		return fmt.Errorf("FRONTIER_TRIALS and ROLLING_TRIALS must be > 0")
	}
	if c.Analysis.PeriodsPerYear <= 0 {
		return fmt.Errorf("PERIODS_PER_YEAR must be > 0")
	}

	return nil
}

// ParseAssets parses "SYM=chain:address,SYM2=chain:address"
func ParseAssets(raw string) ([]AssetConfig, error) {
	var assets []AssetConfig
	seen := make(map[string]bool)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		symbol, location, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid asset %q (expected SYM=chain:address)", part)
		}
		chain, address, ok := strings.Cut(location, ":")
		if !ok || chain == "" || address == "" {
			return nil, fmt.Errorf("invalid asset location %q (expected chain:address)", location)
		}

		symbol = strings.TrimSpace(symbol)
		if seen[symbol] {
			return nil, fmt.Errorf("duplicate asset symbol %q", symbol)
		}
		seen[symbol] = true

		assets = append(assets, AssetConfig{
			Symbol:  symbol,
			Chain:   strings.TrimSpace(chain),
			Address: strings.TrimSpace(address),
		})
	}

	return assets, nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

func getEnvAsDate(key string, defaultValue string) time.Time {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	date, err := time.Parse(dateLayout, valueStr)
	if err != nil {
		date, _ = time.Parse(dateLayout, defaultValue)
	}

	return date
}
