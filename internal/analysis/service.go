package analysis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/internal/frontier"
	"github.com/wonny/frontier/internal/pricestore"
	"github.com/wonny/frontier/pkg/config"
	"github.com/wonny/frontier/pkg/logger"
	"github.com/wonny/frontier/pkg/redis"
)

// PriceProvider supplies the cached price panel (implemented by pricestore.Syncer)
type PriceProvider interface {
	Load(ctx context.Context) (contracts.PricePanel, error)
	Sync(ctx context.Context, end time.Time) (*pricestore.SyncResult, error)
}

// ResultCache stores finished reports (implemented by redis.Cache)
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service runs frontier and robustness analyses on cached prices
// ⭐ SSOT: 분석 요청 → 기간 검증 → 패널 → 엔진 → 리포트 흐름은 여기서만
type Service struct {
	prices PriceProvider
	cache  ResultCache
	engine *frontier.Engine
	cfg    config.AnalysisConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new analysis service; cache may be nil
func NewService(prices PriceProvider, cache ResultCache, cfg config.AnalysisConfig, log *logger.Logger) *Service {
	return &Service{
		prices: prices,
		cache:  cache,
		engine: frontier.NewEngine(cfg.PeriodsPerYear),
		cfg:    cfg,
		logger: log.WithComponent("analysis"),
		now:    time.Now,
	}
}

// WithClock overrides the clock used for "today"
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today returns the current UTC day
func (s *Service) Today() time.Time {
	return contracts.TruncateDay(s.now())
}

// Bounds returns today's selectable date window
func (s *Service) Bounds() DateBounds {
	return BoundsFromConfig(s.cfg, s.Today())
}

// =============================================================================
// Frontier
// =============================================================================

// FrontierRequest zero values mean configured defaults
type FrontierRequest struct {
	Start  time.Time
	End    time.Time
	Trials int
	Seed   int64
}

// FrontierReport is one frontier run over [Start, End]
type FrontierReport struct {
	RunID          string                   `json:"run_id"`
	Start          time.Time                `json:"start"`
	End            time.Time                `json:"end"`
	Assets         []string                 `json:"assets"`
	DataRows       int                      `json:"data_rows"` // 수익률 행 수
	Trials         int                      `json:"trials"`
	Seed           int64                    `json:"seed"`
	PeriodsPerYear int                      `json:"periods_per_year"`
	Frontier       *frontier.FrontierResult `json:"frontier"`
	MinVariance    frontier.Trial           `json:"min_variance"`
	Corners        []frontier.Trial         `json:"corners"` // 자산별 100% 포트폴리오
	GeneratedAt    time.Time                `json:"generated_at"`
	Cached         bool                     `json:"cached"`
}

// Frontier runs a frontier search over the requested window
func (s *Service) Frontier(ctx context.Context, req FrontierRequest) (*FrontierReport, error) {
	today := s.Today()

	if req.Start.IsZero() {
		req.Start = s.cfg.DefaultStart
	}
	if req.End.IsZero() {
		req.End = today
	}
	req.Start = contracts.TruncateDay(req.Start)
	req.End = contracts.TruncateDay(req.End)
	if req.Trials == 0 {
		req.Trials = s.cfg.FrontierTrials
	}
	// 데이터 동기화 전에 거절
	if req.Trials < 1 || req.Trials > frontier.MaxTrials {
		return nil, fmt.Errorf("%w: got %d (allowed 1..%d)", contracts.ErrInvalidTrials, req.Trials, frontier.MaxTrials)
	}

	if err := ValidateDateRange(req.Start, req.End, BoundsFromConfig(s.cfg, today)); err != nil {
		return nil, err
	}

	panel, err := s.panelThrough(ctx, req.End)
	if err != nil {
		return nil, err
	}

	seed, seeded := s.resolveSeed(req.Seed)
	lastDate, _ := panel.LastDate()
	key := redis.FrontierKey(
		req.Start.Format(contracts.DateLayout), req.End.Format(contracts.DateLayout),
		strconv.Itoa(req.Trials), strconv.FormatInt(seed, 10),
		lastDate.Format(contracts.DateLayout), strconv.Itoa(s.engine.PeriodsPerYear()),
	)

	if seeded {
		var cached FrontierReport
		if s.lookup(ctx, key, &cached) {
			cached.Cached = true
			return &cached, nil
		}
	}

	rets, err := panel.Between(req.Start, req.End).Returns()
	if err != nil {
		return nil, fmt.Errorf("window %s..%s: %w",
			req.Start.Format(contracts.DateLayout), req.End.Format(contracts.DateLayout), err)
	}

	result, err := s.engine.SearchFrontier(frontier.NewRand(seed), rets, req.Trials)
	if err != nil {
		return nil, err
	}
	corners, err := s.engine.CornerPortfolios(rets)
	if err != nil {
		return nil, err
	}

	report := &FrontierReport{
		RunID:          uuid.New().String(),
		Start:          req.Start,
		End:            req.End,
		Assets:         rets.Assets,
		DataRows:       rets.Rows(),
		Trials:         req.Trials,
		Seed:           seed,
		PeriodsPerYear: s.engine.PeriodsPerYear(),
		Frontier:       result,
		MinVariance:    result.MinVariance(),
		Corners:        corners,
		GeneratedAt:    s.now().UTC(),
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":      report.RunID,
		"start":       req.Start.Format(contracts.DateLayout),
		"end":         req.End.Format(contracts.DateLayout),
		"rows":        report.DataRows,
		"trials":      req.Trials,
		"min_var_vol": report.MinVariance.Volatility,
	}).Info("Frontier search completed")

	if seeded {
		s.store(ctx, key, report)
	}

	return report, nil
}

// =============================================================================
// Robustness
// =============================================================================

// RobustnessRequest zero values mean configured defaults
type RobustnessRequest struct {
	MinFractionKept float64
	Trials          int
	Seed            int64
	Workers         int

	// OnRow receives rows in start-date order (cached runs are replayed)
	OnRow func(index, total int, row frontier.RobustnessRow)
}

// RobustnessReport is one rolling-start study over the full cached history
type RobustnessReport struct {
	RunID           string                     `json:"run_id"`
	DataStart       time.Time                  `json:"data_start"`
	DataEnd         time.Time                  `json:"data_end"`
	MinFractionKept float64                    `json:"min_fraction_kept"`
	TrialsPerWindow int                        `json:"trials_per_window"`
	Seed            int64                      `json:"seed"`
	Table           *frontier.RobustnessTable  `json:"table"`
	Summary         frontier.RobustnessSummary `json:"summary"`
	GeneratedAt     time.Time                  `json:"generated_at"`
	Cached          bool                       `json:"cached"`
}

// Robustness runs the rolling min-variance study on the full price history
func (s *Service) Robustness(ctx context.Context, req RobustnessRequest) (*RobustnessReport, error) {
	if req.MinFractionKept == 0 {
		req.MinFractionKept = s.cfg.MinFractionKept
	}
	if req.Trials == 0 {
		req.Trials = s.cfg.RollingTrials
	}
	if req.Workers == 0 {
		req.Workers = s.cfg.Workers
	}

	cfg := frontier.RollingConfig{
		MinFractionKept: req.MinFractionKept,
		TrialsPerWindow: req.Trials,
		Workers:         req.Workers,
		OnRow:           req.OnRow,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	panel, err := s.panelThrough(ctx, s.Today())
	if err != nil {
		return nil, err
	}

	seed, seeded := s.resolveSeed(req.Seed)
	cfg.Seed = seed

	firstDate, _ := panel.FirstDate()
	lastDate, _ := panel.LastDate()
	key := redis.RobustnessKey(
		strconv.FormatFloat(req.MinFractionKept, 'f', -1, 64), strconv.Itoa(req.Trials),
		strconv.FormatInt(seed, 10), firstDate.Format(contracts.DateLayout),
		lastDate.Format(contracts.DateLayout), strconv.Itoa(s.engine.PeriodsPerYear()),
	)

	if seeded {
		var cached RobustnessReport
		if s.lookup(ctx, key, &cached) && cached.Table != nil {
			cached.Cached = true
			if req.OnRow != nil {
				for i, row := range cached.Table.Rows {
					req.OnRow(i, cached.Table.Len(), row)
				}
			}
			return &cached, nil
		}
	}

	rets, err := panel.Returns()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	table, err := s.engine.RollingMinVar(ctx, rets, cfg)
	if err != nil {
		return nil, err
	}

	report := &RobustnessReport{
		RunID:           uuid.New().String(),
		DataStart:       firstDate,
		DataEnd:         lastDate,
		MinFractionKept: req.MinFractionKept,
		TrialsPerWindow: req.Trials,
		Seed:            seed,
		Table:           table,
		Summary:         table.Summary(),
		GeneratedAt:     s.now().UTC(),
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":   report.RunID,
		"windows":  table.Len(),
		"trials":   req.Trials,
		"workers":  req.Workers,
		"duration": time.Since(started).String(),
	}).Info("Robustness study completed")

	if seeded {
		s.store(ctx, key, report)
	}

	return report, nil
}

// =============================================================================
// helpers
// =============================================================================

// panelThrough loads cached prices, syncing first when they end before `end`
func (s *Service) panelThrough(ctx context.Context, end time.Time) (contracts.PricePanel, error) {
	panel, err := s.prices.Load(ctx)
	if err != nil {
		return contracts.PricePanel{}, err
	}

	last, ok := panel.LastDate()
	if s.cfg.AutoSync && (!ok || last.Before(end)) {
		res, err := s.prices.Sync(ctx, end)
		switch {
		case err == nil:
			panel = res.Panel
		case panel.Empty():
			return contracts.PricePanel{}, fmt.Errorf("price cache is empty and sync failed: %w", err)
		default:
			// 다운로드 실패 시 캐시된 데이터로 계속
			s.logger.WithError(err).Warn("Price sync failed, using cached prices")
		}
	}

	if panel.Empty() {
		return contracts.PricePanel{}, fmt.Errorf("%w: price cache is empty (run fetch first)", contracts.ErrInsufficientData)
	}
	return panel, nil
}

// resolveSeed returns the seed to use and whether the caller pinned it
func (s *Service) resolveSeed(requested int64) (int64, bool) {
	if requested != 0 {
		return requested, true
	}
	if s.cfg.Seed != 0 {
		return s.cfg.Seed, true
	}
	return time.Now().UnixNano(), false
}

func (s *Service) lookup(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.WithError(err).Warn("Result cache read failed")
		return false
	}
	return hit
}

func (s *Service) store(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	ttl := s.cfg.ResultTTL
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.WithError(err).Warn("Result cache write failed")
	}
}
