package pricestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/pkg/logger"
)

// SyncResult 증분 동기화 결과
type SyncResult struct {
	FetchedFrom time.Time           `json:"fetched_from,omitempty"`
	FetchedTo   time.Time           `json:"fetched_to,omitempty"`
	NewRows     int                 `json:"new_rows"`
	Skipped     bool                `json:"skipped"` // 캐시가 이미 최신
	Panel       contracts.PricePanel `json:"-"`
}

// Syncer downloads only the missing date range and keeps the cache current
// ⭐ SSOT: 가격 다운로드 → 캐시 저장 → 병합 흐름은 여기서만
type Syncer struct {
	source   contracts.PriceSource
	cache    contracts.PriceCache
	assets   []contracts.Asset
	earliest time.Time
	logger   *logger.Logger

	mu sync.Mutex
}

// NewSyncer creates a new syncer; earliest is the first date ever fetched on an empty cache
func NewSyncer(source contracts.PriceSource, cache contracts.PriceCache, assets []contracts.Asset, earliest time.Time, log *logger.Logger) *Syncer {
	return &Syncer{
		source:   source,
		cache:    cache,
		assets:   assets,
		earliest: contracts.TruncateDay(earliest),
		logger:   log.WithComponent("syncer"),
	}
}

// Assets returns the configured column order
func (s *Syncer) Assets() []contracts.Asset {
	return s.assets
}

// Sync fetches [last cached + 1 day, end] (or [earliest, end] on an empty cache),
// saves it as one fragment keyed by its last available date and returns the merged panel.
func (s *Syncer) Sync(ctx context.Context, end time.Time) (*SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	end = contracts.TruncateDay(end)

	start := s.earliest
	last, ok, err := s.cache.LastDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("read cache last date: %w", err)
	}
	if ok {
		start = last.AddDate(0, 0, 1)
	}

	result := &SyncResult{}

	if start.After(end) {
		result.Skipped = true
		s.logger.WithField("last_date", last.Format(contracts.DateLayout)).Debug("Price cache up to date")
	} else {
		fetched, err := s.source.GetDailyOpenPrices(ctx, s.assets, start, end)
		if err != nil {
			return nil, fmt.Errorf("fetch prices %s..%s: %w",
				start.Format(contracts.DateLayout), end.Format(contracts.DateLayout), err)
		}

		fetched = fetched.Clean()
		result.FetchedFrom = start
		result.FetchedTo = end
		result.NewRows = fetched.Rows()

		if lastAvail, ok := fetched.LastDate(); ok {
			if err := s.cache.SaveFragment(ctx, lastAvail, fetched); err != nil {
				return nil, fmt.Errorf("save fragment: %w", err)
			}
		}

		s.logger.WithFields(map[string]interface{}{
			"start":    start.Format(contracts.DateLayout),
			"end":      end.Format(contracts.DateLayout),
			"new_rows": result.NewRows,
		}).Info("Price cache synced")
	}

	panel, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result.Panel = panel

	return result, nil
}

// Load returns the cached panel in configured column order without fetching
func (s *Syncer) Load(ctx context.Context) (contracts.PricePanel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(ctx)
}

func (s *Syncer) load(ctx context.Context) (contracts.PricePanel, error) {
	panel, err := s.cache.LoadAll(ctx)
	if err != nil {
		return contracts.PricePanel{}, fmt.Errorf("load cached prices: %w", err)
	}

	symbols := make([]string, len(s.assets))
	for i, a := range s.assets {
		symbols[i] = a.Symbol
	}

	if panel.Empty() {
		return contracts.PricePanel{Assets: symbols}, nil
	}

	ordered, err := panel.Reorder(symbols)
	if err != nil {
		return contracts.PricePanel{}, fmt.Errorf("cached prices do not cover configured assets: %w", err)
	}
	return ordered, nil
}
