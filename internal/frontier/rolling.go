package frontier

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/frontier/internal/contracts"
)

// RollingConfig controls the rolling-start robustness study
type RollingConfig struct {
	MinFractionKept float64 // 가장 짧은 윈도우가 유지하는 최소 비율 (0, 1]
	TrialsPerWindow int
	Seed            int64 // 윈도우 i는 Seed+i로 시드 (0이면 시간 기반)
	Workers         int   // 동시 윈도우 수 (<=1이면 순차)

	// OnRow is called once per window in start-index order (진행률 스트리밍용)
	OnRow func(index, total int, row RobustnessRow)
}

// DefaultRollingConfig returns the 70% / 500-trial sequential defaults
func DefaultRollingConfig() RollingConfig {
	return RollingConfig{
		MinFractionKept: DefaultMinFractionKept,
		TrialsPerWindow: DefaultRollingTrials,
		Workers:         1,
	}
}

// Validate checks the config
func (c RollingConfig) Validate() error {
	if math.IsNaN(c.MinFractionKept) || c.MinFractionKept <= 0 || c.MinFractionKept > 1 {
		return fmt.Errorf("%w: min fraction kept %v not in (0, 1]", contracts.ErrInvalidFraction, c.MinFractionKept)
	}
	if c.TrialsPerWindow < 1 || c.TrialsPerWindow > MaxTrials {
		return fmt.Errorf("%w: trials per window %d (allowed 1..%d)", contracts.ErrInvalidTrials, c.TrialsPerWindow, MaxTrials)
	}
	return nil
}

// WindowCount returns how many start indices a panel of m rows yields: floor(m*(1-f)) + 1.
// It is computed as m - ceil(m*f) + 1 so the shortest window always keeps at least m*f rows.
// The only slack is a relative 1e-12 on m*f, which absorbs products like 100*0.7 = 70.00000000000001.
func WindowCount(m int, minFractionKept float64) int {
	if m <= 0 {
		return 0
	}
	kept := float64(m) * minFractionKept
	shortest := int(math.Ceil(kept - kept*1e-12))
	if shortest < 0 {
		shortest = 0
	}
	last := m - shortest
	if last < 0 {
		last = 0
	}
	return last + 1
}

// RollingMinVar runs SearchMinVariance on every window returns[i:] for
// i = 0..floor(m*(1-MinFractionKept)) and collects one row per start date.
// Rows are ordered by start date regardless of worker scheduling.
func RollingMinVar(ctx context.Context, panel contracts.ReturnsPanel, cfg RollingConfig) (*RobustnessTable, error) {
	return defaultEngine.RollingMinVar(ctx, panel, cfg)
}

// RollingMinVar runs the study with this engine's annualization factor
func (e *Engine) RollingMinVar(ctx context.Context, panel contracts.ReturnsPanel, cfg RollingConfig) (*RobustnessTable, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := panel.Rows()
	if m < 2 {
		return nil, fmt.Errorf("%w: rolling study needs at least 2 return rows, got %d",
			contracts.ErrInsufficientData, m)
	}

	total := WindowCount(m, cfg.MinFractionKept)
	if shortest := m - (total - 1); shortest < 2 {
		return nil, fmt.Errorf("%w: shortest window has %d rows (m=%d, min fraction kept %v)",
			contracts.ErrInsufficientData, shortest, m, cfg.MinFractionKept)
	}

	baseSeed := cfg.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	rows := make([]RobustnessRow, total)
	emitter := newOrderedEmitter(total, rows, cfg.OnRow)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < total; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			window := panel.Slice(i)
			best, err := e.SearchMinVariance(NewRand(baseSeed+int64(i)), window, cfg.TrialsPerWindow)
			if err != nil {
				return fmt.Errorf("window %d (%s): %w", i, window.Dates[0].Format(contracts.DateLayout), err)
			}

			rows[i] = RobustnessRow{
				StartDate:  window.Dates[0],
				Volatility: best.Volatility,
				Return:     best.Return,
				Weights:    best.Weights,
				WindowRows: window.Rows(),
			}
			emitter.done(i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &RobustnessTable{
		Assets:          panel.Assets,
		MinFractionKept: cfg.MinFractionKept,
		TrialsPerWindow: cfg.TrialsPerWindow,
		Rows:            rows,
	}, nil
}

// orderedEmitter forwards finished rows to the callback in index order
type orderedEmitter struct {
	mu       sync.Mutex
	finished []bool
	next     int
	rows     []RobustnessRow
	onRow    func(index, total int, row RobustnessRow)
}

func newOrderedEmitter(total int, rows []RobustnessRow, onRow func(int, int, RobustnessRow)) *orderedEmitter {
	return &orderedEmitter{
		finished: make([]bool, total),
		rows:     rows,
		onRow:    onRow,
	}
}

func (o *orderedEmitter) done(i int) {
	if o.onRow == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.finished[i] = true
	for o.next < len(o.finished) && o.finished[o.next] {
		o.onRow(o.next, len(o.finished), o.rows[o.next])
		o.next++
	}
}
