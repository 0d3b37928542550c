package frontier

import (
	"fmt"
	"math/rand"

	"github.com/wonny/frontier/internal/contracts"
)

// Engine runs frontier searches and rolling studies
// 상태 없는 계산기: 난수원은 호출자가 주입한다.
type Engine struct {
	periodsPerYear int
}

// NewEngine creates an engine; periodsPerYear <= 0 means DefaultPeriodsPerYear
func NewEngine(periodsPerYear int) *Engine {
	return &Engine{periodsPerYear: periods(periodsPerYear)}
}

// PeriodsPerYear returns the annualization factor in use
func (e *Engine) PeriodsPerYear() int {
	return e.periodsPerYear
}

var defaultEngine = NewEngine(DefaultPeriodsPerYear)

// SearchFrontier runs a search with the daily (365) convention
func SearchFrontier(rng *rand.Rand, panel contracts.ReturnsPanel, nTrials int) (*FrontierResult, error) {
	return defaultEngine.SearchFrontier(rng, panel, nTrials)
}

// SearchMinVariance runs a streaming min-variance search with the daily (365) convention
func SearchMinVariance(rng *rand.Rand, panel contracts.ReturnsPanel, nTrials int) (Trial, error) {
	return defaultEngine.SearchMinVariance(rng, panel, nTrials)
}

// =============================================================================
// Frontier Search
// =============================================================================

// SearchFrontier samples nTrials random portfolios and keeps all of them.
// MinVarianceIndex points at the lowest volatility, first occurrence on ties.
func (e *Engine) SearchFrontier(rng *rand.Rand, panel contracts.ReturnsPanel, nTrials int) (*FrontierResult, error) {
	if err := checkTrials(nTrials); err != nil {
		return nil, err
	}

	ev, err := newEvaluator(panel, e.periodsPerYear)
	if err != nil {
		return nil, err
	}

	result := &FrontierResult{
		Assets: panel.Assets,
		Trials: make([]Trial, 0, nTrials),
	}

	for i := 0; i < nTrials; i++ {
		trial, err := e.sampleTrial(rng, ev)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", i, err)
		}
		result.Trials = append(result.Trials, trial)

		if trial.Volatility < result.Trials[result.MinVarianceIndex].Volatility {
			result.MinVarianceIndex = i
		}
	}

	return result, nil
}

// SearchMinVariance is SearchFrontier without retaining the trials.
// Given the same generator state it returns the same trial as SearchFrontier(...).MinVariance().
func (e *Engine) SearchMinVariance(rng *rand.Rand, panel contracts.ReturnsPanel, nTrials int) (Trial, error) {
	if err := checkTrials(nTrials); err != nil {
		return Trial{}, err
	}

	ev, err := newEvaluator(panel, e.periodsPerYear)
	if err != nil {
		return Trial{}, err
	}

	var best Trial
	for i := 0; i < nTrials; i++ {
		trial, err := e.sampleTrial(rng, ev)
		if err != nil {
			return Trial{}, fmt.Errorf("trial %d: %w", i, err)
		}
		if i == 0 || trial.Volatility < best.Volatility {
			best = trial
		}
	}

	return best, nil
}

// CornerPortfolios evaluates the 100%-single-asset portfolios in column order
func (e *Engine) CornerPortfolios(panel contracts.ReturnsPanel) ([]Trial, error) {
	ev, err := newEvaluator(panel, e.periodsPerYear)
	if err != nil {
		return nil, err
	}

	corners := make([]Trial, panel.Cols())
	for j := range corners {
		w := make(WeightVector, panel.Cols())
		w[j] = 1
		if corners[j], err = ev.evaluate(w); err != nil {
			return nil, err
		}
	}

	return corners, nil
}

func checkTrials(nTrials int) error {
	if nTrials < 1 || nTrials > MaxTrials {
		return fmt.Errorf("%w: got %d (allowed 1..%d)", contracts.ErrInvalidTrials, nTrials, MaxTrials)
	}
	return nil
}

func (e *Engine) sampleTrial(rng *rand.Rand, ev *evaluator) (Trial, error) {
	w, err := SampleWeights(rng, len(ev.means))
	if err != nil {
		return Trial{}, err
	}
	return ev.evaluate(w)
}
