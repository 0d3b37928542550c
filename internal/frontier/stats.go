package frontier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/frontier/internal/contracts"
)

// =============================================================================
// Statistics Engine (pure)
// =============================================================================

// AnnualizedReturn returns dot(meanDailyReturns, weights) * periodsPerYear.
// Weights are not normalized. periodsPerYear <= 0 means DefaultPeriodsPerYear.
func AnnualizedReturn(meanDailyReturns, weights []float64, periodsPerYear int) (float64, error) {
	if len(meanDailyReturns) == 0 || len(meanDailyReturns) != len(weights) {
		return 0, fmt.Errorf("%w: %d mean returns, %d weights",
			contracts.ErrDimensionMismatch, len(meanDailyReturns), len(weights))
	}
	return annualizedReturn(meanDailyReturns, weights, periods(periodsPerYear)), nil
}

// AnnualizedVolatility returns sqrt(wᵀ Σ w) * sqrt(periodsPerYear), Σ = sample covariance (N-1).
// Panels with fewer than 2 rows fail with ErrInsufficientData rather than returning NaN.
func AnnualizedVolatility(panel contracts.ReturnsPanel, weights []float64, periodsPerYear int) (float64, error) {
	if len(weights) != panel.Cols() || len(weights) == 0 {
		return 0, fmt.Errorf("%w: %d weights for %d assets",
			contracts.ErrDimensionMismatch, len(weights), panel.Cols())
	}

	cov, err := Covariance(panel)
	if err != nil {
		return 0, err
	}

	return annualizedVolatility(cov, weights, periods(periodsPerYear)), nil
}

// Covariance returns the sample covariance matrix of the panel's columns
func Covariance(panel contracts.ReturnsPanel) (*mat.SymDense, error) {
	if panel.Rows() < 2 {
		return nil, fmt.Errorf("%w: covariance needs at least 2 return rows, got %d",
			contracts.ErrInsufficientData, panel.Rows())
	}
	if panel.Cols() == 0 {
		return nil, fmt.Errorf("%w: panel has no assets", contracts.ErrDimensionMismatch)
	}

	data := mat.NewDense(panel.Rows(), panel.Cols(), nil)
	for i, row := range panel.Returns {
		if len(row) != panel.Cols() {
			return nil, fmt.Errorf("%w: return row %d has %d values, want %d",
				contracts.ErrDimensionMismatch, i, len(row), panel.Cols())
		}
		data.SetRow(i, row)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	return &cov, nil
}

func annualizedReturn(means, weights []float64, periodsPerYear int) float64 {
	return floats.Dot(means, weights) * float64(periodsPerYear)
}

func annualizedVolatility(cov *mat.SymDense, weights []float64, periodsPerYear int) float64 {
	w := mat.NewVecDense(len(weights), weights)
	variance := mat.Inner(w, cov, w)
	// 반올림으로 생긴 미세한 음수 분산은 0으로
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance) * math.Sqrt(float64(periodsPerYear))
}

func periods(periodsPerYear int) int {
	if periodsPerYear <= 0 {
		return DefaultPeriodsPerYear
	}
	return periodsPerYear
}

// =============================================================================
// evaluator: 패널 통계를 한 번만 계산하고 시행마다 재사용
// =============================================================================

type evaluator struct {
	assets         []string
	means          []float64
	cov            *mat.SymDense
	periodsPerYear int
}

func newEvaluator(panel contracts.ReturnsPanel, periodsPerYear int) (*evaluator, error) {
	cov, err := Covariance(panel)
	if err != nil {
		return nil, err
	}
	return &evaluator{
		assets:         panel.Assets,
		means:          panel.MeanReturns(),
		cov:            cov,
		periodsPerYear: periods(periodsPerYear),
	}, nil
}

func (ev *evaluator) evaluate(weights WeightVector) (Trial, error) {
	if len(weights) != len(ev.means) {
		return Trial{}, fmt.Errorf("%w: %d weights for %d assets",
			contracts.ErrDimensionMismatch, len(weights), len(ev.means))
	}
	return Trial{
		Weights:    weights,
		Return:     annualizedReturn(ev.means, weights, ev.periodsPerYear),
		Volatility: annualizedVolatility(ev.cov, weights, ev.periodsPerYear),
	}, nil
}
