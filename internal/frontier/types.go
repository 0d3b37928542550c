package frontier

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// =============================================================================
// Conventions
// =============================================================================

const (
	// DefaultPeriodsPerYear 암호화폐는 매일 거래되므로 252가 아니라 365일로 연율화
	DefaultPeriodsPerYear = 365

	// DefaultFrontierTrials 단일 프론티어 화면용 시행 횟수
	DefaultFrontierTrials = 1000

	// MaxTrials 한 번의 탐색(또는 윈도우)당 시행 상한: 전체 시행을 보관하는 프론티어 결과의 메모리 상한
	MaxTrials = 1_000_000

	// DefaultRollingTrials 롤링 스윕의 윈도우당 시행 횟수 (정밀도 대신 전체 실행 시간)
	DefaultRollingTrials = 500

	// DefaultMinFractionKept 가장 짧은 윈도우도 전체 이력의 70% 이상 사용
	DefaultMinFractionKept = 0.7

	// MaxWeightDraws 합이 0인 표본을 다시 뽑는 최대 횟수
	MaxWeightDraws = 10

	// WeightSumTolerance 가중치 합 허용 오차
	WeightSumTolerance = 1e-9
)

// =============================================================================
// Weight / Trial / Frontier
// =============================================================================

// WeightVector is one allocation over the panel's columns, non-negative and summing to 1
type WeightVector []float64

// Sum returns the total weight
func (w WeightVector) Sum() float64 {
	return floats.Sum(w)
}

// Trial is one evaluated random portfolio
type Trial struct {
	Weights    WeightVector `json:"weights"`
	Return     float64      `json:"return"`     // 연율화 평균 수익률
	Volatility float64      `json:"volatility"` // 연율화 변동성
}

// FrontierResult holds every trial of one search plus the minimum-variance pointer
// ⭐ SSOT: 최소 분산 동률은 생성 순서상 첫 번째 시행
type FrontierResult struct {
	Assets           []string `json:"assets"`
	Trials           []Trial  `json:"trials"`
	MinVarianceIndex int      `json:"min_variance_index"`
}

// MinVariance returns the minimum-volatility trial
func (r *FrontierResult) MinVariance() Trial {
	return r.Trials[r.MinVarianceIndex]
}

// Volatilities returns the x-axis of the scatter
func (r *FrontierResult) Volatilities() []float64 {
	out := make([]float64, len(r.Trials))
	for i, t := range r.Trials {
		out[i] = t.Volatility
	}
	return out
}

// Returns returns the y-axis of the scatter
func (r *FrontierResult) Returns() []float64 {
	out := make([]float64, len(r.Trials))
	for i, t := range r.Trials {
		out[i] = t.Return
	}
	return out
}

// =============================================================================
// Robustness Table
// =============================================================================

// RobustnessRow is the minimum-variance portfolio of the window starting at StartDate
type RobustnessRow struct {
	StartDate  time.Time    `json:"start_date"`
	Volatility float64      `json:"volatility"`
	Return     float64      `json:"return"`
	Weights    WeightVector `json:"weights"`
	WindowRows int          `json:"window_rows"` // 윈도우 수익률 행 수 (시작일이 늦을수록 감소)
}

// RobustnessTable is built once per study and never modified afterwards
type RobustnessTable struct {
	Assets          []string        `json:"assets"`
	MinFractionKept float64         `json:"min_fraction_kept"`
	TrialsPerWindow int             `json:"trials_per_window"`
	Rows            []RobustnessRow `json:"rows"`
}

// Len returns the number of start dates
func (t *RobustnessTable) Len() int {
	return len(t.Rows)
}

// Volatilities returns the min-variance volatility column
func (t *RobustnessTable) Volatilities() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Volatility
	}
	return out
}

// Returns returns the min-variance return column
func (t *RobustnessTable) Returns() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Return
	}
	return out
}

// Weights returns the weight column of asset j
func (t *RobustnessTable) Weights(j int) []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Weights[j]
	}
	return out
}

// ColumnSummary 분포 요약 (대시보드 주석용 중앙값 포함)
type ColumnSummary struct {
	Name   string  `json:"name"`
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// RobustnessSummary reduces each table column to its distribution summary
type RobustnessSummary struct {
	Count      int             `json:"count"`
	Return     ColumnSummary   `json:"return"`
	Volatility ColumnSummary   `json:"volatility"`
	Weights    []ColumnSummary `json:"weights"`
}

// Summary computes median/mean/min/max of every column
func (t *RobustnessTable) Summary() RobustnessSummary {
	s := RobustnessSummary{
		Count:      t.Len(),
		Return:     Summarize("return", t.Returns()),
		Volatility: Summarize("volatility", t.Volatilities()),
		Weights:    make([]ColumnSummary, len(t.Assets)),
	}
	for j, asset := range t.Assets {
		s.Weights[j] = Summarize(asset, t.Weights(j))
	}
	return s
}

// Summarize builds a ColumnSummary; empty input yields zeros
func Summarize(name string, values []float64) ColumnSummary {
	if len(values) == 0 {
		return ColumnSummary{Name: name}
	}
	return ColumnSummary{
		Name:   name,
		Median: Median(values),
		Mean:   stat.Mean(values, nil),
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// Median averages the two middle values for even lengths
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
