package frontier

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/frontier/internal/contracts"
)

// fourRowPanel A=[0.01,-0.02,0.015,0.0], B=[0.02,0.01,-0.01,0.03]
func fourRowPanel() contracts.ReturnsPanel {
	start := time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 4)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	return contracts.ReturnsPanel{
		Dates:  dates,
		Assets: []string{"A", "B"},
		Returns: [][]float64{
			{0.01, 0.02},
			{-0.02, 0.01},
			{0.015, -0.01},
			{0.0, 0.03},
		},
	}
}

// syntheticPanel m개 행의 재현 가능한 정규분포 수익률
func syntheticPanel(m int, seed int64) contracts.ReturnsPanel {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC)

	p := contracts.ReturnsPanel{Assets: []string{"GMX", "GNS"}}
	for i := 0; i < m; i++ {
		p.Dates = append(p.Dates, start.AddDate(0, 0, i))
		p.Returns = append(p.Returns, []float64{
			0.001 + 0.04*rng.NormFloat64(),
			0.002 + 0.06*rng.NormFloat64(),
		})
	}
	return p
}

// zeroSource always yields 0, forcing all-zero weight draws
type zeroSource struct{}

func (zeroSource) Int63() int64 { return 0 }
func (zeroSource) Seed(int64)   {}

// =============================================================================
// Statistics
// =============================================================================

func TestAnnualizedReturn(t *testing.T) {
	tests := []struct {
		name    string
		means   []float64
		weights []float64
		periods int
		want    float64
		wantErr error
	}{
		{name: "daily convention", means: []float64{0.001, 0.002}, weights: []float64{0.5, 0.5}, periods: 365, want: 0.0015 * 365},
		{name: "zero periods means default", means: []float64{0.001, 0.002}, weights: []float64{1, 0}, periods: 0, want: 0.365},
		{name: "unnormalized weights", means: []float64{0.001, 0.002}, weights: []float64{2, 0}, periods: 365, want: 0.73},
		{name: "dimension mismatch", means: []float64{0.001, 0.002}, weights: []float64{0.2, 0.3, 0.5}, periods: 365, wantErr: contracts.ErrDimensionMismatch},
		{name: "empty", means: nil, weights: nil, periods: 365, wantErr: contracts.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AnnualizedReturn(tt.means, tt.weights, tt.periods)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestAnnualizedReturn_Linear(t *testing.T) {
	means := fourRowPanel().MeanReturns()
	w1 := []float64{0.3, 0.7}
	w2 := []float64{0.9, 0.1}
	const a, b = 0.4, 0.6

	mixed := []float64{a*w1[0] + b*w2[0], a*w1[1] + b*w2[1]}

	r1, err := AnnualizedReturn(means, w1, 365)
	require.NoError(t, err)
	r2, err := AnnualizedReturn(means, w2, 365)
	require.NoError(t, err)
	rm, err := AnnualizedReturn(means, mixed, 365)
	require.NoError(t, err)

	assert.InDelta(t, a*r1+b*r2, rm, 1e-12)
}

func TestAnnualizedVolatility_Corners(t *testing.T) {
	panel := fourRowPanel()

	for j := range panel.Assets {
		w := make([]float64, panel.Cols())
		w[j] = 1

		got, err := AnnualizedVolatility(panel, w, 365)
		require.NoError(t, err)

		want := stat.StdDev(panel.Column(j), nil) * math.Sqrt(365)
		assert.InDelta(t, want, got, 1e-12, "asset %s", panel.Assets[j])
	}
}

func TestAnnualizedVolatility_NonNegative(t *testing.T) {
	panel := syntheticPanel(60, 7)
	rng := NewRand(11)

	for i := 0; i < 200; i++ {
		w, err := SampleWeights(rng, panel.Cols())
		require.NoError(t, err)

		vol, err := AnnualizedVolatility(panel, w, 365)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, vol, 0.0)
	}
}

func TestAnnualizedVolatility_ZeroVariance(t *testing.T) {
	panel := fourRowPanel()
	for i := range panel.Returns {
		panel.Returns[i] = []float64{0.01, 0.01}
	}

	vol, err := AnnualizedVolatility(panel, []float64{0.5, 0.5}, 365)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vol)
}

func TestAnnualizedVolatility_Errors(t *testing.T) {
	t.Run("single row", func(t *testing.T) {
		panel := fourRowPanel()
		panel.Dates = panel.Dates[:1]
		panel.Returns = panel.Returns[:1]

		_, err := AnnualizedVolatility(panel, []float64{0.5, 0.5}, 365)
		assert.ErrorIs(t, err, contracts.ErrInsufficientData)
	})

	t.Run("weight length mismatch", func(t *testing.T) {
		_, err := AnnualizedVolatility(fourRowPanel(), []float64{0.2, 0.3, 0.5}, 365)
		assert.ErrorIs(t, err, contracts.ErrDimensionMismatch)
	})
}

func TestCovariance(t *testing.T) {
	panel := fourRowPanel()

	cov, err := Covariance(panel)
	require.NoError(t, err)

	r, c := cov.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)

	assert.InDelta(t, stat.Variance(panel.Column(0), nil), cov.At(0, 0), 1e-15)
	assert.InDelta(t, stat.Variance(panel.Column(1), nil), cov.At(1, 1), 1e-15)
	assert.InDelta(t, stat.Covariance(panel.Column(0), panel.Column(1), nil), cov.At(0, 1), 1e-15)
	assert.InDelta(t, -2.125e-4/3, cov.At(0, 1), 1e-15)
}

// =============================================================================
// Sampler
// =============================================================================

func TestSampleWeights(t *testing.T) {
	rng := NewRand(42)

	for _, n := range []int{1, 2, 3, 10} {
		for i := 0; i < 100; i++ {
			w, err := SampleWeights(rng, n)
			require.NoError(t, err)
			require.Len(t, w, n)

			assert.InDelta(t, 1.0, w.Sum(), WeightSumTolerance)
			for _, v := range w {
				assert.GreaterOrEqual(t, v, 0.0)
				assert.LessOrEqual(t, v, 1.0)
			}
		}
	}
}

func TestSampleWeights_Deterministic(t *testing.T) {
	a, err := SampleWeights(NewRand(7), 2)
	require.NoError(t, err)
	b, err := SampleWeights(NewRand(7), 2)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSampleWeights_Degenerate(t *testing.T) {
	_, err := SampleWeights(rand.New(zeroSource{}), 2)
	assert.ErrorIs(t, err, contracts.ErrDegenerateWeights)
}

func TestSampleWeights_InvalidSize(t *testing.T) {
	_, err := SampleWeights(NewRand(1), 0)
	assert.ErrorIs(t, err, contracts.ErrDimensionMismatch)
}

// =============================================================================
// Frontier Search
// =============================================================================

func TestSearchFrontier(t *testing.T) {
	panel := syntheticPanel(90, 3)

	result, err := SearchFrontier(NewRand(5), panel, DefaultFrontierTrials)
	require.NoError(t, err)
	require.Len(t, result.Trials, DefaultFrontierTrials)
	assert.Equal(t, panel.Assets, result.Assets)

	best := result.MinVariance()
	for i, trial := range result.Trials {
		assert.InDelta(t, 1.0, trial.Weights.Sum(), WeightSumTolerance)
		assert.LessOrEqual(t, best.Volatility, trial.Volatility, "trial %d", i)
		// 동률이면 더 앞선 시행이 선택되어야 함
		if i < result.MinVarianceIndex {
			assert.Greater(t, trial.Volatility, best.Volatility, "trial %d", i)
		}
	}

	assert.Len(t, result.Volatilities(), DefaultFrontierTrials)
	assert.Len(t, result.Returns(), DefaultFrontierTrials)
}

func TestSearchFrontier_SingleTrial(t *testing.T) {
	result, err := SearchFrontier(NewRand(1), fourRowPanel(), 1)
	require.NoError(t, err)

	require.Len(t, result.Trials, 1)
	assert.Equal(t, 0, result.MinVarianceIndex)
	assert.Equal(t, result.Trials[0], result.MinVariance())
}

func TestSearchFrontier_TrialsConsistentWithStats(t *testing.T) {
	panel := fourRowPanel()
	result, err := SearchFrontier(NewRand(9), panel, 20)
	require.NoError(t, err)

	means := panel.MeanReturns()
	for _, trial := range result.Trials {
		ret, err := AnnualizedReturn(means, trial.Weights, 365)
		require.NoError(t, err)
		vol, err := AnnualizedVolatility(panel, trial.Weights, 365)
		require.NoError(t, err)

		assert.InDelta(t, ret, trial.Return, 1e-12)
		assert.InDelta(t, vol, trial.Volatility, 1e-12)
	}
}

func TestSearchFrontier_Errors(t *testing.T) {
	tests := []struct {
		name    string
		panel   contracts.ReturnsPanel
		trials  int
		wantErr error
	}{
		{name: "zero trials", panel: fourRowPanel(), trials: 0, wantErr: contracts.ErrInvalidTrials},
		{name: "negative trials", panel: fourRowPanel(), trials: -3, wantErr: contracts.ErrInvalidTrials},
		{name: "too many trials", panel: fourRowPanel(), trials: MaxTrials + 1, wantErr: contracts.ErrInvalidTrials},
		{name: "huge trial count", panel: fourRowPanel(), trials: math.MaxInt, wantErr: contracts.ErrInvalidTrials},
		{name: "single row", panel: fourRowPanel().Slice(3), trials: 10, wantErr: contracts.ErrInsufficientData},
		{name: "empty panel", panel: contracts.ReturnsPanel{}, trials: 10, wantErr: contracts.ErrInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SearchFrontier(NewRand(1), tt.panel, tt.trials)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = SearchMinVariance(NewRand(1), tt.panel, tt.trials)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSearchFrontier_Deterministic(t *testing.T) {
	panel := syntheticPanel(30, 1)

	a, err := SearchFrontier(NewRand(123), panel, 200)
	require.NoError(t, err)
	b, err := SearchFrontier(NewRand(123), panel, 200)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSearchMinVariance_MatchesFrontier(t *testing.T) {
	panel := syntheticPanel(45, 2)

	full, err := SearchFrontier(NewRand(77), panel, 500)
	require.NoError(t, err)
	best, err := SearchMinVariance(NewRand(77), panel, 500)
	require.NoError(t, err)

	assert.Equal(t, full.MinVariance(), best)
}

func TestSearchMinVariance_ConvergesToAnalytic(t *testing.T) {
	panel := fourRowPanel()

	cov, err := Covariance(panel)
	require.NoError(t, err)
	varA, varB, covAB := cov.At(0, 0), cov.At(1, 1), cov.At(0, 1)
	wantA := (varB - covAB) / (varA + varB - 2*covAB)

	best, err := SearchMinVariance(NewRand(2024), panel, 50000)
	require.NoError(t, err)

	assert.InDelta(t, wantA, best.Weights[0], 0.02)
	assert.InDelta(t, 1-wantA, best.Weights[1], 0.02)
}

func TestEngine_CornerPortfolios(t *testing.T) {
	panel := fourRowPanel()
	engine := NewEngine(0)
	require.Equal(t, DefaultPeriodsPerYear, engine.PeriodsPerYear())

	corners, err := engine.CornerPortfolios(panel)
	require.NoError(t, err)
	require.Len(t, corners, 2)

	means := panel.MeanReturns()
	for j, c := range corners {
		assert.Equal(t, 1.0, c.Weights[j])
		assert.InDelta(t, means[j]*365, c.Return, 1e-12)
		assert.InDelta(t, stat.StdDev(panel.Column(j), nil)*math.Sqrt(365), c.Volatility, 1e-12)
	}
}

func TestEngine_PeriodsPerYear(t *testing.T) {
	panel := fourRowPanel()

	daily, err := NewEngine(365).CornerPortfolios(panel)
	require.NoError(t, err)
	tradingDays, err := NewEngine(252).CornerPortfolios(panel)
	require.NoError(t, err)

	assert.InDelta(t, daily[0].Return*252/365, tradingDays[0].Return, 1e-12)
	assert.InDelta(t, daily[0].Volatility*math.Sqrt(252.0/365.0), tradingDays[0].Volatility, 1e-12)
}

// =============================================================================
// Rolling Study
// =============================================================================

func TestWindowCount(t *testing.T) {
	tests := []struct {
		m    int
		f    float64
		want int
	}{
		{m: 100, f: 0.7, want: 31},
		{m: 10, f: 0.9, want: 2},
		{m: 10, f: 0.7, want: 4},
		{m: 10, f: 1.0, want: 1},
		{m: 4, f: 0.5, want: 3},
		{m: 0, f: 0.7, want: 0},
		{m: 3, f: 0.6666666667, want: 1},
		{m: 3, f: 2.0 / 3.0, want: 2},
		{m: 1000, f: 0.7, want: 301},
		{m: 10, f: 0.33, want: 7},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, WindowCount(tt.m, tt.f), "m=%d f=%v", tt.m, tt.f)
	}

	t.Run("shortest window keeps the fraction", func(t *testing.T) {
		for _, f := range []float64{0.1, 0.3, 0.5, 0.6666666667, 0.7, 0.75, 0.9, 0.99, 1.0} {
			for m := 1; m <= 500; m++ {
				n := WindowCount(m, f)
				shortest := m - (n - 1)
				require.GreaterOrEqual(t, float64(shortest), float64(m)*f*(1-1e-12), "m=%d f=%v", m, f)
				// 한 칸 더 늘리면 비율을 밑돈다
				assert.Less(t, float64(shortest-1), float64(m)*f, "m=%d f=%v", m, f)
			}
		}
	})
}

func TestRollingMinVar(t *testing.T) {
	panel := syntheticPanel(40, 4)

	table, err := RollingMinVar(context.Background(), panel, RollingConfig{
		MinFractionKept: 0.7,
		TrialsPerWindow: 100,
		Seed:            99,
		Workers:         1,
	})
	require.NoError(t, err)

	// floor(40 * 0.3) + 1
	require.Equal(t, 13, table.Len())
	assert.Equal(t, panel.Assets, table.Assets)
	assert.Equal(t, 0.7, table.MinFractionKept)
	assert.Equal(t, 100, table.TrialsPerWindow)

	for i, row := range table.Rows {
		assert.Equal(t, panel.Dates[i], row.StartDate)
		assert.Equal(t, panel.Rows()-i, row.WindowRows)
		assert.InDelta(t, 1.0, row.Weights.Sum(), WeightSumTolerance)
		assert.GreaterOrEqual(t, row.Volatility, 0.0)
		assert.GreaterOrEqual(t, float64(row.WindowRows), math.Ceil(0.7*float64(panel.Rows())))

		if i > 0 {
			assert.True(t, row.StartDate.After(table.Rows[i-1].StartDate))
			assert.Less(t, row.WindowRows, table.Rows[i-1].WindowRows)
		}
	}
}

func TestRollingMinVar_WindowMatchesDirectSearch(t *testing.T) {
	panel := syntheticPanel(20, 8)
	const seed = 500

	table, err := RollingMinVar(context.Background(), panel, RollingConfig{
		MinFractionKept: 0.8,
		TrialsPerWindow: 50,
		Seed:            seed,
	})
	require.NoError(t, err)

	for i, row := range table.Rows {
		direct, err := SearchMinVariance(NewRand(seed+int64(i)), panel.Slice(i), 50)
		require.NoError(t, err)
		assert.Equal(t, direct.Weights, row.Weights, "window %d", i)
		assert.Equal(t, direct.Volatility, row.Volatility, "window %d", i)
	}
}

func TestRollingMinVar_FullFraction(t *testing.T) {
	panel := syntheticPanel(25, 5)

	table, err := RollingMinVar(context.Background(), panel, RollingConfig{
		MinFractionKept: 1.0,
		TrialsPerWindow: 30,
		Seed:            1,
	})
	require.NoError(t, err)

	require.Equal(t, 1, table.Len())
	assert.Equal(t, panel.Dates[0], table.Rows[0].StartDate)
	assert.Equal(t, panel.Rows(), table.Rows[0].WindowRows)
}

func TestRollingMinVar_ParallelMatchesSequential(t *testing.T) {
	panel := syntheticPanel(50, 6)
	cfg := RollingConfig{MinFractionKept: 0.6, TrialsPerWindow: 80, Seed: 31}

	cfg.Workers = 1
	seq, err := RollingMinVar(context.Background(), panel, cfg)
	require.NoError(t, err)

	cfg.Workers = 8
	par, err := RollingMinVar(context.Background(), panel, cfg)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestRollingMinVar_OnRowOrdered(t *testing.T) {
	panel := syntheticPanel(30, 9)

	var (
		mu      sync.Mutex
		indices []int
		totals  []int
	)
	table, err := RollingMinVar(context.Background(), panel, RollingConfig{
		MinFractionKept: 0.5,
		TrialsPerWindow: 20,
		Seed:            3,
		Workers:         4,
		OnRow: func(index, total int, row RobustnessRow) {
			mu.Lock()
			defer mu.Unlock()
			indices = append(indices, index)
			totals = append(totals, total)
		},
	})
	require.NoError(t, err)

	require.Len(t, indices, table.Len())
	for i := range indices {
		assert.Equal(t, i, indices[i])
		assert.Equal(t, table.Len(), totals[i])
	}
}

func TestRollingMinVar_Errors(t *testing.T) {
	tests := []struct {
		name    string
		panel   contracts.ReturnsPanel
		cfg     RollingConfig
		wantErr error
	}{
		{
			name:    "fraction zero",
			panel:   fourRowPanel(),
			cfg:     RollingConfig{MinFractionKept: 0, TrialsPerWindow: 10},
			wantErr: contracts.ErrInvalidFraction,
		},
		{
			name:    "fraction above one",
			panel:   fourRowPanel(),
			cfg:     RollingConfig{MinFractionKept: 1.2, TrialsPerWindow: 10},
			wantErr: contracts.ErrInvalidFraction,
		},
		{
			name:    "no trials",
			panel:   fourRowPanel(),
			cfg:     RollingConfig{MinFractionKept: 0.7, TrialsPerWindow: 0},
			wantErr: contracts.ErrInvalidTrials,
		},
		{
			name:    "too many trials",
			panel:   fourRowPanel(),
			cfg:     RollingConfig{MinFractionKept: 0.7, TrialsPerWindow: MaxTrials + 1},
			wantErr: contracts.ErrInvalidTrials,
		},
		{
			name:    "single row panel",
			panel:   fourRowPanel().Slice(3),
			cfg:     RollingConfig{MinFractionKept: 0.7, TrialsPerWindow: 10},
			wantErr: contracts.ErrInsufficientData,
		},
		{
			name:    "shortest window too small",
			panel:   fourRowPanel().Slice(2),
			cfg:     RollingConfig{MinFractionKept: 0.3, TrialsPerWindow: 10},
			wantErr: contracts.ErrInsufficientData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RollingMinVar(context.Background(), tt.panel, tt.cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRollingMinVar_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RollingMinVar(ctx, syntheticPanel(30, 1), RollingConfig{
		MinFractionKept: 0.7,
		TrialsPerWindow: 10,
		Seed:            1,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Summary
// =============================================================================

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
}

func TestRobustnessTable_Summary(t *testing.T) {
	table := &RobustnessTable{
		Assets: []string{"GMX", "GNS"},
		Rows: []RobustnessRow{
			{Volatility: 0.5, Return: 0.1, Weights: WeightVector{0.6, 0.4}},
			{Volatility: 0.7, Return: 0.3, Weights: WeightVector{0.8, 0.2}},
			{Volatility: 0.6, Return: -0.1, Weights: WeightVector{0.7, 0.3}},
		},
	}

	s := table.Summary()
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 0.6, s.Volatility.Median, 1e-12)
	assert.InDelta(t, 0.1, s.Return.Median, 1e-12)
	assert.InDelta(t, 0.1, s.Return.Mean, 1e-12)
	assert.Equal(t, -0.1, s.Return.Min)
	assert.Equal(t, 0.3, s.Return.Max)

	require.Len(t, s.Weights, 2)
	assert.Equal(t, "GMX", s.Weights[0].Name)
	assert.InDelta(t, 0.7, s.Weights[0].Median, 1e-12)
	assert.InDelta(t, 0.3, s.Weights[1].Median, 1e-12)
}

func TestRollingMinVar_WorkersAboveWindowCount(t *testing.T) {
	panel := syntheticPanel(20, 2)
	cfg := RollingConfig{MinFractionKept: 0.7, TrialsPerWindow: 50, Seed: 5, Workers: 1}

	seq, err := RollingMinVar(context.Background(), panel, cfg)
	require.NoError(t, err)

	cfg.Workers = math.MaxInt
	par, err := RollingMinVar(context.Background(), panel, cfg)
	require.NoError(t, err)

	assert.Equal(t, seq.Rows, par.Rows)
}
