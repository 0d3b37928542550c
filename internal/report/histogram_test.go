package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/wonny/frontier/internal/frontier"
)

func sampleTable() *frontier.RobustnessTable {
	table := &frontier.RobustnessTable{Assets: []string{"GMX", "GNS"}}
	for i := 0; i < 40; i++ {
		w := 0.5 + float64(i%10)/100
		table.Rows = append(table.Rows, frontier.RobustnessRow{
			Volatility: 0.6 + float64(i)/200,
			Return:     -0.2 + float64(i)/50,
			Weights:    frontier.WeightVector{w, 1 - w},
		})
	}
	return table
}

func TestHistogram(t *testing.T) {
	values := []float64{0, 0.1, 0.2, 0.5, 0.9, 1.0}

	counts, edges := Histogram(values, 5)
	require.Len(t, counts, 5)
	require.Len(t, edges, 6)

	assert.Equal(t, float64(len(values)), floats.Sum(counts))
	assert.Equal(t, 0.0, edges[0])
	assert.Equal(t, 1.0, edges[5])
	assert.Equal(t, 2.0, counts[4], "max value lands in the last bucket")
}

func TestHistogram_Degenerate(t *testing.T) {
	counts, edges := Histogram([]float64{0.3, 0.3, 0.3}, 50)
	assert.Equal(t, []float64{3}, counts)
	assert.Equal(t, []float64{0.3, 0.3}, edges)

	counts, edges = Histogram(nil, 50)
	assert.Nil(t, counts)
	assert.Nil(t, edges)
}

func TestMetrics(t *testing.T) {
	metrics := Metrics(sampleTable())

	keys := make([]string, len(metrics))
	for i, m := range metrics {
		keys[i] = m.Key
		assert.Len(t, m.Values, 40)
	}
	assert.Equal(t, []string{"meanrets", "vols", "weights_gmx", "weights_gns"}, keys)

	m, ok := FindMetric(sampleTable(), "weights_gns")
	require.True(t, ok)
	assert.Equal(t, "GNS Proportion", m.XLabel)

	_, ok = FindMetric(sampleTable(), "sharpe")
	assert.False(t, ok)

	assert.Equal(t, "minvar_portfolios_vols.png", FileName("vols"))
}

func TestRenderHistogram(t *testing.T) {
	m, ok := FindMetric(sampleTable(), "vols")
	require.True(t, ok)

	buf, err := RenderHistogram(m, DefaultBins)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf, []byte("\x89PNG")), "PNG signature")

	_, err = RenderHistogram(Metric{Key: "empty"}, DefaultBins)
	assert.Error(t, err)
}

func TestWriteCharts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "png")

	paths, err := WriteCharts(dir, sampleTable(), 20)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Equal(t, filepath.Join(dir, "minvar_portfolios_meanrets.png"), paths[0])
}

func sampleFrontier() (*frontier.FrontierResult, []frontier.Trial) {
	result := &frontier.FrontierResult{Assets: []string{"GMX", "GNS"}}
	for i := 0; i <= 100; i++ {
		w := float64(i) / 100
		// 두 자산 곡선을 흉내낸 포물선: 변동성 최소점은 w=0.6
		result.Trials = append(result.Trials, frontier.Trial{
			Weights:    frontier.WeightVector{w, 1 - w},
			Return:     0.4*w - 0.1,
			Volatility: 0.5 + (w-0.6)*(w-0.6),
		})
	}
	result.MinVarianceIndex = 60

	corners := []frontier.Trial{
		{Weights: frontier.WeightVector{1, 0}, Return: 0.3, Volatility: 0.66},
		{Weights: frontier.WeightVector{0, 1}, Return: -0.1, Volatility: 0.86},
	}
	return result, corners
}

func TestFrontierEnvelope(t *testing.T) {
	result, corners := sampleFrontier()
	points := append(append([]frontier.Trial{}, result.Trials...), corners...)

	env := FrontierEnvelope(points, 10)
	require.Len(t, env.Volatility, 10)
	require.Len(t, env.Upper, 10)
	require.Len(t, env.Lower, 10)

	assert.InDelta(t, 0.5, env.Volatility[0], 0.036/2+1e-12, "first bin starts at the min-variance volatility")
	for k := range env.Upper {
		assert.GreaterOrEqual(t, env.Upper[k], env.Lower[k])
	}
	// 가장 높은 변동성 구간에는 GNS 100% 코너(-0.1)가 있다
	assert.Equal(t, -0.1, env.Lower[9])

	t.Run("degenerate", func(t *testing.T) {
		env := FrontierEnvelope([]frontier.Trial{{Return: 0.2, Volatility: 0.4}, {Return: 0.1, Volatility: 0.4}}, 10)
		assert.Equal(t, []float64{0.2}, env.Upper)
		assert.Equal(t, []float64{0.1}, env.Lower)

		assert.Empty(t, FrontierEnvelope(nil, 10).Volatility)
	})
}

func TestRenderFrontier(t *testing.T) {
	result, corners := sampleFrontier()

	buf, err := RenderFrontier(result, corners, DefaultFrontierBins)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf, []byte("\x89PNG")), "PNG signature")

	assert.Contains(t, frontierSubtitle(result, corners), "GMX 60% / GNS 40%")
	assert.Contains(t, frontierSubtitle(result, corners), "100% GNS")

	_, err = RenderFrontier(&frontier.FrontierResult{}, nil, DefaultFrontierBins)
	assert.Error(t, err)
	_, err = RenderFrontier(nil, nil, DefaultFrontierBins)
	assert.Error(t, err)

	path, err := WriteFrontierChart(t.TempDir(), result, corners, 20)
	require.NoError(t, err)
	assert.Equal(t, FrontierFileName, filepath.Base(path))
}
