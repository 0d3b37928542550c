package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vicanso/go-charts/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/wonny/frontier/internal/frontier"
)

// DefaultFrontierBins 프론티어 곡선의 변동성 구간 수
const DefaultFrontierBins = 40

// FrontierFileName PNG 파일 이름
const FrontierFileName = "efficient_frontier.png"

// Envelope is the trial cloud reduced to its upper and lower return branch per volatility bucket
type Envelope struct {
	Volatility []float64 // 구간 중심
	Upper      []float64 // 구간 내 최대 수익률 (효율적 가지)
	Lower      []float64 // 구간 내 최소 수익률
}

// FrontierEnvelope buckets points by volatility into nbins equal-width bins over [min, max]
// and keeps the highest and lowest return in each. Empty bins repeat the previous bin.
func FrontierEnvelope(points []frontier.Trial, nbins int) Envelope {
	if len(points) == 0 || nbins < 1 {
		return Envelope{}
	}

	vols := make([]float64, len(points))
	for i, p := range points {
		vols[i] = p.Volatility
	}
	lo, hi := floats.Min(vols), floats.Max(vols)
	if hi == lo {
		nbins = 1
	}

	env := Envelope{
		Volatility: make([]float64, nbins),
		Upper:      make([]float64, nbins),
		Lower:      make([]float64, nbins),
	}
	filled := make([]bool, nbins)
	width := (hi - lo) / float64(nbins)

	for _, p := range points {
		k := 0
		if width > 0 {
			k = int(math.Floor((p.Volatility - lo) / width))
		}
		if k >= nbins {
			k = nbins - 1
		}
		if k < 0 {
			k = 0
		}

		if !filled[k] {
			env.Upper[k], env.Lower[k] = p.Return, p.Return
			filled[k] = true
			continue
		}
		env.Upper[k] = math.Max(env.Upper[k], p.Return)
		env.Lower[k] = math.Min(env.Lower[k], p.Return)
	}

	for k := range env.Volatility {
		env.Volatility[k] = lo + (float64(k)+0.5)*width
		if !filled[k] && k > 0 {
			env.Upper[k], env.Lower[k] = env.Upper[k-1], env.Lower[k-1]
		}
	}

	return env
}

// RenderFrontier renders the sampled frontier as upper/lower return curves over volatility.
// Corner portfolios are folded into the cloud so the axis spans them. The minimum-variance
// point and the corners are listed in the subtitle.
func RenderFrontier(result *frontier.FrontierResult, corners []frontier.Trial, nbins int) ([]byte, error) {
	if result == nil || len(result.Trials) == 0 {
		return nil, fmt.Errorf("no trials to plot")
	}

	points := make([]frontier.Trial, 0, len(result.Trials)+len(corners))
	points = append(points, result.Trials...)
	points = append(points, corners...)
	env := FrontierEnvelope(points, nbins)

	labels := make([]string, len(env.Volatility))
	for i, v := range env.Volatility {
		labels[i] = formatPercent(v)
	}

	split := len(labels) / 8
	if split < 1 {
		split = 1
	}

	p, err := charts.LineRender(
		[][]float64{scale(env.Upper, 100), scale(env.Lower, 100)},
		charts.TitleTextOptionFunc("Efficient Frontier • "+strings.Join(result.Assets, " / "), frontierSubtitle(result, corners)),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: split,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: []string{"Max return (%)", "Min return (%)"},
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}

	return buf, nil
}

// WriteFrontierChart renders the frontier into dir and returns the written path
func WriteFrontierChart(dir string, result *frontier.FrontierResult, corners []frontier.Trial, nbins int) (string, error) {
	buf, err := RenderFrontier(result, corners, nbins)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}

	path := filepath.Join(dir, FrontierFileName)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func frontierSubtitle(result *frontier.FrontierResult, corners []frontier.Trial) string {
	mv := result.MinVariance()
	parts := []string{
		fmt.Sprintf("Min variance: vol %s, ret %s (%s)", formatPercent(mv.Volatility), formatPercent(mv.Return), weightLabel(result.Assets, mv.Weights)),
	}
	for j, c := range corners {
		name := fmt.Sprintf("#%d", j)
		if j < len(result.Assets) {
			name = result.Assets[j]
		}
		parts = append(parts, fmt.Sprintf("100%% %s: vol %s, ret %s", name, formatPercent(c.Volatility), formatPercent(c.Return)))
	}
	parts = append(parts, fmt.Sprintf("n = %d", len(result.Trials)))
	return strings.Join(parts, " • ")
}

func weightLabel(assets []string, w frontier.WeightVector) string {
	parts := make([]string, len(w))
	for i, v := range w {
		name := fmt.Sprintf("#%d", i)
		if i < len(assets) {
			name = assets[i]
		}
		parts[i] = fmt.Sprintf("%s %.0f%%", name, v*100)
	}
	return strings.Join(parts, " / ")
}

func scale(values []float64, k float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	floats.Scale(k, out)
	return out
}
