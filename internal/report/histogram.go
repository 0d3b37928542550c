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

// DefaultBins 히스토그램 구간 수
const DefaultBins = 50

// Metric is one robustness column to plot
type Metric struct {
	Key    string // 파일/URL 이름 (meanrets, vols, weights_gmx ...)
	Title  string
	XLabel string
	Values []float64
}

// Metrics returns the plottable columns: mean return, volatility, one weight column per asset
func Metrics(table *frontier.RobustnessTable) []Metric {
	metrics := []Metric{
		{
			Key:    "meanrets",
			Title:  "Distribution of Mean Returns of Min-Variance Portfolios with Different Start Dates",
			XLabel: "Mean Return",
			Values: table.Returns(),
		},
		{
			Key:    "vols",
			Title:  "Distribution of Volatilities of Min-Variance Portfolios with Different Start Dates",
			XLabel: "Volatility",
			Values: table.Volatilities(),
		},
	}

	for j, asset := range table.Assets {
		metrics = append(metrics, Metric{
			Key:    "weights_" + strings.ToLower(asset),
			Title:  fmt.Sprintf("Distribution of %s Weights of Min-Variance Portfolios with Different Start Dates", asset),
			XLabel: asset + " Proportion",
			Values: table.Weights(j),
		})
	}

	return metrics
}

// FindMetric looks a metric up by key
func FindMetric(table *frontier.RobustnessTable, key string) (Metric, bool) {
	for _, m := range Metrics(table) {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

// FileName returns the PNG name of a metric
func FileName(key string) string {
	return "minvar_portfolios_" + key + ".png"
}

// Histogram bins values into nbins equal-width buckets over [min, max].
// The max value lands in the last bucket; a constant column yields one full bucket.
func Histogram(values []float64, nbins int) (counts []float64, edges []float64) {
	if len(values) == 0 || nbins < 1 {
		return nil, nil
	}

	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		return []float64{float64(len(values))}, []float64{lo, hi}
	}

	width := (hi - lo) / float64(nbins)
	counts = make([]float64, nbins)
	edges = make([]float64, nbins+1)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[nbins] = hi

	for _, v := range values {
		k := int(math.Floor((v - lo) / width))
		if k >= nbins {
			k = nbins - 1
		}
		if k < 0 {
			k = 0
		}
		counts[k]++
	}

	return counts, edges
}

// RenderHistogram renders a metric as a bar chart PNG with the median in the subtitle
func RenderHistogram(m Metric, nbins int) ([]byte, error) {
	if len(m.Values) == 0 {
		return nil, fmt.Errorf("no values to plot for %s", m.Key)
	}

	counts, edges := Histogram(m.Values, nbins)

	labels := make([]string, len(counts))
	for i := range counts {
		center := (edges[i] + edges[i+1]) / 2
		labels[i] = formatPercent(center)
	}

	split := len(labels) / 8
	if split < 1 {
		split = 1
	}

	subtitle := fmt.Sprintf("%s • Median = %s • n = %d", m.XLabel, formatPercent(frontier.Median(m.Values)), len(m.Values))

	p, err := charts.BarRender(
		[][]float64{counts},
		charts.TitleTextOptionFunc(m.Title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: split,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			DivideCount: 5,
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

// WriteCharts renders every metric into dir and returns the written paths
func WriteCharts(dir string, table *frontier.RobustnessTable, nbins int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}

	var paths []string
	for _, m := range Metrics(table) {
		buf, err := RenderHistogram(m, nbins)
		if err != nil {
			return paths, err
		}

		path := filepath.Join(dir, FileName(m.Key))
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
