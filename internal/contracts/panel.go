package contracts

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// =============================================================================
// Asset
// =============================================================================

// Asset identifies one portfolio column and where its price comes from
type Asset struct {
	Symbol  string `json:"symbol"`  // 컬럼 이름 (예: GMX)
	Chain   string `json:"chain"`   // 체인/소스 태그 (예: arbitrum)
	Address string `json:"address"` // 토큰 주소
}

// Key returns the price source identifier "chain:address"
func (a Asset) Key() string {
	return a.Chain + ":" + a.Address
}

// =============================================================================
// Price Panel
// =============================================================================

// PricePanel is a date-indexed price table, one column per asset
// ⭐ SSOT: Prices[row][col], Dates는 UTC 자정 기준 일자
// 코어는 패널을 읽기 전용으로 취급하고, 파생 패널은 항상 새 값으로 만든다.
type PricePanel struct {
	Dates  []time.Time `json:"dates"`
	Assets []string    `json:"assets"`
	Prices [][]float64 `json:"prices"`
}

// Rows returns the number of dates
func (p PricePanel) Rows() int {
	return len(p.Dates)
}

// Cols returns the number of assets
func (p PricePanel) Cols() int {
	return len(p.Assets)
}

// Empty reports whether the panel has no rows
func (p PricePanel) Empty() bool {
	return len(p.Dates) == 0
}

// FirstDate returns the earliest date
func (p PricePanel) FirstDate() (time.Time, bool) {
	if p.Empty() {
		return time.Time{}, false
	}
	return p.Dates[0], true
}

// LastDate returns the latest date
func (p PricePanel) LastDate() (time.Time, bool) {
	if p.Empty() {
		return time.Time{}, false
	}
	return p.Dates[len(p.Dates)-1], true
}

// Validate checks the cleaned-panel invariants
func (p PricePanel) Validate() error {
	if p.Cols() < 2 {
		return fmt.Errorf("%w: price panel needs at least 2 assets, got %d", ErrDimensionMismatch, p.Cols())
	}
	if len(p.Prices) != len(p.Dates) {
		return fmt.Errorf("%w: %d price rows for %d dates", ErrDimensionMismatch, len(p.Prices), len(p.Dates))
	}

	for i, row := range p.Prices {
		if len(row) != p.Cols() {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(row), p.Cols())
		}
		if i > 0 && !p.Dates[i].After(p.Dates[i-1]) {
			return fmt.Errorf("dates must be strictly increasing at row %d (%s)", i, p.Dates[i].Format(DateLayout))
		}
		for j, v := range row {
			if !validPrice(v) {
				return fmt.Errorf("invalid price %v for %s on %s", v, p.Assets[j], p.Dates[i].Format(DateLayout))
			}
		}
	}

	return nil
}

// Clean sorts by date, de-duplicates (later rows win) and drops any row with a missing value
func (p PricePanel) Clean() PricePanel {
	idx := make([]int, len(p.Dates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return p.Dates[idx[a]].Before(p.Dates[idx[b]])
	})

	out := PricePanel{
		Assets: append([]string(nil), p.Assets...),
	}

	for k, i := range idx {
		// 같은 날짜가 이어지면 마지막 행만 남김
		if k+1 < len(idx) && p.Dates[idx[k+1]].Equal(p.Dates[i]) {
			continue
		}
		if i >= len(p.Prices) || len(p.Prices[i]) != len(p.Assets) || !rowComplete(p.Prices[i]) {
			continue
		}
		out.Dates = append(out.Dates, p.Dates[i])
		out.Prices = append(out.Prices, append([]float64(nil), p.Prices[i]...))
	}

	return out
}

// Between returns the inclusive [start, end] date subset
func (p PricePanel) Between(start, end time.Time) PricePanel {
	out := PricePanel{
		Assets: append([]string(nil), p.Assets...),
	}

	for i, d := range p.Dates {
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Dates = append(out.Dates, d)
		out.Prices = append(out.Prices, append([]float64(nil), p.Prices[i]...))
	}

	return out
}

// Returns computes simple daily returns r[t] = p[t]/p[t-1] - 1; the first row is dropped
func (p PricePanel) Returns() (ReturnsPanel, error) {
	if p.Rows() < 2 {
		return ReturnsPanel{}, fmt.Errorf("%w: need at least 2 price rows, got %d", ErrInsufficientData, p.Rows())
	}

	out := ReturnsPanel{
		Dates:   append([]time.Time(nil), p.Dates[1:]...),
		Assets:  append([]string(nil), p.Assets...),
		Returns: make([][]float64, p.Rows()-1),
	}

	for t := 1; t < p.Rows(); t++ {
		row := make([]float64, p.Cols())
		for j := range row {
			row[j] = p.Prices[t][j]/p.Prices[t-1][j] - 1
		}
		out.Returns[t-1] = row
	}

	return out, nil
}

// MergePricePanels outer-joins fragments on date and cleans the result.
// Later fragments overwrite earlier values for the same (date, asset).
func MergePricePanels(panels ...PricePanel) PricePanel {
	var assets []string
	colOf := make(map[string]int)
	for _, p := range panels {
		for _, a := range p.Assets {
			if _, ok := colOf[a]; !ok {
				colOf[a] = len(assets)
				assets = append(assets, a)
			}
		}
	}

	rows := make(map[time.Time][]float64)
	for _, p := range panels {
		for i, d := range p.Dates {
			row, ok := rows[d]
			if !ok {
				row = nanRow(len(assets))
				rows[d] = row
			}
			if i >= len(p.Prices) {
				continue
			}
			for j, a := range p.Assets {
				if j < len(p.Prices[i]) && validPrice(p.Prices[i][j]) {
					row[colOf[a]] = p.Prices[i][j]
				}
			}
		}
	}

	merged := PricePanel{Assets: assets}
	for d, row := range rows {
		merged.Dates = append(merged.Dates, d)
		merged.Prices = append(merged.Prices, row)
	}

	return merged.Clean()
}

// Reorder returns the panel with columns in the given order
func (p PricePanel) Reorder(assets []string) (PricePanel, error) {
	colOf := make(map[string]int, len(p.Assets))
	for j, a := range p.Assets {
		colOf[a] = j
	}

	perm := make([]int, len(assets))
	for k, a := range assets {
		j, ok := colOf[a]
		if !ok {
			return PricePanel{}, fmt.Errorf("%w: asset %s not in panel", ErrDimensionMismatch, a)
		}
		perm[k] = j
	}

	out := PricePanel{
		Dates:  append([]time.Time(nil), p.Dates...),
		Assets: append([]string(nil), assets...),
		Prices: make([][]float64, len(p.Prices)),
	}
	for i, row := range p.Prices {
		newRow := make([]float64, len(perm))
		for k, j := range perm {
			newRow[k] = row[j]
		}
		out.Prices[i] = newRow
	}

	return out, nil
}

// =============================================================================
// Returns Panel
// =============================================================================

// ReturnsPanel holds daily simple returns, same column set as its price panel
type ReturnsPanel struct {
	Dates   []time.Time `json:"dates"`
	Assets  []string    `json:"assets"`
	Returns [][]float64 `json:"returns"`
}

// Rows returns the number of return observations
func (r ReturnsPanel) Rows() int {
	return len(r.Returns)
}

// Cols returns the number of assets
func (r ReturnsPanel) Cols() int {
	return len(r.Assets)
}

// Slice returns rows [i:]. The backing arrays are shared read-only.
func (r ReturnsPanel) Slice(i int) ReturnsPanel {
	if i < 0 {
		i = 0
	}
	if i > r.Rows() {
		i = r.Rows()
	}
	return ReturnsPanel{
		Dates:   r.Dates[i:],
		Assets:  r.Assets,
		Returns: r.Returns[i:],
	}
}

// Column returns a copy of column j
func (r ReturnsPanel) Column(j int) []float64 {
	col := make([]float64, r.Rows())
	for i, row := range r.Returns {
		col[i] = row[j]
	}
	return col
}

// MeanReturns returns the per-asset mean daily return
func (r ReturnsPanel) MeanReturns() []float64 {
	means := make([]float64, r.Cols())
	if r.Rows() == 0 {
		return means
	}
	for j := range means {
		means[j] = stat.Mean(r.Column(j), nil)
	}
	return means
}

// =============================================================================
// helpers
// =============================================================================

// DateLayout is the wire/CLI date format
const DateLayout = "2006-01-02"

// TruncateDay returns the UTC midnight of t
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func rowComplete(row []float64) bool {
	for _, v := range row {
		if !validPrice(v) {
			return false
		}
	}
	return true
}

func nanRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}
