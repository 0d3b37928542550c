package defillama

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/frontier/internal/contracts"
)

// maxSpanDays 한 번의 chart 요청으로 가져오는 최대 일수
const maxSpanDays = 365

// chartResponse is the /chart/{coins} payload
type chartResponse struct {
	Coins map[string]coinChart `json:"coins"`
}

type coinChart struct {
	Symbol     string       `json:"symbol"`
	Confidence float64      `json:"confidence"`
	Decimals   int          `json:"decimals"`
	Prices     []pricePoint `json:"prices"`
}

type pricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// GetDailyOpenPrices fetches the 00:00 UTC snapshot price of every asset for [start, end]
// ⭐ SSOT: 일별 시가(스냅샷) 가격 수집은 이 함수에서만
// 컬럼은 요청한 자산 순서, 한 자산이라도 값이 없는 날짜는 제외된다.
func (c *Client) GetDailyOpenPrices(ctx context.Context, assets []contracts.Asset, start, end time.Time) (contracts.PricePanel, error) {
	if len(assets) == 0 {
		return contracts.PricePanel{}, fmt.Errorf("no assets requested")
	}

	start = contracts.TruncateDay(start)
	end = contracts.TruncateDay(end)
	if end.Before(start) {
		return contracts.PricePanel{}, fmt.Errorf("%w: end %s before start %s",
			contracts.ErrInvalidDateRange, end.Format(contracts.DateLayout), start.Format(contracts.DateLayout))
	}

	keys := make([]string, len(assets))
	for i, a := range assets {
		keys[i] = a.Key()
	}
	path := "/chart/" + strings.Join(keys, ",")

	var chunks []contracts.PricePanel
	for chunkStart := start; !chunkStart.After(end); chunkStart = chunkStart.AddDate(0, 0, maxSpanDays) {
		chunkEnd := chunkStart.AddDate(0, 0, maxSpanDays-1)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		span := int(chunkEnd.Sub(chunkStart).Hours()/24) + 1

		params := url.Values{}
		params.Set("start", strconv.FormatInt(chunkStart.Unix(), 10))
		params.Set("span", strconv.Itoa(span))
		params.Set("period", "1d")
		params.Set("searchWidth", c.searchWidth)

		body, err := c.fetchJSON(ctx, path, params)
		if err != nil {
			return contracts.PricePanel{}, fmt.Errorf("fetch chart %s..%s: %w",
				chunkStart.Format(contracts.DateLayout), chunkEnd.Format(contracts.DateLayout), err)
		}

		panel, err := c.parseChartResponse(body, assets)
		if err != nil {
			return contracts.PricePanel{}, fmt.Errorf("parse response failed: %w", err)
		}
		chunks = append(chunks, panel)
	}

	merged := contracts.MergePricePanels(chunks...).Between(start, end)

	c.logger.WithFields(map[string]interface{}{
		"assets": len(assets),
		"start":  start.Format(contracts.DateLayout),
		"end":    end.Format(contracts.DateLayout),
		"rows":   merged.Rows(),
	}).Debug("Fetched daily open prices")

	return merged, nil
}

// parseChartResponse turns the coins payload into an uncleaned panel (NaN for gaps)
func (c *Client) parseChartResponse(body []byte, assets []contracts.Asset) (contracts.PricePanel, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return contracts.PricePanel{}, err
	}

	symbols := make([]string, len(assets))
	colOf := make(map[string]int, len(assets))
	for j, a := range assets {
		symbols[j] = a.Symbol
		// 주소는 대소문자 구분 없이 매칭
		colOf[strings.ToLower(a.Key())] = j
	}

	rows := make(map[time.Time][]float64)
	var dates []time.Time

	for key, coin := range resp.Coins {
		j, ok := colOf[strings.ToLower(key)]
		if !ok {
			c.logger.WithField("coin", key).Warn("Unexpected coin in chart response")
			continue
		}

		for _, pt := range coin.Prices {
			d := snapDay(pt.Timestamp)
			row, ok := rows[d]
			if !ok {
				row = make([]float64, len(assets))
				for k := range row {
					row[k] = math.NaN()
				}
				rows[d] = row
				dates = append(dates, d)
			}
			row[j] = pt.Price
		}
	}

	if len(resp.Coins) < len(assets) {
		c.logger.WithFields(map[string]interface{}{
			"requested": len(assets),
			"returned":  len(resp.Coins),
		}).Warn("Chart response is missing coins")
	}

	panel := contracts.PricePanel{Assets: symbols}
	for _, d := range dates {
		panel.Dates = append(panel.Dates, d)
		panel.Prices = append(panel.Prices, rows[d])
	}

	return panel, nil
}

// snapDay maps a snapshot timestamp to its nearest UTC midnight
func snapDay(ts int64) time.Time {
	return contracts.TruncateDay(time.Unix(ts, 0).UTC().Add(12 * time.Hour))
}
