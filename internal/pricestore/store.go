package pricestore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/pkg/config"
	"github.com/wonny/frontier/pkg/database"
	"github.com/wonny/frontier/pkg/logger"
)

// Store is a price cache that owns a connection
type Store interface {
	contracts.PriceCache
	Backend() string
	Close() error
}

// Open creates the store selected by PRICE_STORE
// ⭐ SSOT: 프로세스 시작 시 한 번만 생성해서 하위 컴포넌트에 주입
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, error) {
	switch cfg.PriceStore {
	case "postgres":
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(db, log)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return store, nil

	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path, log)

	default:
		return nil, fmt.Errorf("unknown price store %q", cfg.PriceStore)
	}
}

// =============================================================================
// long-format rows <-> fragments
// =============================================================================

// priceRow is one stored (fragment, asset, date) price
type priceRow struct {
	RetrievedOn time.Time
	Asset       string
	Position    int
	Date        time.Time
	Price       float64
}

// flatten converts a fragment panel into rows (invalid prices skipped)
func flatten(retrievedOn time.Time, panel contracts.PricePanel) []priceRow {
	retrievedOn = contracts.TruncateDay(retrievedOn)

	rows := make([]priceRow, 0, panel.Rows()*panel.Cols())
	for i, d := range panel.Dates {
		for j, asset := range panel.Assets {
			v := panel.Prices[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				continue
			}
			rows = append(rows, priceRow{
				RetrievedOn: retrievedOn,
				Asset:       asset,
				Position:    j,
				Date:        contracts.TruncateDay(d),
				Price:       v,
			})
		}
	}
	return rows
}

// assemble rebuilds every fragment and merges them in retrieval order (later wins)
func assemble(rows []priceRow) contracts.PricePanel {
	byFragment := make(map[time.Time][]priceRow)
	var order []time.Time
	for _, r := range rows {
		if _, ok := byFragment[r.RetrievedOn]; !ok {
			order = append(order, r.RetrievedOn)
		}
		byFragment[r.RetrievedOn] = append(byFragment[r.RetrievedOn], r)
	}
	sort.Slice(order, func(a, b int) bool { return order[a].Before(order[b]) })

	fragments := make([]contracts.PricePanel, 0, len(order))
	for _, retrievedOn := range order {
		fragments = append(fragments, fragmentPanel(byFragment[retrievedOn]))
	}

	return contracts.MergePricePanels(fragments...)
}

func fragmentPanel(rows []priceRow) contracts.PricePanel {
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position < rows[b].Position })

	var panel contracts.PricePanel
	colOf := make(map[string]int)
	for _, r := range rows {
		if _, ok := colOf[r.Asset]; !ok {
			colOf[r.Asset] = len(panel.Assets)
			panel.Assets = append(panel.Assets, r.Asset)
		}
	}

	rowOf := make(map[time.Time]int)
	for _, r := range rows {
		i, ok := rowOf[r.Date]
		if !ok {
			i = len(panel.Dates)
			rowOf[r.Date] = i
			panel.Dates = append(panel.Dates, r.Date)
			values := make([]float64, len(panel.Assets))
			for k := range values {
				values[k] = math.NaN()
			}
			panel.Prices = append(panel.Prices, values)
		}
		panel.Prices[i][colOf[r.Asset]] = r.Price
	}

	return panel
}

// summarize builds FragmentInfo per retrieval date, oldest first
func summarize(rows []priceRow) []contracts.FragmentInfo {
	type acc struct {
		info   contracts.FragmentInfo
		dates  map[time.Time]bool
		assets map[string]bool
	}

	accs := make(map[time.Time]*acc)
	for _, r := range rows {
		a, ok := accs[r.RetrievedOn]
		if !ok {
			a = &acc{
				info:   contracts.FragmentInfo{RetrievedOn: r.RetrievedOn, FirstDate: r.Date, LastDate: r.Date},
				dates:  make(map[time.Time]bool),
				assets: make(map[string]bool),
			}
			accs[r.RetrievedOn] = a
		}
		if r.Date.Before(a.info.FirstDate) {
			a.info.FirstDate = r.Date
		}
		if r.Date.After(a.info.LastDate) {
			a.info.LastDate = r.Date
		}
		a.dates[r.Date] = true
		if !a.assets[r.Asset] {
			a.assets[r.Asset] = true
			a.info.Assets = append(a.info.Assets, r.Asset)
		}
	}

	infos := make([]contracts.FragmentInfo, 0, len(accs))
	for _, a := range accs {
		a.info.Rows = len(a.dates)
		sort.Strings(a.info.Assets)
		infos = append(infos, a.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].RetrievedOn.Before(infos[j].RetrievedOn) })

	return infos
}
