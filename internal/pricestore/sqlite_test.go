package pricestore

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/pkg/logger"
)

func day(s string) time.Time {
	d, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "prices.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Empty(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	assert.Equal(t, "sqlite", store.Backend())

	_, ok, err := store.LastDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	panel, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.True(t, panel.Empty())

	frags, err := store.Fragments(ctx)
	require.NoError(t, err)
	assert.Empty(t, frags)
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := contracts.PricePanel{
		Dates:  []time.Time{day("2022-01-01"), day("2022-01-02"), day("2022-01-03")},
		Assets: []string{"GMX", "GNS"},
		Prices: [][]float64{{40, 4}, {42, 4.1}, {41, 4.4}},
	}
	second := contracts.PricePanel{
		Dates:  []time.Time{day("2022-01-03"), day("2022-01-04")},
		Assets: []string{"GMX", "GNS"},
		Prices: [][]float64{{41.5, 4.5}, {43, math.NaN()}},
	}

	require.NoError(t, store.SaveFragment(ctx, day("2022-01-03"), first))
	require.NoError(t, store.SaveFragment(ctx, day("2022-01-04"), second))

	last, ok, err := store.LastDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	// NaN은 저장되지 않지만 GMX 값이 있어 마지막 날짜는 01-04
	assert.Equal(t, day("2022-01-04"), last)

	panel, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, panel.Validate())

	assert.Equal(t, []string{"GMX", "GNS"}, panel.Assets)
	assert.Equal(t, []time.Time{day("2022-01-01"), day("2022-01-02"), day("2022-01-03")}, panel.Dates)
	assert.Equal(t, []float64{41.5, 4.5}, panel.Prices[2], "later fragment wins")

	frags, err := store.Fragments(ctx)
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, day("2022-01-03"), frags[0].RetrievedOn)
	assert.Equal(t, day("2022-01-01"), frags[0].FirstDate)
	assert.Equal(t, 3, frags[0].Rows)
	assert.Equal(t, []string{"GMX", "GNS"}, frags[0].Assets)
	assert.Equal(t, 2, frags[1].Rows)
}

func TestSQLiteStore_SaveFragmentIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	panel := contracts.PricePanel{
		Dates:  []time.Time{day("2022-01-01"), day("2022-01-02")},
		Assets: []string{"GMX", "GNS"},
		Prices: [][]float64{{40, 4}, {42, 4.1}},
	}

	require.NoError(t, store.SaveFragment(ctx, day("2022-01-02"), panel))
	panel.Prices[1][0] = 44
	require.NoError(t, store.SaveFragment(ctx, day("2022-01-02"), panel))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Rows())
	assert.Equal(t, 44.0, loaded.Prices[1][0])
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "prices.db")

	store, err := OpenSQLite(ctx, path, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, store.SaveFragment(ctx, day("2022-01-02"), contracts.PricePanel{
		Dates:  []time.Time{day("2022-01-01"), day("2022-01-02")},
		Assets: []string{"GMX", "GNS"},
		Prices: [][]float64{{40, 4}, {42, 4.1}},
	}))
	require.NoError(t, store.Close())

	// 마이그레이션은 재실행해도 안전해야 함
	reopened, err := OpenSQLite(ctx, path, logger.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	panel, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, panel.Rows())
}

func TestSummarize(t *testing.T) {
	rows := []priceRow{
		{RetrievedOn: day("2022-02-01"), Asset: "GNS", Date: day("2022-01-31"), Price: 1},
		{RetrievedOn: day("2022-01-10"), Asset: "GMX", Date: day("2022-01-05"), Price: 1},
		{RetrievedOn: day("2022-01-10"), Asset: "GMX", Date: day("2022-01-10"), Price: 1},
		{RetrievedOn: day("2022-01-10"), Asset: "GNS", Date: day("2022-01-10"), Price: 1},
	}

	infos := summarize(rows)
	require.Len(t, infos, 2)

	assert.Equal(t, day("2022-01-10"), infos[0].RetrievedOn)
	assert.Equal(t, day("2022-01-05"), infos[0].FirstDate)
	assert.Equal(t, day("2022-01-10"), infos[0].LastDate)
	assert.Equal(t, 2, infos[0].Rows)
	assert.Equal(t, []string{"GMX", "GNS"}, infos[0].Assets)

	assert.Equal(t, []string{"GNS"}, infos[1].Assets)
}
