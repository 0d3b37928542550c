package pricestore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/pkg/config"
	"github.com/wonny/frontier/pkg/database"
	"github.com/wonny/frontier/pkg/logger"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	// Skip if running in CI without database
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL:             url,
			MaxConns:        2,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: time.Minute,
		},
	}

	db, err := database.New(ctx, cfg)
	require.NoError(t, err, "database connection failed")

	store := NewPostgresStore(db, logger.Nop())
	defer store.Close()

	require.NoError(t, store.EnsureSchema(ctx))

	// 테스트 전용 retrieved_on 으로 격리
	retrievedOn := day("1999-12-31")
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(ctx, `DELETE FROM prices.fragments WHERE retrieved_on = $1`, retrievedOn)
	})

	panel := contracts.PricePanel{
		Dates:  []time.Time{day("1999-12-30"), day("1999-12-31")},
		Assets: []string{"TSTA", "TSTB"},
		Prices: [][]float64{{1, 2}, {1.1, 2.2}},
	}
	require.NoError(t, store.SaveFragment(ctx, retrievedOn, panel))

	frags, err := store.Fragments(ctx)
	require.NoError(t, err)

	var found bool
	for _, f := range frags {
		if f.RetrievedOn.Equal(retrievedOn) {
			found = true
			assert.Equal(t, 2, f.Rows)
			assert.Equal(t, []string{"TSTA", "TSTB"}, f.Assets)
		}
	}
	assert.True(t, found, "fragment should be listed")
}
