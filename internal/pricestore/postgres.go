package pricestore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/pkg/database"
	"github.com/wonny/frontier/pkg/logger"
)

// PostgresStore implements contracts.PriceCache on PostgreSQL
// ⭐ SSOT: 서버 배포용 가격 캐시는 여기서만 (prices.fragments)
type PostgresStore struct {
	db     *database.DB
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresStore creates a new PostgreSQL price store
func NewPostgresStore(db *database.DB, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		pool:   db.Pool,
		logger: log.WithComponent("pricestore"),
	}
}

// Backend returns the backend name
func (s *PostgresStore) Backend() string {
	return "postgres"
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// EnsureSchema creates the fragments table if missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS prices;

		CREATE TABLE IF NOT EXISTS prices.fragments (
			retrieved_on DATE NOT NULL,
			asset        TEXT NOT NULL,
			position     INTEGER NOT NULL,
			price_date   DATE NOT NULL,
			price        DOUBLE PRECISION NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (retrieved_on, asset, price_date)
		);

		CREATE INDEX IF NOT EXISTS idx_fragments_price_date ON prices.fragments (price_date);
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure prices schema: %w", err)
	}
	return nil
}

// SaveFragment stores one downloaded panel (upsert)
func (s *PostgresStore) SaveFragment(ctx context.Context, retrievedOn time.Time, panel contracts.PricePanel) error {
	rows := flatten(retrievedOn, panel)
	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO prices.fragments (retrieved_on, asset, position, price_date, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (retrieved_on, asset, price_date) DO UPDATE SET
			position = EXCLUDED.position,
			price = EXCLUDED.price
	`

	// Batch insert using transactions
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range rows {
		if _, err := tx.Exec(ctx, query, r.RetrievedOn, r.Asset, r.Position, r.Date, r.Price); err != nil {
			return fmt.Errorf("insert price for %s on %s: %w", r.Asset, r.Date.Format(contracts.DateLayout), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"retrieved_on": retrievedOn.Format(contracts.DateLayout),
		"rows":         panel.Rows(),
	}).Info("Saved price fragment")

	return nil
}

// LoadAll returns the merged panel of all fragments
func (s *PostgresStore) LoadAll(ctx context.Context) (contracts.PricePanel, error) {
	rows, err := s.loadRows(ctx)
	if err != nil {
		return contracts.PricePanel{}, err
	}
	return assemble(rows), nil
}

// LastDate returns the latest cached price date
func (s *PostgresStore) LastDate(ctx context.Context) (time.Time, bool, error) {
	var last *time.Time
	if err := s.pool.QueryRow(ctx, `SELECT MAX(price_date) FROM prices.fragments`).Scan(&last); err != nil {
		return time.Time{}, false, fmt.Errorf("query last date: %w", err)
	}
	if last == nil {
		return time.Time{}, false, nil
	}
	return contracts.TruncateDay(*last), true, nil
}

// Fragments lists stored fragments, oldest first
func (s *PostgresStore) Fragments(ctx context.Context) ([]contracts.FragmentInfo, error) {
	rows, err := s.loadRows(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(rows), nil
}

func (s *PostgresStore) loadRows(ctx context.Context) ([]priceRow, error) {
	query := `
		SELECT retrieved_on, asset, position, price_date, price
		FROM prices.fragments
		ORDER BY retrieved_on, price_date, position
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()

	var out []priceRow
	for rows.Next() {
		var r priceRow
		if err := rows.Scan(&r.RetrievedOn, &r.Asset, &r.Position, &r.Date, &r.Price); err != nil {
			return nil, fmt.Errorf("scan fragment row: %w", err)
		}
		r.RetrievedOn = contracts.TruncateDay(r.RetrievedOn)
		r.Date = contracts.TruncateDay(r.Date)
		out = append(out, r)
	}
	return out, rows.Err()
}
