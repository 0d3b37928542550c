package pricestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/pkg/logger"
)

// SQLiteStore implements contracts.PriceCache on a local SQLite file
// 단일 사용자 CLI용. 날짜는 YYYY-MM-DD 텍스트로 저장.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *logger.Logger
}

// OpenSQLite opens (or creates) the database file and runs migrations
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		path:   path,
		logger: log.WithComponent("pricestore"),
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	s.logger.WithField("path", path).Debug("Opened SQLite price store")
	return s, nil
}

// Backend returns the backend name
func (s *SQLiteStore) Backend() string {
	return "sqlite"
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	version := 0
	// 첫 실행이면 schema_version 테이블이 없어 0 유지
	_ = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS fragments (
				retrieved_on TEXT NOT NULL,
				asset        TEXT NOT NULL,
				position     INTEGER NOT NULL,
				price_date   TEXT NOT NULL,
				price        REAL NOT NULL,
				PRIMARY KEY (retrieved_on, asset, price_date)
			);
			CREATE INDEX IF NOT EXISTS idx_fragments_price_date ON fragments(price_date);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		s.logger.Info("Applied migration v1")
	}

	return nil
}

// SaveFragment stores one downloaded panel (upsert)
func (s *SQLiteStore) SaveFragment(ctx context.Context, retrievedOn time.Time, panel contracts.PricePanel) error {
	rows := flatten(retrievedOn, panel)
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fragments (retrieved_on, asset, position, price_date, price)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (retrieved_on, asset, price_date) DO UPDATE SET
			position = excluded.position,
			price = excluded.price
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.RetrievedOn.Format(contracts.DateLayout), r.Asset, r.Position,
			r.Date.Format(contracts.DateLayout), r.Price,
		)
		if err != nil {
			return fmt.Errorf("insert price for %s on %s: %w", r.Asset, r.Date.Format(contracts.DateLayout), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"retrieved_on": retrievedOn.Format(contracts.DateLayout),
		"rows":         panel.Rows(),
	}).Info("Saved price fragment")

	return nil
}

// LoadAll returns the merged panel of all fragments
func (s *SQLiteStore) LoadAll(ctx context.Context) (contracts.PricePanel, error) {
	rows, err := s.loadRows(ctx)
	if err != nil {
		return contracts.PricePanel{}, err
	}
	return assemble(rows), nil
}

// LastDate returns the latest cached price date
func (s *SQLiteStore) LastDate(ctx context.Context) (time.Time, bool, error) {
	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(price_date) FROM fragments").Scan(&last); err != nil {
		return time.Time{}, false, fmt.Errorf("query last date: %w", err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}

	d, err := time.Parse(contracts.DateLayout, last.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse last date %q: %w", last.String, err)
	}
	return d, true, nil
}

// Fragments lists stored fragments, oldest first
func (s *SQLiteStore) Fragments(ctx context.Context) ([]contracts.FragmentInfo, error) {
	rows, err := s.loadRows(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(rows), nil
}

func (s *SQLiteStore) loadRows(ctx context.Context) ([]priceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT retrieved_on, asset, position, price_date, price
		FROM fragments
		ORDER BY retrieved_on, price_date, position
	`)
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()

	var out []priceRow
	for rows.Next() {
		var (
			r                    priceRow
			retrievedOn, dateStr string
		)
		if err := rows.Scan(&retrievedOn, &r.Asset, &r.Position, &dateStr, &r.Price); err != nil {
			return nil, fmt.Errorf("scan fragment row: %w", err)
		}
		if r.RetrievedOn, err = time.Parse(contracts.DateLayout, retrievedOn); err != nil {
			return nil, fmt.Errorf("parse retrieved_on %q: %w", retrievedOn, err)
		}
		if r.Date, err = time.Parse(contracts.DateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("parse price_date %q: %w", dateStr, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
