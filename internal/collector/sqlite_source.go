package collector

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"SignalScreener/internal/model"
)

// SQLiteSource serves daily bars from a local daily_bars table. It doubles as
// the write-through BarStore for remote fetchers.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens (or creates) the bar database and runs migrations.
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	// modernc serializes writers; one connection avoids SQLITE_BUSY under fan-out.
	db.SetMaxOpenConns(1)

	s := &SQLiteSource{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Printf("[INFO] sqlite bar source opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteSource) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS daily_bars (
		symbol     TEXT NOT NULL,
		trade_date TEXT NOT NULL,
		open       REAL,
		high       REAL,
		low        REAL,
		close      REAL NOT NULL,
		volume     REAL,
		PRIMARY KEY (symbol, trade_date)
	)`)
	return err
}

func (s *SQLiteSource) Name() string { return "sqlite" }

// FetchDailyBars returns the last limit bars of symbol dated on or before
// tradeDate. Missing open/high/low fall back to close.
func (s *SQLiteSource) FetchDailyBars(ctx context.Context, symbol string, tradeDate time.Time, limit int) ([]model.RawBar, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trade_date,
			COALESCE(open, close), COALESCE(high, close), COALESCE(low, close),
			close, COALESCE(volume, 0)
		FROM daily_bars
		WHERE symbol = ? AND trade_date <= ?
		ORDER BY trade_date DESC
		LIMIT ?`, symbol, tradeDate.Format(model.DateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("query daily_bars: %w", err)
	}
	defer rows.Close()

	var out []model.RawBar
	for rows.Next() {
		b := model.RawBar{Symbol: symbol}
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan daily_bars: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// SaveBars upserts bars keyed by (symbol, trade_date).
func (s *SQLiteSource) SaveBars(ctx context.Context, bars []model.RawBar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_bars
		(symbol, trade_date, open, high, low, close, volume) VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(symbol, trade_date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("upsert %s %s: %w", b.Symbol, b.Date, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteSource) Close() error { return s.db.Close() }
