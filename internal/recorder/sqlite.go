package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"SignalScreener/internal/model"
)

// SQLiteRecorder persists run results to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id     TEXT PRIMARY KEY,
			trade_date TEXT NOT NULL,
			started    INTEGER NOT NULL,
			finished   INTEGER,
			symbols    INTEGER,
			buys       INTEGER,
			sells      INTEGER,
			failed     INTEGER,
			status     TEXT,
			note       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started)`,

		`CREATE TABLE IF NOT EXISTS signals (
			trade_date   TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			run_id       TEXT NOT NULL,
			status       TEXT,
			action       TEXT,
			is_buy       INTEGER,
			is_sell      INTEGER,
			close        REAL,
			entry_price  REAL,
			stop_loss    REAL,
			energy_score REAL,
			rules        TEXT,
			errors       TEXT,
			PRIMARY KEY (trade_date, symbol)
		)`,

		`CREATE TABLE IF NOT EXISTS energy (
			symbol     TEXT NOT NULL,
			bar_date   TEXT NOT NULL,
			run_id     TEXT NOT NULL,
			e1         INTEGER,
			e2         INTEGER,
			e3         INTEGER,
			e4         INTEGER,
			e5         INTEGER,
			score      REAL,
			is_latest  INTEGER,
			PRIMARY KEY (symbol, bar_date)
		)`,

		`CREATE TABLE IF NOT EXISTS ta_snapshots (
			trade_date TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			run_id     TEXT NOT NULL,
			high20     REAL,
			low20      REAL,
			high50     REAL,
			low50      REAL,
			high250    REAL,
			low250     REAL,
			rsi14      REAL,
			pr5        REAL,
			pr20       REAL,
			pr60       REAL,
			pr125      REAL,
			pr250      REAL,
			used_days  INTEGER,
			PRIMARY KEY (trade_date, symbol)
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished any
	if !run.Finished.IsZero() {
		finished = run.Finished.Unix()
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, trade_date, started, finished, symbols, buys, sells, failed, status, note)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.RunID, run.TradeDate.Format(model.DateLayout), run.Started.Unix(), finished,
		run.Symbols, run.Buys, run.Sells, run.Failed, run.Status, run.Note,
	)
	return err
}

func (r *SQLiteRecorder) RecordSignal(runID string, res *model.SignalResult) error {
	rules, err := json.Marshal(res.Rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	errs, err := json.Marshal(res.Errors)
	if err != nil {
		return fmt.Errorf("encode errors: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.Exec(`INSERT OR REPLACE INTO signals
		(trade_date, symbol, run_id, status, action, is_buy, is_sell,
		 close, entry_price, stop_loss, energy_score, rules, errors)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		res.TradeDate.Format(model.DateLayout), res.Symbol, runID,
		string(res.Status), string(res.Action), res.IsBuy, res.IsSell,
		res.Close, res.EntryPrice, nullable(res.StopLoss), res.EnergyScore,
		string(rules), string(errs),
	)
	return err
}

func (r *SQLiteRecorder) RecordEnergy(runID, symbol string, score float64, recs []model.EnergyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO energy
		(symbol, bar_date, run_id, e1, e2, e3, e4, e5, score, is_latest)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		var s any
		if rec.IsLatest {
			s = score
		}
		if _, err := stmt.Exec(symbol, rec.Date.Format(model.DateLayout), runID,
			flag(rec.E[0]), flag(rec.E[1]), flag(rec.E[2]), flag(rec.E[3]), flag(rec.E[4]),
			s, rec.IsLatest); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordSnapshot(runID, symbol string, tradeDate time.Time, snap *model.TASnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rsi any
	if snap.RSI14 != nil {
		rsi = *snap.RSI14
	}
	pr := func(n int) any {
		if v, ok := snap.PR[n]; ok {
			return v
		}
		return nil
	}
	_, err := r.db.Exec(`INSERT OR REPLACE INTO ta_snapshots
		(trade_date, symbol, run_id, high20, low20, high50, low50, high250, low250,
		 rsi14, pr5, pr20, pr60, pr125, pr250, used_days)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		tradeDate.Format(model.DateLayout), symbol, runID,
		nullable(snap.High20), nullable(snap.Low20), nullable(snap.High50),
		nullable(snap.Low50), nullable(snap.High250), nullable(snap.Low250),
		rsi, pr(5), pr(20), pr(60), pr(125), pr(250), snap.UsedDays,
	)
	return err
}

func (r *SQLiteRecorder) LastRun() (*RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run      RunRecord
		day      string
		started  int64
		finished sql.NullInt64
		status   sql.NullString
		note     sql.NullString
	)
	err := r.db.QueryRow(`SELECT run_id, trade_date, started, finished, symbols, buys, sells, failed, status, note
		FROM runs ORDER BY started DESC LIMIT 1`).Scan(
		&run.RunID, &day, &started, &finished, &run.Symbols, &run.Buys, &run.Sells, &run.Failed, &status, &note)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.TradeDate, _ = time.Parse(model.DateLayout, day)
	run.Started = time.Unix(started, 0)
	if finished.Valid {
		run.Finished = time.Unix(finished.Int64, 0)
	}
	run.Status = status.String
	run.Note = note.String
	return &run, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// flag maps N/A to SQL NULL.
func flag(f model.Flag) any {
	if !f.Defined() {
		return nil
	}
	return int(f)
}
