package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"stockdash/internal/model"
)

// SQLiteRecorder persists analysis history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the HTTP handlers read history while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, now: time.Now}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_runs (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp              INTEGER NOT NULL,
			ticker                 TEXT NOT NULL,
			source                 TEXT,
			start_date             TEXT,
			end_date               TEXT,
			bars                   INTEGER,
			last_close             REAL,
			window_change          REAL,
			percent_change         REAL,
			period_high            REAL,
			period_low             REAL,
			total_volume           INTEGER,
			annualized_return_pct  REAL,
			annualized_std_dev_pct REAL,
			risk_adjusted_return   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ticker_ts ON analysis_runs(ticker, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// nullable maps NaN and Inf to SQL NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (r *SQLiteRecorder) RecordAnalysis(report *model.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := report.Summary
	var ret, std, risk sql.NullFloat64
	if report.Returns != nil {
		ret = nullable(report.Returns.AnnualizedReturnPct)
		std = nullable(report.Returns.AnnualizedStdDevPct)
		risk = nullable(report.Returns.RiskAdjustedReturn)
	}

	_, err := r.db.Exec(`INSERT INTO analysis_runs
		(timestamp, ticker, source, start_date, end_date, bars,
		 last_close, window_change, percent_change, period_high, period_low, total_volume,
		 annualized_return_pct, annualized_std_dev_pct, risk_adjusted_return)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.now().Unix(), report.Request.Ticker, report.Source,
		report.Request.Start.Format(model.DateLayout), report.Request.End.Format(model.DateLayout),
		report.Series.Len(),
		sum.LastClose, sum.Change, nullable(sum.PercentChange), sum.PeriodHigh, sum.PeriodLow, sum.TotalVolume,
		ret, std, risk,
	)
	return err
}

// History returns the most recent runs for ticker, newest first.
func (r *SQLiteRecorder) History(ticker string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT id, timestamp, ticker, source, start_date, end_date, bars,
		last_close, window_change, percent_change, period_high, period_low, total_volume,
		annualized_return_pct, annualized_std_dev_pct, risk_adjusted_return
		FROM analysis_runs WHERE ticker = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		strings.ToUpper(ticker), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s              Snapshot
			ts             int64
			pct            sql.NullFloat64
			ret, std, risk sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &ts, &s.Ticker, &s.Source, &s.StartDate, &s.EndDate, &s.Bars,
			&s.LastClose, &s.Change, &pct, &s.PeriodHigh, &s.PeriodLow, &s.TotalVolume,
			&ret, &std, &risk); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		s.RecordedAt = time.Unix(ts, 0)
		s.PercentChange = ptr(pct)
		s.AnnualizedReturnPct = ptr(ret)
		s.AnnualizedStdDevPct = ptr(std)
		s.RiskAdjustedReturn = ptr(risk)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
