package journal

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists acquisition history to a SQLite database.
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

	// WAL mode so external readers do not block the tool's writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite journal opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS acquisitions (
			id          TEXT PRIMARY KEY,
			timestamp   INTEGER NOT NULL,
			source      TEXT,
			raw_symbol  TEXT,
			canonical   TEXT,
			interval    TEXT,
			range_start INTEGER,
			range_end   INTEGER,
			rows        INTEGER,
			cache_used  INTEGER,
			warning     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_acq_ts ON acquisitions(timestamp)`,

		`CREATE TABLE IF NOT EXISTS remote_calls (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			acquisition_id TEXT,
			source         TEXT,
			endpoint       TEXT,
			symbol         TEXT,
			status         TEXT,
			rows           INTEGER,
			duration_ms    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_ts ON remote_calls(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_acq ON remote_calls(acquisition_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAcquisition(a *Acquisition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO acquisitions (id, timestamp, source, raw_symbol, canonical, interval, range_start, range_end, rows, cache_used, warning)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, time.Now().Unix(), a.Source, a.RawSymbol, a.Canonical, a.Interval,
		a.Start.Unix(), a.End.Unix(), a.Rows, boolToInt(a.CacheUsed), a.Warning,
	)
	if err != nil {
		return fmt.Errorf("insert acquisition: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) RecordRemoteCall(c *RemoteCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO remote_calls (timestamp, acquisition_id, source, endpoint, symbol, status, rows, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), c.AcquisitionID, c.Source, c.Endpoint, c.Symbol, c.Status, c.Rows, c.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert remote call: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
