// Package seriesdump writes the final series cache of a closed session to
// SQLite for post-mortem inspection. Not read by the engine.
package seriesdump

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"chartsync/internal/market"
)

const schema = `
CREATE TABLE IF NOT EXISTS series_snapshot (
    symbol      TEXT NOT NULL,
    granularity TEXT NOT NULL,
    open_time   INTEGER NOT NULL,
    close_time  INTEGER NOT NULL,
    open        REAL NOT NULL,
    high        REAL NOT NULL,
    low         REAL NOT NULL,
    close       REAL NOT NULL,
    volume      REAL NOT NULL,
    trades      INTEGER NOT NULL,
    dumped_at   INTEGER NOT NULL,
    PRIMARY KEY (symbol, granularity, open_time)
);`

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("seriesdump: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Dump replaces the stored snapshot for symbol@granularity with candles.
func (s *Store) Dump(ctx context.Context, symbol, granularity string, candles []market.Candle) error {
	if symbol == "" || granularity == "" {
		return fmt.Errorf("seriesdump: symbol/granularity cannot be empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM series_snapshot WHERE symbol = ? AND granularity = ?`, symbol, granularity); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO series_snapshot
        (symbol, granularity, open_time, close_time, open, high, low, close, volume, trades, dumped_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, c := range candles {
		if _, err := stmt.ExecContext(ctx, symbol, granularity,
			c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume, c.Trades, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load reads a stored snapshot back, ascending by open time.
func (s *Store) Load(ctx context.Context, symbol, granularity string) ([]market.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT open_time, close_time, open, high, low, close, volume, trades
        FROM series_snapshot WHERE symbol = ? AND granularity = ? ORDER BY open_time ASC`, symbol, granularity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.OpenTime, &c.CloseTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.Trades); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
