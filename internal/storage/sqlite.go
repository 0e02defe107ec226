package storage

import (
	"database/sql"
	"fmt"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

func OpenSQLite(dsn string) (DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer: the quote loop and the bot share the file
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(db DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS prices(
		symbol TEXT NOT NULL, ts INTEGER NOT NULL, price TEXT NOT NULL,
		PRIMARY KEY(symbol, ts)
	)`); err != nil {
		return fmt.Errorf("create prices: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS reports(
		id TEXT PRIMARY KEY, created_at INTEGER NOT NULL, tickers TEXT NOT NULL,
		last_date TEXT, last_value REAL, ann_return REAL, ann_vol REAL,
		sharpe REAL, max_drawdown REAL, diversification REAL
	)`); err != nil {
		return fmt.Errorf("create reports: %w", err)
	}
	return nil
}
