package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"quantDashboard/internal/finance"
)

// SQLiteLog stores quotes of any symbol in the prices table. Prices are kept
// as decimal text so nothing is lost to float rounding.
type SQLiteLog struct{ db DB }

func NewSQLiteLog(db DB) *SQLiteLog { return &SQLiteLog{db: db} }

// Append ignores a quote whose symbol and second are already stored.
func (l *SQLiteLog) Append(q finance.Quote) error {
	_, err := l.db.Exec(`INSERT OR IGNORE INTO prices(symbol,ts,price) VALUES(?,?,?)`,
		strings.ToUpper(q.Symbol), q.Time.UTC().Unix(), q.Price.String())
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

func (l *SQLiteLog) Load(symbol string) ([]finance.Quote, error) {
	symbol = strings.ToUpper(symbol)
	rows, err := l.db.Query(`SELECT ts, price FROM prices WHERE symbol=? ORDER BY ts ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	var out []finance.Quote
	for rows.Next() {
		var ts int64
		var raw string
		if err := rows.Scan(&ts, &raw); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		p, err := decimal.NewFromString(raw)
		if err != nil {
			storeLog.Warn().Str("symbol", symbol).Str("price", raw).Msg("storage: bad stored price skipped")
			continue
		}
		out = append(out, finance.Quote{Symbol: symbol, Time: time.Unix(ts, 0).UTC(), Price: p})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmptyLog
	}
	return out, nil
}

// MultiLog appends to every log and loads from the first. A failing log
// does not stop the others; the errors are joined.
type MultiLog []PriceLog

func (m MultiLog) Append(q finance.Quote) error {
	var errs []error
	for _, l := range m {
		if err := l.Append(q); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiLog) Load(symbol string) ([]finance.Quote, error) {
	if len(m) == 0 {
		return nil, ErrEmptyLog
	}
	return m[0].Load(symbol)
}
