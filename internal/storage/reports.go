package storage

import (
	"fmt"
	"strings"
	"time"
)

// ReportRecord is one archived daily report.
type ReportRecord struct {
	ID              string
	CreatedAt       time.Time
	Tickers         []string
	LastDate        string
	LastValue       float64
	AnnReturn       float64
	AnnVol          float64
	Sharpe          float64
	MaxDrawdown     float64
	Diversification float64
}

type Store struct{ db DB }

func NewStore(db DB) *Store { return &Store{db: db} }

func (s *Store) SaveReport(r ReportRecord) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO reports(id,created_at,tickers,last_date,last_value,ann_return,ann_vol,sharpe,max_drawdown,diversification)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.CreatedAt.UTC().Unix(), strings.Join(r.Tickers, ","), r.LastDate,
		nullable(r.LastValue), nullable(r.AnnReturn), nullable(r.AnnVol), nullable(r.Sharpe), nullable(r.MaxDrawdown), nullable(r.Diversification))
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// RecentReports returns up to limit reports, newest first.
func (s *Store) RecentReports(limit int) ([]ReportRecord, error) {
	rows, err := s.db.Query(`SELECT id,created_at,tickers,last_date,last_value,ann_return,ann_vol,sharpe,max_drawdown,diversification
		FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()
	var out []ReportRecord
	for rows.Next() {
		var r ReportRecord
		var created int64
		var tickers string
		var vals [6]nullFloat
		if err := rows.Scan(&r.ID, &created, &tickers, &r.LastDate,
			&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5]); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.CreatedAt = time.Unix(created, 0).UTC()
		r.Tickers = strings.Split(tickers, ",")
		r.LastValue, r.AnnReturn, r.AnnVol = vals[0].value(), vals[1].value(), vals[2].value()
		r.Sharpe, r.MaxDrawdown, r.Diversification = vals[3].value(), vals[4].value(), vals[5].value()
		out = append(out, r)
	}
	return out, rows.Err()
}
