// Package report builds the daily portfolio report.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"quantDashboard/internal/config"
	"quantDashboard/internal/finance"
	"quantDashboard/internal/logging"
	"quantDashboard/internal/portfolio"
	"quantDashboard/internal/storage"
)

var reportLog = logging.New("report")

// PriceSource is satisfied by finance.PriceService.
type PriceSource interface {
	Prices(ctx context.Context, symbols []string, period string) portfolio.Frame
}

// Commentator writes a short narrative from the report facts.
type Commentator interface {
	Commentary(ctx context.Context, facts string) (string, error)
}

type Options struct {
	Tickers        []string
	Period         string
	InitialValue   float64
	Rebalance      portfolio.Frequency
	Weights        portfolio.Weights
	RiskFreeRate   float64
	PeriodsPerYear int
	Commentator    Commentator // optional
	Now            func() time.Time
}

// DashboardOptions takes tickers, weights and the other run settings from
// the dashboard defaults.
func DashboardOptions(d config.Dashboard) Options {
	var w portfolio.Weights
	if len(d.Weights) > 0 {
		w = portfolio.Weights(d.Weights)
	}
	return Options{
		Tickers:        d.Tickers,
		Period:         d.Period,
		InitialValue:   d.InitialValue,
		Rebalance:      portfolio.ParseFrequency(d.Rebalance),
		Weights:        w,
		RiskFreeRate:   d.RiskFreeRate,
		PeriodsPerYear: d.PeriodsPerYear,
	}
}

type Report struct {
	ID              uuid.UUID
	CreatedAt       time.Time
	Tickers         []string
	Rebalance       portfolio.Frequency
	InitialValue    float64
	LastDate        time.Time
	LastValue       float64
	AnnReturn       float64
	AnnVol          float64
	Sharpe          float64
	MaxDrawdown     float64
	Diversification float64
	Commentary      string
}

// Run backtests the tickers and summarizes the outcome. No data means no
// report: the error wraps finance.ErrNoData.
func Run(ctx context.Context, src PriceSource, opts Options) (Report, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	if opts.Rebalance == "" {
		opts.Rebalance = portfolio.Monthly
	}
	if !(opts.InitialValue > 0) || math.IsInf(opts.InitialValue, 0) {
		opts.InitialValue = portfolio.DefaultInitialValue
	}

	prices := src.Prices(ctx, opts.Tickers, opts.Period)
	if prices.Empty() {
		return Report{}, fmt.Errorf("prices for %s: %w", strings.Join(opts.Tickers, ","), finance.ErrNoData)
	}
	res, err := portfolio.Backtest(prices, opts.Weights, opts.InitialValue, opts.Rebalance)
	if err != nil {
		return Report{}, fmt.Errorf("backtest: %w", err)
	}
	if res.Empty() {
		return Report{}, fmt.Errorf("backtest result: %w", finance.ErrNoData)
	}
	sum := portfolio.Summarize(res, opts.RiskFreeRate, opts.PeriodsPerYear)

	r := Report{
		ID:              uuid.New(),
		CreatedAt:       now().UTC().Truncate(time.Second),
		Tickers:         prices.Assets,
		Rebalance:       opts.Rebalance,
		InitialValue:    opts.InitialValue,
		LastDate:        res.Value.Dates[res.Value.Len()-1],
		LastValue:       sum.FinalValue,
		AnnReturn:       sum.AnnReturn,
		AnnVol:          sum.AnnVol,
		Sharpe:          sum.Sharpe,
		MaxDrawdown:     sum.MaxDrawdown,
		Diversification: sum.Diversification,
	}
	if opts.Commentator != nil {
		text, err := opts.Commentator.Commentary(ctx, r.Facts())
		if err != nil {
			reportLog.Warn().Err(err).Msg("report: commentary failed")
		} else {
			r.Commentary = strings.TrimSpace(text)
		}
	}
	reportLog.Info().Str("id", r.ID.String()).Strs("tickers", r.Tickers).Float64("last_value", r.LastValue).Msg("report: built")
	return r, nil
}

var csvColumns = []string{"timestamp_utc", "tickers", "last_date", "portfolio_last_value", "ann_return", "ann_vol", "sharpe", "max_drawdown"}

// FileName is portfolio_report_YYYYMMDD.csv for the creation day (UTC).
func (r Report) FileName() string {
	return "portfolio_report_" + r.CreatedAt.UTC().Format("20060102") + ".csv"
}

// WriteCSV writes the report as a one-row CSV in dir, replacing a report of
// the same day, and returns its path.
func (r Report) WriteCSV(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(dir, r.FileName())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	_ = w.Write(csvColumns)
	_ = w.Write([]string{
		r.CreatedAt.UTC().Format(time.RFC3339),
		strings.Join(r.Tickers, ","),
		r.LastDate.Format(time.DateOnly),
		csvFloat(r.LastValue),
		csvFloat(r.AnnReturn),
		csvFloat(r.AnnVol),
		csvFloat(r.Sharpe),
		csvFloat(r.MaxDrawdown),
	})
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Record converts the report for the sqlite archive.
func (r Report) Record() storage.ReportRecord {
	return storage.ReportRecord{
		ID:              r.ID.String(),
		CreatedAt:       r.CreatedAt,
		Tickers:         r.Tickers,
		LastDate:        r.LastDate.Format(time.DateOnly),
		LastValue:       r.LastValue,
		AnnReturn:       r.AnnReturn,
		AnnVol:          r.AnnVol,
		Sharpe:          r.Sharpe,
		MaxDrawdown:     r.MaxDrawdown,
		Diversification: r.Diversification,
	}
}

// csvFloat leaves undefined metrics empty, as a spreadsheet would.
func csvFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
