package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dashboard holds the defaults offered by the portfolio and strategy views.
type Dashboard struct {
	Universe       []string           `yaml:"universe"`
	Tickers        []string           `yaml:"tickers"`
	Weights        map[string]float64 `yaml:"weights"`
	Rebalance      string             `yaml:"rebalance"`
	Period         string             `yaml:"period"`
	InitialValue   float64            `yaml:"initial_value"`
	RiskFreeRate   float64            `yaml:"risk_free_rate"`
	PeriodsPerYear int                `yaml:"periods_per_year"`
	MinAssets      int                `yaml:"min_assets"`
	MomentumWindow int                `yaml:"momentum_window"`
}

func DefaultDashboard() Dashboard {
	return Dashboard{
		Universe:       []string{"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "SPY", "QQQ", "GLD", "BTC-USD", "ETH-USD"},
		Tickers:        []string{"AAPL", "MSFT", "GOOGL"},
		Rebalance:      "Monthly",
		Period:         "2y",
		InitialValue:   100,
		RiskFreeRate:   0,
		PeriodsPerYear: 252,
		MinAssets:      3,
		MomentumWindow: 10,
	}
}

// LoadDashboard reads YAML defaults from path. A missing file yields
// DefaultDashboard; fields left out of the file keep their default.
func LoadDashboard(path string) (Dashboard, error) {
	d := DefaultDashboard()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfgLog.Debug().Str("path", path).Msg("config: no dashboard file, using defaults")
		return d, nil
	}
	if err != nil {
		return d, fmt.Errorf("read dashboard defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &d); err != nil {
		return DefaultDashboard(), fmt.Errorf("parse dashboard defaults %s: %w", path, err)
	}
	d.normalize()
	return d, nil
}

func (d *Dashboard) normalize() {
	def := DefaultDashboard()
	for i, t := range d.Tickers {
		d.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	for i, t := range d.Universe {
		d.Universe[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if len(d.Weights) > 0 {
		w := make(map[string]float64, len(d.Weights))
		for k, v := range d.Weights {
			w[strings.ToUpper(strings.TrimSpace(k))] += v
		}
		d.Weights = w
	}
	if d.InitialValue <= 0 {
		d.InitialValue = def.InitialValue
	}
	if d.PeriodsPerYear <= 0 {
		d.PeriodsPerYear = def.PeriodsPerYear
	}
	if d.MinAssets <= 0 {
		d.MinAssets = def.MinAssets
	}
	if d.MomentumWindow < 2 {
		d.MomentumWindow = def.MomentumWindow
	}
}
