package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "PRICE_LOG", "QUOTE_SYMBOL", "LOOP_INTERVAL", "FINNHUB_API_KEY"} {
		t.Setenv(k, "")
	}

	c := Load()

	assert.Equal(t, "9095", c.Port)
	assert.Equal(t, "data/prices.db", c.DBPath)
	assert.Equal(t, "data/aapl_prices.csv", c.PriceLog)
	assert.Equal(t, "AAPL", c.QuoteSymbol)
	assert.Equal(t, 5*time.Minute, c.LoopInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("QUOTE_SYMBOL", "msft")
	t.Setenv("LOOP_INTERVAL", "30s")

	c := Load()

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "MSFT", c.QuoteSymbol)
	assert.Equal(t, 30*time.Second, c.LoopInterval)

	t.Setenv("LOOP_INTERVAL", "soon")
	assert.Equal(t, 5*time.Minute, Load().LoopInterval)
}

func TestRequire(t *testing.T) {
	c := Config{FinnhubKey: "k"}

	assert.NoError(t, c.Require("FINNHUB_API_KEY"))

	err := c.Require("FINNHUB_API_KEY", "TELEGRAM_BOT_TOKEN", "OPENAI_API_KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN, OPENAI_API_KEY")
}

func TestLoadDashboard_MissingFile(t *testing.T) {
	d, err := LoadDashboard(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultDashboard(), d)
}

func TestLoadDashboard_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tickers: [spy, qqq, gld]
weights: {SPY: 60, QQQ: 30, GLD: 10}
rebalance: Quarterly
initial_value: -1
`), 0o644))

	d, err := LoadDashboard(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ", "GLD"}, d.Tickers)
	assert.Equal(t, 60.0, d.Weights["SPY"])
	assert.Equal(t, "Quarterly", d.Rebalance)
	assert.Equal(t, 100.0, d.InitialValue)
	assert.Equal(t, "2y", d.Period)
	assert.Equal(t, 252, d.PeriodsPerYear)
}

func TestLoadDashboard_WeightKeysUppercased(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights: {aapl: 50, ' msft ': 30, GOOGL: 20}\n"), 0o644))

	d, err := LoadDashboard(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAPL": 50, "MSFT": 30, "GOOGL": 20}, d.Weights)
}

func TestLoadDashboard_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tickers: [unclosed"), 0o644))

	_, err := LoadDashboard(path)
	assert.Error(t, err)
}

func TestLoadDashboard_RepoFile(t *testing.T) {
	d, err := LoadDashboard("../../configuration/dashboard.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultDashboard(), d)
}
