package finance

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/portfolio"
)

var pngMagic = []byte("\x89PNG")

func sampleResult(t *testing.T) portfolio.Result {
	t.Helper()
	var dates []time.Time
	var rows [][]float64
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		dates = append(dates, start.AddDate(0, 0, i))
		rows = append(rows, []float64{100 + float64(i) + 3*math.Sin(float64(i)), 50 - 0.2*float64(i) + math.Cos(float64(i))})
	}
	prices, err := portfolio.NewFrame(dates, []string{"AAPL", "GLD"}, rows)
	require.NoError(t, err)
	res, err := portfolio.Backtest(prices, nil, 100, portfolio.Weekly)
	require.NoError(t, err)
	require.False(t, res.Empty())
	return res
}

func TestCharts_RenderPNG(t *testing.T) {
	res := sampleResult(t)

	render := map[string]func() ([]byte, error){
		"prices":      func() ([]byte, error) { return PricesAndValueChart(res) },
		"cumulative":  func() ([]byte, error) { return CumulativeChart(res) },
		"drawdown":    func() ([]byte, error) { return DrawdownChart(res.Value) },
		"weights":     func() ([]byte, error) { return WeightsChart(res.WeightsHistory) },
		"correlation": func() ([]byte, error) { return CorrelationTable(portfolio.CorrelationMatrix(res.Returns)) },
		"strategy":    func() ([]byte, error) { return StrategyChart("AAPL", res.Value, res.Value) },
	}
	for name, fn := range render {
		img, err := fn()
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(img, pngMagic), name)
	}
}

func TestCharts_EmptyInput(t *testing.T) {
	_, err := PricesAndValueChart(portfolio.Result{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = CorrelationTable(portfolio.Matrix{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = DrawdownChart(portfolio.Series{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestCarryForward(t *testing.T) {
	nan := math.NaN()
	assert.Equal(t, []float64{2, 2, 3, 3}, carryForward([]float64{nan, 2, 3, nan}))
}

func TestRebase(t *testing.T) {
	assert.Equal(t, []float64{100, 150, 50}, rebase([]float64{2, 3, 1}, 100))
}

func TestDateLabels(t *testing.T) {
	daily := []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, []string{"Mar 01", "Mar 04"}, dateLabels(daily))

	intraday := []time.Time{time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)}
	assert.Equal(t, []string{"Mar 01 09:30"}, dateLabels(intraday))
}
