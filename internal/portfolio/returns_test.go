package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeReturns_Basic(t *testing.T) {
	dates := consecutive(day(2024, 3, 1), 3)
	prices := frameFromColumns(t, dates, []string{"A", "B"},
		[]float64{100, 110, 99},
		[]float64{50, 50, 55},
	)

	r := ComputeReturns(prices)

	require.Equal(t, dates[1:], r.Dates)
	assert.Equal(t, []string{"A", "B"}, r.Assets)
	assert.InDelta(t, 0.10, r.Rows[0][0], 1e-12)
	assert.InDelta(t, 0.0, r.Rows[0][1], 1e-12)
	assert.InDelta(t, -0.10, r.Rows[1][0], 1e-12)
	assert.InDelta(t, 0.10, r.Rows[1][1], 1e-12)
}

func TestComputeReturns_Empty(t *testing.T) {
	assert.True(t, ComputeReturns(Frame{}).Empty())

	single := frameFromColumns(t, consecutive(day(2024, 1, 1), 1), []string{"A"}, []float64{10})
	assert.True(t, ComputeReturns(single).Empty())
}

func TestComputeReturns_ZeroPriorAndAllMissingRows(t *testing.T) {
	dates := consecutive(day(2024, 1, 1), 3)
	prices := frameFromColumns(t, dates, []string{"A", "B"},
		[]float64{100, 0, 50},
		[]float64{10, 11, nan},
	)

	r := ComputeReturns(prices)

	// Third row: A divides by a zero price, B is missing, so the row goes.
	require.Equal(t, dates[1:2], r.Dates)
	assert.InDelta(t, -1.0, r.Rows[0][0], 1e-12)
	assert.InDelta(t, 0.1, r.Rows[0][1], 1e-12)
	for _, row := range r.Rows {
		for _, v := range row {
			assert.False(t, math.IsInf(v, 0))
		}
	}
}

func TestComputeReturns_GapUsesLastObservedPrice(t *testing.T) {
	dates := consecutive(day(2024, 1, 1), 3)
	prices := frameFromColumns(t, dates, []string{"A", "B"},
		[]float64{100, nan, 121},
		[]float64{1, 1, 1},
	)

	r := ComputeReturns(prices)

	require.Equal(t, 2, r.Len())
	assert.True(t, math.IsNaN(r.Rows[0][0]), "missing price yields a missing return")
	assert.InDelta(t, 0.21, r.Rows[1][0], 1e-12)
}

func TestPortfolioReturns(t *testing.T) {
	dates := consecutive(day(2024, 1, 1), 4)
	r := PortfolioReturns(Series{Dates: dates, Values: []float64{100, 110, 0, 50}})

	// 0 -> 50 is infinite and dropped
	assert.Equal(t, dates[1:3], r.Dates)
	assert.InDelta(t, 0.1, r.Values[0], 1e-12)
	assert.InDelta(t, -1.0, r.Values[1], 1e-12)
}
