package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/portfolio"
)

func series(start time.Time, step time.Duration, values ...float64) portfolio.Series {
	s := portfolio.Series{Values: values}
	for i := range values {
		s.Dates = append(s.Dates, start.Add(time.Duration(i)*step))
	}
	return s
}

var t0 = time.Date(2024, 6, 3, 13, 30, 0, 0, time.UTC)

func TestResample(t *testing.T) {
	s := series(t0, 5*time.Minute, 1, 2, 3, 4, 5, 6, 7)

	r := Resample(s, FifteenMin)

	// 13:30 13:35 13:40 | 13:45 13:50 13:55 | 14:00
	assert.Equal(t, []float64{3, 6, 7}, r.Values)
	assert.Equal(t, []time.Time{t0, t0.Add(15 * time.Minute), t0.Add(30 * time.Minute)}, r.Dates)

	d := Resample(s, Daily)
	assert.Equal(t, []float64{7}, d.Values)
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), d.Dates[0])

	assert.Equal(t, s, Resample(s, Raw))
}

func TestResample_SkipsGapsAndMissing(t *testing.T) {
	s := portfolio.Series{
		Dates:  []time.Time{t0, t0.Add(10 * time.Minute), t0.Add(3 * time.Hour)},
		Values: []float64{1, math.NaN(), 3},
	}
	h := Resample(s, Hourly)
	assert.Equal(t, []float64{1, 3}, h.Values)
	assert.Len(t, h.Dates, 2)
}

func TestParse(t *testing.T) {
	p, err := ParsePeriodicity("1h")
	require.NoError(t, err)
	assert.Equal(t, Hourly, p)
	_, err = ParsePeriodicity("2w")
	assert.Error(t, err)

	k, err := ParseKind("momentum")
	require.NoError(t, err)
	assert.Equal(t, Momentum, k)
	_, err = ParseKind("martingale")
	assert.Error(t, err)
}

func TestRun_BuyAndHoldTracksPrice(t *testing.T) {
	s := series(t0, 24*time.Hour, 100, 110, 99, 120)

	out, err := Run(s, Params{Kind: BuyAndHold})
	require.NoError(t, err)

	assert.InDeltaSlice(t, s.Values, out.Equity.Values, 1e-9)
	assert.InDelta(t, 0.2, out.TotalReturn, 1e-12)
	assert.InDelta(t, 99.0/110-1, out.MaxDrawdown, 1e-12)
	assert.Equal(t, 0.0, out.Returns[0])
	assert.InDelta(t, 365, out.PeriodsPerYear, 1e-9)

	mean, ss := 0.0, 0.0
	for _, r := range out.StrategyReturn {
		mean += r
	}
	mean /= 4
	for _, r := range out.StrategyReturn {
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / 4)
	assert.InDelta(t, mean/std*math.Sqrt(365), out.Sharpe, 1e-9)
	assert.InDelta(t, std*math.Sqrt(365), out.Vol, 1e-9)
}

func TestRun_MomentumHasNoLookAhead(t *testing.T) {
	// rises then falls: with window 1 the position reacts one period late
	s := series(t0, time.Hour, 100, 101, 102, 90, 80, 81)

	out, err := Run(s, Params{Kind: Momentum, Window: 1})
	require.NoError(t, err)

	// i=1: no signal yet; i=2: 101>100 at i-1 so invested; i=3: invested (102>101)
	// takes the drop; i=4: 90<102 flat; i=5: 80<90 flat
	want := []float64{0, 0, 102.0/101 - 1, 90.0/102 - 1, 0, 0}
	assert.InDeltaSlice(t, want, out.StrategyReturn, 1e-12)
	assert.Equal(t, 100.0, out.Equity.Values[0])
}

func TestRun_FlatSeriesHasUndefinedRatios(t *testing.T) {
	out, err := Run(series(t0, time.Minute, 5, 5, 5, 5), Params{Kind: BuyAndHold})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out.Sharpe))
	assert.True(t, math.IsNaN(out.Vol))
	assert.Equal(t, 0.0, out.TotalReturn)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(series(t0, time.Minute, 1, 2), Params{})
	assert.True(t, errors.Is(err, ErrTooFewPoints))

	_, err = Run(series(t0, time.Minute, 1, 2, 3), Params{Kind: Momentum})
	assert.Error(t, err)
}
