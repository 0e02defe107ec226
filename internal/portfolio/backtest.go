package portfolio

import (
	"fmt"
	"math"
	"time"

	"quantDashboard/internal/logging"
)

const DefaultInitialValue = 100.0

var btLog = logging.New("backtest")

// Backtest simulates a portfolio over prices: holdings drift with each date's
// returns and, on scheduled dates, are reset to the target weights of the
// current total value. A nil or empty weights map means equal weight.
//
// Insufficient data yields an empty Result and a nil error. The only error is
// ErrMisaligned, raised when the price and returns frames disagree on columns
// or dates before any arithmetic is done.
func Backtest(prices Frame, weights Weights, initialValue float64, freq Frequency) (Result, error) {
	if prices.Empty() {
		return Result{}, nil
	}
	if initialValue <= 0 || math.IsNaN(initialValue) || math.IsInf(initialValue, 0) {
		btLog.Warn().Float64("initial_value", initialValue).Msg("backtest: invalid initial value, using default")
		initialValue = DefaultInitialValue
	}

	prices = prices.Clean()
	if prices.Empty() {
		return Result{}, nil
	}

	rets := ComputeReturns(prices)
	if rets.Empty() {
		btLog.Debug().Int("dates", prices.Len()).Msg("backtest: no returns, insufficient data")
		return Result{}, nil
	}

	bt := prices.Select(rets.Dates)
	if !sameAssets(bt.Assets, rets.Assets) || !sameDates(bt.Dates, rets.Dates) {
		return Result{}, fmt.Errorf("%w: %d×%d prices vs %d×%d returns", ErrMisaligned, bt.Len(), len(bt.Assets), rets.Len(), len(rets.Assets))
	}

	assets := bt.Assets
	var target Weights
	if len(weights) == 0 {
		target = EqualWeights(assets)
	} else {
		w, err := NormalizeWeights(weights, assets)
		if err != nil {
			return Result{}, nil
		}
		target = w
	}
	tw := target.Vector(assets)
	rb := rebalanceMask(bt.Dates, freq)

	btLog.Debug().
		Int("dates", bt.Len()).
		Strs("assets", assets).
		Str("rebalance", string(freq)).
		Float64("initial_value", initialValue).
		Msg("backtest: starting")

	sim := newSimulator(tw, initialValue)
	value := Series{Dates: make([]time.Time, 0, bt.Len()), Values: make([]float64, 0, bt.Len())}
	held := Frame{Assets: assets, Dates: make([]time.Time, 0, bt.Len()), Rows: make([][]float64, 0, bt.Len())}

	for i, dt := range bt.Dates {
		if i > 0 {
			sim.drift(rets.Rows[i])
			if rb[i] {
				sim.rebalance()
			}
		}
		pv, w := sim.snapshot()
		value.Dates = append(value.Dates, dt)
		value.Values = append(value.Values, pv)
		held.Dates = append(held.Dates, dt)
		held.Rows = append(held.Rows, w)
	}
	if sim.wiped {
		btLog.Warn().Msg("backtest: portfolio value reached zero, weights held reported as 0")
	}

	return Result{
		Prices:         bt,
		Returns:        rets,
		Value:          value,
		WeightsHistory: held,
	}, nil
}

// simulator owns the holdings for a single run: one value per asset in the
// order of the target vector, updated in place.
type simulator struct {
	target   []float64
	holdings []float64
	wiped    bool
}

func newSimulator(target []float64, initialValue float64) *simulator {
	h := make([]float64, len(target))
	for j, w := range target {
		h[j] = initialValue * w
	}
	return &simulator{target: target, holdings: h}
}

// drift applies one date's returns; missing returns mean no change.
func (s *simulator) drift(rets []float64) {
	for j, r := range rets {
		if math.IsNaN(r) {
			continue
		}
		s.holdings[j] *= 1 + r
	}
}

// rebalance redistributes the current total according to the target weights.
func (s *simulator) rebalance() {
	total := s.total()
	for j, w := range s.target {
		s.holdings[j] = total * w
	}
}

func (s *simulator) total() float64 {
	sum := 0.0
	for _, h := range s.holdings {
		sum += h
	}
	return sum
}

// snapshot returns the portfolio value and the weight held per asset.
// A zero total reports zero weights instead of dividing by zero.
func (s *simulator) snapshot() (float64, []float64) {
	pv := s.total()
	w := make([]float64, len(s.holdings))
	if pv == 0 {
		s.wiped = true
		return pv, w
	}
	for j, h := range s.holdings {
		w[j] = h / pv
	}
	return pv, w
}
