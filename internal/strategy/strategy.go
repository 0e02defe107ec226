// Package strategy runs single-asset strategies on the logged quote series.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"quantDashboard/internal/logging"
	"quantDashboard/internal/portfolio"
)

var stratLog = logging.New("strategy")

// ErrTooFewPoints is returned when a series is too short to evaluate.
var ErrTooFewPoints = errors.New("not enough points")

// Periodicity is the bar size a price series is resampled to.
type Periodicity string

const (
	Raw        Periodicity = "Raw"
	FifteenMin Periodicity = "15min"
	Hourly     Periodicity = "1H"
	Daily      Periodicity = "1D"
)

func ParsePeriodicity(s string) (Periodicity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "raw":
		return Raw, nil
	case "15min", "15m":
		return FifteenMin, nil
	case "1h", "h", "hourly":
		return Hourly, nil
	case "1d", "d", "daily":
		return Daily, nil
	}
	return "", fmt.Errorf("unknown periodicity %q (raw, 15min, 1h, 1d)", s)
}

func (p Periodicity) bucket() time.Duration {
	switch p {
	case FifteenMin:
		return 15 * time.Minute
	case Hourly:
		return time.Hour
	case Daily:
		return 24 * time.Hour
	}
	return 0
}

// Resample keeps the last value of each bucket, labelled by the bucket start
// in UTC. Buckets without data are omitted. Raw returns the series unchanged.
func Resample(s portfolio.Series, p Periodicity) portfolio.Series {
	d := p.bucket()
	if d == 0 || s.Empty() {
		return s
	}
	var out portfolio.Series
	for i, t := range s.Dates {
		v := s.Values[i]
		if math.IsNaN(v) {
			continue
		}
		b := t.UTC().Truncate(d)
		if n := len(out.Dates); n > 0 && out.Dates[n-1].Equal(b) {
			out.Values[n-1] = v
			continue
		}
		out.Dates = append(out.Dates, b)
		out.Values = append(out.Values, v)
	}
	return out
}

// Kind selects the position rule.
type Kind string

const (
	BuyAndHold Kind = "Buy & Hold"
	Momentum   Kind = "Momentum"
)

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bh", "buyhold", "buy&hold", "hold":
		return BuyAndHold, nil
	case "momentum", "mom":
		return Momentum, nil
	}
	return "", fmt.Errorf("unknown strategy %q (bh, momentum)", s)
}

type Params struct {
	Kind   Kind
	Window int // momentum lookback in periods
}

// Outcome is the evaluation of a strategy over a price series.
type Outcome struct {
	Price          portfolio.Series
	Returns        []float64 // one-step price returns, first is 0
	StrategyReturn []float64
	Equity         portfolio.Series // starts at the first price
	TotalReturn    float64
	MaxDrawdown    float64
	Sharpe         float64 // NaN when undefined
	Vol            float64 // NaN when undefined
	PeriodsPerYear float64
}

// Run evaluates the strategy on s (already resampled).
//
// Momentum is invested (position 1) on a date when the N-period change known
// at the previous date is positive, otherwise flat. Sharpe and volatility are
// annualized with the sampling rate inferred from the median spacing and use
// the population standard deviation.
func Run(s portfolio.Series, p Params) (Outcome, error) {
	if s.Len() < 3 {
		return Outcome{}, fmt.Errorf("%d points: %w", s.Len(), ErrTooFewPoints)
	}
	if p.Kind == Momentum && p.Window < 1 {
		return Outcome{}, fmt.Errorf("momentum window must be positive, got %d", p.Window)
	}

	n := s.Len()
	ret := make([]float64, n)
	for i := 1; i < n; i++ {
		ret[i] = finiteOrZero(s.Values[i]/s.Values[i-1] - 1)
	}

	strat := make([]float64, n)
	switch p.Kind {
	case Momentum:
		for i := 1; i < n; i++ {
			k := i - 1 // signal known at the previous date
			if k-p.Window < 0 {
				continue
			}
			if mom := s.Values[k]/s.Values[k-p.Window] - 1; mom > 0 {
				strat[i] = ret[i]
			}
		}
	default:
		copy(strat, ret)
	}

	equity := make([]float64, n)
	acc := 1.0
	for i, r := range strat {
		acc *= 1 + r
		equity[i] = acc
	}
	value := make([]float64, n)
	for i, e := range equity {
		value[i] = e * s.Values[0]
	}

	ppy := portfolio.InferPeriodsPerYear(s.Dates)
	mean, std := stat.PopMeanStdDev(strat, nil)
	out := Outcome{
		Price:          s,
		Returns:        ret,
		StrategyReturn: strat,
		Equity:         portfolio.Series{Dates: s.Dates, Values: value},
		TotalReturn:    equity[n-1] - 1,
		MaxDrawdown:    portfolio.MaxDrawdown(equity),
		Sharpe:         math.NaN(),
		Vol:            math.NaN(),
		PeriodsPerYear: ppy,
	}
	if std > 0 && ppy > 0 {
		out.Sharpe = mean / std * math.Sqrt(ppy)
		out.Vol = std * math.Sqrt(ppy)
	}
	stratLog.Debug().
		Str("kind", string(p.Kind)).
		Int("points", n).
		Float64("total_return", out.TotalReturn).
		Msg("strategy: evaluated")
	return out, nil
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
