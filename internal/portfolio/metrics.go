package portfolio

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const DefaultPeriodsPerYear = 252

// MaxDrawdown is the minimum of value/running_max - 1. NaN for empty input.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	dd := math.NaN()
	peak := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		peak = math.Max(peak, v)
		d := v/peak - 1
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		if math.IsNaN(dd) || d < dd {
			dd = d
		}
	}
	return dd
}

// DrawdownSeries is value/running_max - 1 at every date.
func DrawdownSeries(value Series) Series {
	out := Series{Dates: value.Dates, Values: make([]float64, len(value.Values))}
	peak := math.Inf(-1)
	for i, v := range value.Values {
		peak = math.Max(peak, v)
		out.Values[i] = v/peak - 1
	}
	return out
}

// AnnualizedReturn compounds the total growth of a value series to a yearly
// rate: (last/first)^(periodsPerYear/(n-1)) - 1. NaN with fewer than two
// points or non-positive growth.
func AnnualizedReturn(values []float64, periodsPerYear int) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	total := values[n-1] / values[0]
	if !(total > 0) || math.IsInf(total, 0) {
		return math.NaN()
	}
	return math.Pow(total, float64(periodsPerYear)/float64(n-1)) - 1
}

// AnnualizedVol is the sample standard deviation of returns scaled by
// sqrt(periodsPerYear). Missing returns are ignored.
func AnnualizedVol(returns []float64, periodsPerYear int) float64 {
	r := dropNaN(returns)
	if len(r) < 2 {
		return math.NaN()
	}
	return stat.StdDev(r, nil) * math.Sqrt(float64(periodsPerYear))
}

// SharpeRatio annualizes mean excess return over its sample standard deviation.
// riskFreeAnnual is spread evenly over the periods. NaN when volatility is 0 or undefined.
func SharpeRatio(returns []float64, riskFreeAnnual float64, periodsPerYear int) float64 {
	r := dropNaN(returns)
	if len(r) < 2 {
		return math.NaN()
	}
	rf := riskFreeAnnual / float64(periodsPerYear)
	excess := make([]float64, len(r))
	for i, v := range r {
		excess[i] = v - rf
	}
	mean, std := stat.MeanStdDev(excess, nil)
	if std == 0 || math.IsNaN(std) {
		return math.NaN()
	}
	return mean / std * math.Sqrt(float64(periodsPerYear))
}

// CorrelationMatrix is the pairwise Pearson correlation of the asset columns,
// each pair computed over the dates where both are present.
func CorrelationMatrix(returns Frame) Matrix {
	return pairwise(returns, func(x, y []float64) float64 {
		return stat.Correlation(x, y, nil)
	})
}

// CovarianceMatrix is the pairwise sample covariance of the asset columns
// multiplied by periodsPerYear.
func CovarianceMatrix(returns Frame, periodsPerYear int) Matrix {
	scale := float64(periodsPerYear)
	return pairwise(returns, func(x, y []float64) float64 {
		return stat.Covariance(x, y, nil) * scale
	})
}

func pairwise(returns Frame, fn func(x, y []float64) float64) Matrix {
	if returns.Empty() {
		return Matrix{}
	}
	n := len(returns.Assets)
	cols := make([][]float64, n)
	for j := range cols {
		cols[j] = returns.Column(j)
	}
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			x, y := complete(cols[i], cols[j])
			v := math.NaN()
			if len(x) >= 2 {
				v = fn(x, y)
			}
			data[i][j] = v
			data[j][i] = v
		}
	}
	labels := make([]string, n)
	copy(labels, returns.Assets)
	return Matrix{Labels: labels, Data: data}
}

// complete keeps the positions where both x and y are present.
func complete(x, y []float64) ([]float64, []float64) {
	var a, b []float64
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
			continue
		}
		a = append(a, x[k])
		b = append(b, y[k])
	}
	return a, b
}

// DiversificationEffect is Σ|w_i|·vol_i − sqrt(wᵗ·Cov·w): the volatility saved
// by holding imperfectly correlated assets. cov must be annualized on the same
// basis the vols are read in. Weights are projected onto the covariance labels
// (absent assets count as 0). NaN when either input is empty or they share no asset.
func DiversificationEffect(weights Weights, cov Matrix) float64 {
	n := len(cov.Labels)
	if n == 0 || len(weights) == 0 || len(cov.Data) != n {
		return math.NaN()
	}
	shared := 0
	for _, a := range cov.Labels {
		if _, ok := weights[a]; ok {
			shared++
		}
	}
	if shared == 0 {
		return math.NaN()
	}

	flat := make([]float64, 0, n*n)
	for _, row := range cov.Data {
		if len(row) != n {
			return math.NaN()
		}
		flat = append(flat, row...)
	}
	sigma := mat.NewSymDense(n, flat)
	w := mat.NewVecDense(n, weights.Vector(cov.Labels))

	weighted := 0.0
	for i := 0; i < n; i++ {
		weighted += math.Abs(w.AtVec(i)) * math.Sqrt(sigma.At(i, i))
	}
	portVol := math.Sqrt(mat.Inner(w, sigma, w))
	return weighted - portVol
}

// InferPeriodsPerYear estimates the sampling rate from the median spacing of
// the dates over a 365-day year. 0 when it cannot be inferred.
func InferPeriodsPerYear(dates []time.Time) float64 {
	if len(dates) < 2 {
		return 0
	}
	gaps := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps = append(gaps, dates[i].Sub(dates[i-1]).Seconds())
	}
	sort.Float64s(gaps)
	median := gaps[len(gaps)/2]
	if len(gaps)%2 == 0 {
		median = (gaps[len(gaps)/2-1] + median) / 2
	}
	if median <= 0 {
		return 0
	}
	return 365 * 24 * 3600 / median
}

func dropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Summary holds the KPIs shown next to a backtest.
type Summary struct {
	FinalValue      float64
	AnnReturn       float64
	AnnVol          float64
	Sharpe          float64
	MaxDrawdown     float64
	Diversification float64
	Correlation     Matrix
	Covariance      Matrix
}

// Summarize derives the dashboard KPIs from a backtest: return and drawdown on
// the value curve, volatility and Sharpe on its one-step returns, and the
// diversification effect of the last weights held against annualized covariance.
func Summarize(res Result, riskFreeAnnual float64, periodsPerYear int) Summary {
	nan := math.NaN()
	if res.Empty() {
		return Summary{FinalValue: nan, AnnReturn: nan, AnnVol: nan, Sharpe: nan, MaxDrawdown: nan, Diversification: nan}
	}
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	portRets := PortfolioReturns(res.Value)
	s := Summary{
		FinalValue:  res.Value.Last(),
		AnnReturn:   AnnualizedReturn(res.Value.Values, periodsPerYear),
		AnnVol:      AnnualizedVol(portRets.Values, periodsPerYear),
		Sharpe:      SharpeRatio(portRets.Values, riskFreeAnnual, periodsPerYear),
		MaxDrawdown: MaxDrawdown(res.Value.Values),
		Correlation: CorrelationMatrix(res.Returns),
		Covariance:  CovarianceMatrix(res.Returns, periodsPerYear),
	}
	last := Weights{}
	if h := res.WeightsHistory; h.Len() > 0 {
		row := h.Rows[h.Len()-1]
		for j, a := range h.Assets {
			last[a] = row[j]
		}
	}
	s.Diversification = DiversificationEffect(last, s.Covariance)
	return s
}
