package portfolio

import (
	"math"
	"time"
)

// ComputeReturns derives simple one-step returns from a price frame.
//
// The prior observation for an asset is its last non-missing price, so a gap
// does not erase the move across it; a missing current price stays missing.
// Infinite or undefined ratios (zero prior price) are treated as missing.
// Rows where every asset is missing are dropped, which always removes the first
// date. Empty input yields an empty frame.
func ComputeReturns(prices Frame) Frame {
	if prices.Empty() {
		return Frame{}
	}

	out := Frame{Assets: prices.Assets}
	last := make([]float64, len(prices.Assets))
	for j := range last {
		last[j] = math.NaN()
	}

	for i, row := range prices.Rows {
		rets := make([]float64, len(row))
		observed := false
		for j, p := range row {
			rets[j] = math.NaN()
			if math.IsNaN(p) {
				continue
			}
			if prev := last[j]; !math.IsNaN(prev) {
				r := p/prev - 1
				if !math.IsInf(r, 0) && !math.IsNaN(r) {
					rets[j] = r
					observed = true
				}
			}
			last[j] = p
		}
		if i == 0 || !observed {
			continue
		}
		out.Dates = append(out.Dates, prices.Dates[i])
		out.Rows = append(out.Rows, rets)
	}
	if len(out.Dates) == 0 {
		return Frame{}
	}
	return out
}

// PortfolioReturns is the one-step relative change of a value series, with
// undefined steps removed.
func PortfolioReturns(value Series) Series {
	var out Series
	for i := 1; i < len(value.Values); i++ {
		r := value.Values[i]/value.Values[i-1] - 1
		if math.IsInf(r, 0) || math.IsNaN(r) {
			continue
		}
		out.Dates = append(out.Dates, value.Dates[i])
		out.Values = append(out.Values, r)
	}
	return out
}

func sameDates(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func sameAssets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
