package finance

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// dropNonPositive removes points where close <= 0 (Yahoo reports missing bars
// as null, which decodes to 0), keeping timestamps and values aligned.
func dropNonPositive(ts []int64, cl []float64) ([]int64, []float64) {
	ts, cl = truncatePair(ts, cl)
	outTs := make([]int64, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for i := range ts {
		if cl[i] <= 0 {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, cl[i])
	}
	return outTs, outCl
}

// filterIQR removes outliers using the Interquartile Range (IQR) rule.
// Any point with value outside [Q1 - k*IQR, Q3 + k*IQR] is dropped.
// Series shorter than minPoints, or that would lose more than half of
// minPoints, are returned unchanged.
func filterIQR(ts []int64, cl []float64, k float64, minPoints int) ([]int64, []float64) {
	ts, cl = truncatePair(ts, cl)
	if len(cl) < minPoints {
		return ts, cl
	}
	sorted := make([]float64, len(cl))
	copy(sorted, cl)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	if iqr <= 0 {
		return ts, cl
	}
	lower, upper := q1-k*iqr, q3+k*iqr

	outTs := make([]int64, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for i, v := range cl {
		if v < lower || v > upper {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, v)
	}
	if len(outCl) < minPoints/2 {
		return ts, cl
	}
	return outTs, outCl
}

func truncatePair(ts []int64, cl []float64) ([]int64, []float64) {
	n := min(len(ts), len(cl))
	return ts[:n], cl[:n]
}
