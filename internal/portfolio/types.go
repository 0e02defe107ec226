package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	ErrNoAssets   = errors.New("no assets provided")
	ErrMisaligned = errors.New("price and returns frames are not aligned")
)

// Frame is a dates × assets table. Missing values are NaN.
// Used for price history, returns and the weights held per date.
type Frame struct {
	Dates  []time.Time
	Assets []string
	Rows   [][]float64 // Rows[i][j] = value of Assets[j] on Dates[i]
}

// NewFrame validates shape and uniqueness of dates and assets. Dates need not be sorted.
func NewFrame(dates []time.Time, assets []string, rows [][]float64) (Frame, error) {
	if len(rows) != len(dates) {
		return Frame{}, fmt.Errorf("frame has %d dates but %d rows", len(dates), len(rows))
	}
	seenAsset := make(map[string]bool, len(assets))
	for _, a := range assets {
		if seenAsset[a] {
			return Frame{}, fmt.Errorf("duplicate asset %q", a)
		}
		seenAsset[a] = true
	}
	seenDate := make(map[int64]bool, len(dates))
	for i, d := range dates {
		key := d.UnixNano()
		if seenDate[key] {
			return Frame{}, fmt.Errorf("duplicate date %s", d.Format(time.RFC3339))
		}
		seenDate[key] = true
		if len(rows[i]) != len(assets) {
			return Frame{}, fmt.Errorf("row %d has %d values, expected %d", i, len(rows[i]), len(assets))
		}
	}
	return Frame{Dates: dates, Assets: assets, Rows: rows}, nil
}

// Len returns the number of dates.
func (f Frame) Len() int { return len(f.Dates) }

// Empty reports whether the frame has no dates or no assets.
func (f Frame) Empty() bool { return len(f.Dates) == 0 || len(f.Assets) == 0 }

// Column returns a copy of the values of asset j.
func (f Frame) Column(j int) []float64 {
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[j]
	}
	return out
}

// Index returns the column position of an asset, or -1.
func (f Frame) Index(asset string) int {
	for j, a := range f.Assets {
		if a == asset {
			return j
		}
	}
	return -1
}

// Clean drops rows and columns that are entirely missing and sorts by date ascending.
// The receiver is left untouched.
func (f Frame) Clean() Frame {
	order := make([]int, len(f.Dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return f.Dates[order[a]].Before(f.Dates[order[b]]) })

	keepCol := make([]bool, len(f.Assets))
	keepRow := make([]bool, len(f.Dates))
	for i, row := range f.Rows {
		for j, v := range row {
			if !math.IsNaN(v) {
				keepRow[i] = true
				keepCol[j] = true
			}
		}
	}

	var assets []string
	for j, a := range f.Assets {
		if keepCol[j] {
			assets = append(assets, a)
		}
	}
	var dates []time.Time
	var rows [][]float64
	for _, i := range order {
		if !keepRow[i] {
			continue
		}
		row := make([]float64, 0, len(assets))
		for j, v := range f.Rows[i] {
			if keepCol[j] {
				row = append(row, v)
			}
		}
		dates = append(dates, f.Dates[i])
		rows = append(rows, row)
	}
	return Frame{Dates: dates, Assets: assets, Rows: rows}
}

// Select keeps only the rows whose date appears in dates, in the order of dates.
func (f Frame) Select(dates []time.Time) Frame {
	pos := make(map[int64]int, len(f.Dates))
	for i, d := range f.Dates {
		pos[d.UnixNano()] = i
	}
	out := Frame{Assets: f.Assets}
	for _, d := range dates {
		i, ok := pos[d.UnixNano()]
		if !ok {
			continue
		}
		row := make([]float64, len(f.Rows[i]))
		copy(row, f.Rows[i])
		out.Dates = append(out.Dates, f.Dates[i])
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Series is a date-indexed scalar series.
type Series struct {
	Dates  []time.Time
	Values []float64
}

func (s Series) Len() int    { return len(s.Values) }
func (s Series) Empty() bool { return len(s.Values) == 0 }

// Last returns the final value, or NaN for an empty series.
func (s Series) Last() float64 {
	if s.Empty() {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// Weights maps asset to allocation.
type Weights map[string]float64

// Vector projects the weights onto the given asset order, defaulting to 0.
func (w Weights) Vector(assets []string) []float64 {
	out := make([]float64, len(assets))
	for i, a := range assets {
		out[i] = w[a]
	}
	return out
}

// Matrix is a labelled square matrix (correlation, covariance).
type Matrix struct {
	Labels []string
	Data   [][]float64
}

func (m Matrix) Empty() bool { return len(m.Labels) == 0 }

// Result is the output of a backtest run. It is immutable once returned.
type Result struct {
	Prices         Frame // cleaned prices trimmed to the returns index
	Returns        Frame
	Value          Series // portfolio value per date
	WeightsHistory Frame  // weight held per asset per date, after drift and rebalance
}

// Empty reports insufficient data: callers must check it before using the fields.
func (r Result) Empty() bool { return r.Value.Empty() }
