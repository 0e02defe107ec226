package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// consecutive returns n calendar days starting at start.
func consecutive(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

// businessDays returns weekdays in [from, to].
func businessDays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

// frameFromColumns builds a frame from per-asset price columns.
func frameFromColumns(t *testing.T, dates []time.Time, assets []string, cols ...[]float64) Frame {
	t.Helper()
	require.Len(t, cols, len(assets))
	rows := make([][]float64, len(dates))
	for i := range dates {
		rows[i] = make([]float64, len(assets))
		for j := range assets {
			require.Len(t, cols[j], len(dates))
			rows[i][j] = cols[j][i]
		}
	}
	f, err := NewFrame(dates, assets, rows)
	require.NoError(t, err)
	return f
}
