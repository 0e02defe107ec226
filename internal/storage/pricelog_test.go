package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantDashboard/internal/finance"
)

func quote(sym string, ts time.Time, price string) finance.Quote {
	return finance.Quote{Symbol: sym, Time: ts, Price: decimal.RequireFromString(price)}
}

func TestCSVLog_AppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "aapl_prices.csv")
	log := NewCSVLog(path, "aapl")
	t0 := time.Date(2024, 6, 3, 13, 30, 0, 0, time.UTC)

	require.NoError(t, log.Append(quote("AAPL", t0.Add(5*time.Minute), "194.10")))
	require.NoError(t, log.Append(quote("AAPL", t0, "193.99")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp_utc,price\n2024-06-03T13:35:00Z,194.1\n2024-06-03T13:30:00Z,193.99\n", string(raw))

	quotes, err := log.Load("AAPL")
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, t0, quotes[0].Time)
	assert.Equal(t, "AAPL", quotes[0].Symbol)
	assert.True(t, decimal.RequireFromString("194.1").Equal(quotes[1].Price))
}

func TestCSVLog_LoadCleansRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(`timestamp_utc,price
2024-06-03T13:40:00+00:00,195
garbage,1
2024-06-03T13:30:00+00:00,193
2024-06-03T13:35:00Z,n/a
2024-06-03T13:30:00Z,999
2024-06-03T15:35:00+02:00,194
`), 0o644))

	quotes, err := NewCSVLog(path, "AAPL").Load("")
	require.NoError(t, err)

	s := QuoteSeries(quotes)
	// 15:35+02:00 is 13:35Z; the later duplicate of 13:30 is dropped
	assert.Equal(t, []float64{193, 194, 195}, s.Values)
	assert.Equal(t, time.Date(2024, 6, 3, 13, 35, 0, 0, time.UTC), s.Dates[1])
}

func TestCSVLog_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewCSVLog(filepath.Join(dir, "missing.csv"), "AAPL").Load("AAPL")
	assert.True(t, errors.Is(err, ErrEmptyLog))

	headerOnly := filepath.Join(dir, "header.csv")
	require.NoError(t, os.WriteFile(headerOnly, []byte("timestamp_utc,price\n"), 0o644))
	_, err = NewCSVLog(headerOnly, "AAPL").Load("AAPL")
	assert.True(t, errors.Is(err, ErrEmptyLog))

	wrong := filepath.Join(dir, "wrong.csv")
	require.NoError(t, os.WriteFile(wrong, []byte("date,close\n2024-01-01,1\n"), 0o644))
	_, err = NewCSVLog(wrong, "AAPL").Load("AAPL")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyLog))

	_, err = NewCSVLog(headerOnly, "AAPL").Load("MSFT")
	assert.True(t, errors.Is(err, ErrEmptyLog))
}

func TestCSVLog_ConcurrentAppendsWriteOneHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aapl.csv")
	l := NewCSVLog(path, "AAPL")
	start := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Append(quote("AAPL", start.Add(time.Duration(i)*time.Minute), "100")))
		}(i)
	}
	wg.Wait()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(b), "timestamp_utc,price"))

	got, err := l.Load("AAPL")
	require.NoError(t, err)
	assert.Len(t, got, 20)
}
