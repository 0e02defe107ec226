package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quantDashboard/internal/finance"
	"quantDashboard/internal/logging"
	"quantDashboard/internal/portfolio"
)

var storeLog = logging.New("storage")

// ErrEmptyLog is returned when a log has no usable quote.
var ErrEmptyLog = errors.New("price log is empty")

// PriceLog is an append-only record of observed quotes.
type PriceLog interface {
	Append(q finance.Quote) error
	// Load returns the quotes of symbol sorted by time, one per timestamp.
	Load(symbol string) ([]finance.Quote, error)
}

var csvHeader = []string{"timestamp_utc", "price"}

// CSVLog keeps the quotes of a single symbol in a two-column CSV file
// (timestamp_utc,price). Rows that do not parse are skipped on load.
// Appends through one CSVLog are serialized.
type CSVLog struct {
	Path   string
	Symbol string

	mu sync.Mutex
}

func NewCSVLog(path, symbol string) *CSVLog {
	return &CSVLog{Path: path, Symbol: strings.ToUpper(symbol)}
}

func (l *CSVLog) Append(q finance.Quote) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	info, statErr := os.Stat(l.Path)
	needHeader := errors.Is(statErr, fs.ErrNotExist) || (statErr == nil && info.Size() == 0)
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open price log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := w.Write([]string{q.Time.UTC().Format(time.RFC3339), q.Price.String()}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (l *CSVLog) Load(symbol string) ([]finance.Quote, error) {
	if symbol != "" && !strings.EqualFold(symbol, l.Symbol) {
		return nil, fmt.Errorf("%s log holds %s: %w", symbol, l.Symbol, ErrEmptyLog)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrEmptyLog
	}
	if err != nil {
		return nil, fmt.Errorf("open price log: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrEmptyLog
	}
	if err != nil {
		return nil, fmt.Errorf("read price log header: %w", err)
	}
	tsCol, priceCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "timestamp_utc":
			tsCol = i
		case "price":
			priceCol = i
		}
	}
	if tsCol < 0 || priceCol < 0 {
		return nil, fmt.Errorf("invalid price log %s: expected columns %v, got %v", l.Path, csvHeader, header)
	}

	var quotes []finance.Quote
	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) <= max(tsCol, priceCol) {
			skipped++
			continue
		}
		ts, err := parseTimestamp(rec[tsCol])
		if err != nil {
			skipped++
			continue
		}
		p, err := decimal.NewFromString(strings.TrimSpace(rec[priceCol]))
		if err != nil {
			skipped++
			continue
		}
		quotes = append(quotes, finance.Quote{Symbol: l.Symbol, Time: ts, Price: p})
	}
	if skipped > 0 {
		storeLog.Debug().Int("skipped", skipped).Str("path", l.Path).Msg("storage: unparsable rows dropped")
	}
	quotes = dedupeSorted(quotes)
	if len(quotes) == 0 {
		return nil, ErrEmptyLog
	}
	return quotes, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}

// dedupeSorted keeps the first quote seen for each timestamp and sorts by time.
func dedupeSorted(quotes []finance.Quote) []finance.Quote {
	seen := make(map[int64]bool, len(quotes))
	out := quotes[:0]
	for _, q := range quotes {
		k := q.Time.UnixNano()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, q)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// QuoteSeries converts quotes into a float series for the analytics.
func QuoteSeries(quotes []finance.Quote) portfolio.Series {
	s := portfolio.Series{
		Dates:  make([]time.Time, len(quotes)),
		Values: make([]float64, len(quotes)),
	}
	for i, q := range quotes {
		s.Dates[i] = q.Time
		s.Values[i] = q.Price.InexactFloat64()
	}
	return s
}
