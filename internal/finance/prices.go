package finance

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"quantDashboard/internal/portfolio"
)

// DefaultPeriod is the history window used when none is given.
const DefaultPeriod = "2y"

// SeriesFetcher is satisfied by YahooClient.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, symbol, interval, rangeParam string) (AssetData, error)
}

// Period is a parsed history window: the Yahoo range to request and how many
// calendar days to keep from the latest bar (0 keeps everything).
type Period struct {
	Range string
	Days  int
}

var rePeriod = regexp.MustCompile(`^(\d+)(d|w|wk|mo|m|y)$`)

// ParsePeriod accepts windows like 30d, 3w, 6mo (or 6m), 2y and max.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		s = DefaultPeriod
	}
	if s == "max" {
		return Period{Range: "max"}, nil
	}
	g := rePeriod.FindStringSubmatch(s)
	if g == nil {
		return Period{}, fmt.Errorf("invalid period %q (use e.g. 30d, 3w, 6mo, 1y, 5y)", s)
	}
	n, err := strconv.Atoi(g[1])
	if err != nil || n <= 0 {
		return Period{}, fmt.Errorf("invalid period %q", s)
	}

	switch g[2] {
	case "d":
		switch {
		case n <= 5:
			return Period{"5d", n}, nil
		case n <= 30:
			return Period{"1mo", n}, nil
		case n <= 90:
			return Period{"3mo", n}, nil
		}
		return Period{"1y", n}, nil
	case "w", "wk":
		days := n * 7
		switch {
		case n <= 1:
			return Period{"5d", days}, nil
		case n <= 4:
			return Period{"1mo", days}, nil
		case n <= 12:
			return Period{"3mo", days}, nil
		case n <= 26:
			return Period{"6mo", days}, nil
		}
		return Period{"1y", days}, nil
	case "m", "mo":
		days := n * 30
		switch {
		case n <= 1:
			return Period{"1mo", days}, nil
		case n <= 3:
			return Period{"3mo", days}, nil
		case n <= 6:
			return Period{"6mo", days}, nil
		case n <= 12:
			return Period{"1y", days}, nil
		case n <= 24:
			return Period{"2y", days}, nil
		}
		return Period{"5y", days}, nil
	default:
		days := n * 365
		switch {
		case n <= 1:
			return Period{"1y", days}, nil
		case n <= 2:
			return Period{"2y", days}, nil
		case n <= 5:
			return Period{"5y", days}, nil
		case n <= 10:
			return Period{"10y", days}, nil
		}
		return Period{"max", days}, nil
	}
}

// FetchPrices downloads daily closes for symbols over period and aligns them
// on the trading dates every symbol has a bar for. Any failure is logged and
// yields an empty frame.
func FetchPrices(ctx context.Context, src SeriesFetcher, symbols []string, period string) portfolio.Frame {
	symbols = uniqueUpper(symbols)
	if len(symbols) == 0 {
		return portfolio.Frame{}
	}
	p, err := ParsePeriod(period)
	if err != nil {
		yahooLog.Error().Err(err).Msg("prices: bad period")
		return portfolio.Frame{}
	}

	byDay := make([]map[time.Time]float64, len(symbols))
	count := map[time.Time]int{}
	for j, sym := range symbols {
		data, err := src.FetchSeries(ctx, sym, "1d", p.Range)
		if err != nil {
			yahooLog.Error().Err(err).Str("symbol", sym).Msg("prices: fetch failed")
			return portfolio.Frame{}
		}
		byDay[j] = make(map[time.Time]float64, data.Len())
		for i, ts := range data.Timestamps {
			byDay[j][dayOf(ts)] = data.Closes[i]
		}
		for d := range byDay[j] {
			count[d]++
		}
	}

	var dates []time.Time
	for d, c := range count {
		if c == len(symbols) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(a, b int) bool { return dates[a].Before(dates[b]) })
	if p.Days > 0 && len(dates) > 0 {
		cutoff := dates[len(dates)-1].AddDate(0, 0, -p.Days)
		start := sort.Search(len(dates), func(i int) bool { return !dates[i].Before(cutoff) })
		dates = dates[start:]
	}
	if len(dates) == 0 {
		yahooLog.Warn().Strs("symbols", symbols).Msg("prices: no common trading dates")
		return portfolio.Frame{}
	}

	rows := make([][]float64, len(dates))
	for i, d := range dates {
		rows[i] = make([]float64, len(symbols))
		for j := range symbols {
			rows[i][j] = byDay[j][d]
		}
	}
	f, err := portfolio.NewFrame(dates, symbols, rows)
	if err != nil {
		yahooLog.Error().Err(err).Msg("prices: build frame")
		return portfolio.Frame{}
	}
	return f
}

func uniqueUpper(symbols []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// PriceService memoizes FetchPrices results. Returned frames are shared and
// must not be modified.
type PriceService struct {
	src   SeriesFetcher
	cache *Cache[portfolio.Frame]
}

func NewPriceService(src SeriesFetcher, ttl time.Duration) *PriceService {
	return &PriceService{src: src, cache: NewCache[portfolio.Frame](ttl)}
}

func (s *PriceService) Prices(ctx context.Context, symbols []string, period string) portfolio.Frame {
	key := strings.Join(uniqueUpper(symbols), ",") + "|" + strings.ToLower(period)
	if f, ok := s.cache.Get(key); ok {
		return f
	}
	f := FetchPrices(ctx, s.src, symbols, period)
	if !f.Empty() {
		s.cache.Set(key, f)
	}
	return f
}
