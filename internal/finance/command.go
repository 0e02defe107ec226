package finance

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"quantDashboard/internal/portfolio"
)

// BacktestRequest is a parsed /backtest command.
type BacktestRequest struct {
	Symbols   []string
	Weights   portfolio.Weights // nil means equal weight
	Rebalance portfolio.Frequency // empty when no keyword was given
	Period    string
}

var (
	reSymbol = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.^=_+-]*$`)

	errPartialWeights = errors.New("give a weight for every symbol or for none")
)

// ParseBacktestCommand parses "S1 [w1] S2 [w2] ... [rebalance] [period]".
// A leading /backtest (with or without @bot suffix) is ignored. A number
// after a symbol is its weight; a rebalance keyword (never, weekly,
// monthly, quarterly) and a period (e.g. 6mo, 2y) may appear anywhere.
// Rebalance is left empty when no keyword is given so callers can apply
// their own default. Weights must be finite and non-negative.
func ParseBacktestCommand(input string) (BacktestRequest, error) {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) > 0 && strings.HasPrefix(parts[0], "/") {
		parts = parts[1:]
	}

	var req BacktestRequest
	weights := portfolio.Weights{}
	seen := map[string]bool{}
	rebalanceSet := false
	last := ""

	for _, p := range parts {
		if w, err := strconv.ParseFloat(p, 64); err == nil {
			if last == "" {
				return BacktestRequest{}, fmt.Errorf("weight %s has no symbol before it", p)
			}
			if _, dup := weights[last]; dup {
				return BacktestRequest{}, fmt.Errorf("symbol %s has two weights", last)
			}
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return BacktestRequest{}, fmt.Errorf("weight %s for %s is not a finite number", p, last)
			}
			if w < 0 {
				return BacktestRequest{}, fmt.Errorf("weight %s for %s is negative", p, last)
			}
			weights[last] = w
			continue
		}
		if f, ok := rebalanceKeyword(p); ok {
			if rebalanceSet {
				return BacktestRequest{}, errors.New("rebalance given twice")
			}
			req.Rebalance, rebalanceSet = f, true
			last = ""
			continue
		}
		if _, err := ParsePeriod(p); err == nil {
			if req.Period != "" {
				return BacktestRequest{}, errors.New("period given twice")
			}
			req.Period = strings.ToLower(p)
			last = ""
			continue
		}

		sym := strings.ToUpper(p)
		if !reSymbol.MatchString(sym) {
			return BacktestRequest{}, fmt.Errorf("invalid symbol %q", p)
		}
		if seen[sym] {
			return BacktestRequest{}, fmt.Errorf("duplicate symbol: %s", sym)
		}
		seen[sym] = true
		req.Symbols = append(req.Symbols, sym)
		last = sym
	}

	if len(req.Symbols) == 0 {
		return BacktestRequest{}, errors.New("no symbols given")
	}
	if len(weights) > 0 {
		if len(weights) != len(req.Symbols) {
			return BacktestRequest{}, errPartialWeights
		}
		req.Weights = weights
	}
	return req, nil
}

func rebalanceKeyword(s string) (portfolio.Frequency, bool) {
	switch strings.ToLower(s) {
	case "never", "none":
		return portfolio.Never, true
	case "weekly":
		return portfolio.Weekly, true
	case "monthly":
		return portfolio.Monthly, true
	case "quarterly":
		return portfolio.Quarterly, true
	}
	return "", false
}
