package portfolio

import (
	"sort"
	"strings"
	"time"

	"quantDashboard/internal/logging"
)

// Frequency is a rebalancing policy.
type Frequency string

const (
	Never     Frequency = "Never"
	Weekly    Frequency = "Weekly"
	Monthly   Frequency = "Monthly"
	Quarterly Frequency = "Quarterly"
)

var schedLog = logging.New("rebalance")

// ParseFrequency matches a policy name case-insensitively. Unknown names
// degrade to Never and are logged.
func ParseFrequency(s string) Frequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never", "none", "":
		return Never
	case "weekly", "w":
		return Weekly
	case "monthly", "m":
		return Monthly
	case "quarterly", "q":
		return Quarterly
	}
	schedLog.Warn().Str("frequency", s).Msg("rebalance: unknown frequency, using Never")
	return Never
}

// RebalanceDates returns, in ascending order, the dates of the index that
// trigger a rebalance under freq. Only dates present in the index qualify.
func RebalanceDates(dates []time.Time, freq Frequency) []time.Time {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	mask := rebalanceMask(sorted, freq)
	var out []time.Time
	for i, d := range sorted {
		if mask[i] {
			out = append(out, d)
		}
	}
	return out
}

type periodKey struct {
	year   int
	period int
}

// rebalanceMask flags the rebalance dates of an ascending date index.
func rebalanceMask(dates []time.Time, freq Frequency) []bool {
	mask := make([]bool, len(dates))
	switch freq {
	case Weekly:
		for i, d := range dates {
			mask[i] = d.Weekday() == time.Monday
		}
	case Monthly, Quarterly:
		seen := map[periodKey]bool{}
		for i, d := range dates {
			k := periodKey{year: d.Year(), period: int(d.Month())}
			if freq == Quarterly {
				k.period = (int(d.Month())-1)/3 + 1
			}
			if !seen[k] {
				seen[k] = true
				mask[i] = true
			}
		}
	case Never:
	default:
		schedLog.Warn().Str("frequency", string(freq)).Msg("rebalance: unknown frequency, using Never")
	}
	return mask
}
