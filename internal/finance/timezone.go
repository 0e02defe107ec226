package finance

import "time"

// easternTime returns America/New_York, falling back to fixed EST if tzdata is missing.
func easternTime() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// dayOf maps a bar timestamp to its UTC calendar day. US equities stamp daily
// bars at the open (13:30/14:30 UTC) and crypto at midnight UTC, so both land
// on the same trading date.
func dayOf(unix int64) time.Time {
	t := time.Unix(unix, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dateLabels formats chart x labels. Daily dates keep their calendar day;
// intraday timestamps are shown in Eastern Time.
func dateLabels(dates []time.Time) []string {
	daily := true
	for _, d := range dates {
		if !d.Equal(d.Truncate(24 * time.Hour)) {
			daily = false
			break
		}
	}
	out := make([]string, len(dates))
	if !daily {
		et := easternTime()
		for i, d := range dates {
			out[i] = d.In(et).Format("Jan 02 15:04")
		}
		return out
	}
	layout := "Jan 02"
	if len(dates) > 60 {
		layout = "Jan '06"
	}
	for i, d := range dates {
		out[i] = d.UTC().Format(layout)
	}
	return out
}
