package valuation

import (
	"strings"
	"time"
)

const (
	// HistoryDateLayout is the day key sent to the price history service.
	HistoryDateLayout = "02-01-2006"

	displayLayout = "2 January 2006 15:04:05"

	// NoTime stands in for the display time of a transaction without one.
	NoTime = "N/A"
)

// Blockchair reports "2006-01-02 15:04:05" in UTC; RFC3339 and a bare
// date (midnight UTC) are accepted too.
var timeLayouts = []string{
	time.DateTime,
	time.RFC3339,
	time.RFC3339Nano,
	time.DateOnly,
}

// parseTxTime returns the transaction time in UTC, or false when the
// timestamp is empty or unparseable.
func parseTxTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// historyDate truncates t to its UTC calendar day in DD-MM-YYYY form.
func historyDate(t time.Time) string {
	return t.UTC().Format(HistoryDateLayout)
}

func displayTime(t time.Time) string {
	return t.UTC().Format(displayLayout)
}
