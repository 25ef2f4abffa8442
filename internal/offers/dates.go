package offers

import (
	"strings"
	"time"
)

// midnightMarker is UTC midnight for the listing's UTC-3 locale. The
// upstream convention is "midnight means no time was given".
const midnightMarker = "T03:00:00Z"

// FormatDate renders an ISO date as dd/mm/yyyy. Unparsable input is
// returned unchanged.
func FormatDate(raw string) string {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return t.Format("02/01/2006")
}

// FormatDateTime renders an ISO date-time as "dd/mm/yyyy hh:mm". With
// omitMidnight set, values carrying the midnight marker collapse to their
// raw date prefix (the upstream uses midnight to mean "no specific time").
// Unparsable input is returned unchanged.
func FormatDateTime(raw string, omitMidnight bool) string {
	trimmed := strings.TrimSpace(raw)
	if omitMidnight && strings.HasSuffix(trimmed, midnightMarker) {
		return strings.TrimSuffix(trimmed, midnightMarker)
	}
	t, err := time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(trimmed, "Z"))
	if err != nil {
		return raw
	}
	return t.Format("02/01/2006 15:04")
}
