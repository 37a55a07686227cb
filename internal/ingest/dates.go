package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order against the raw date cell. The day-first
// form is tried before month-first, so an unambiguous day-first value like
// 25/12/2021 is never misread.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"January 2, 2006",
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// parseDate extracts (year, full ISO date) from a raw export cell. The full
// date is empty when only a year could be recovered; a zero year means the
// cell was unparseable.
func parseDate(raw string) (int, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ""
	}

	for _, layout := range dateLayouts {
		if dt, err := time.Parse(layout, raw); err == nil {
			return dt.Year(), dt.Format("2006-01-02")
		}
	}

	// Year-only cell.
	if dt, err := time.Parse("2006", raw); err == nil {
		return dt.Year(), ""
	}

	// Last resort: any plausible 4-digit year inside the cell.
	if m := yearPattern.FindString(raw); m != "" {
		year, err := strconv.Atoi(m)
		if err == nil {
			return year, ""
		}
	}

	return 0, ""
}
