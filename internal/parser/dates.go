package parser

import (
	"strings"
	"time"
)

// dateLayouts is the fixed set of layouts accepted by date coercion.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"1/2/2006",
	"01-02-06",
	"02.01.2006",
	"2006年01月02日",
	"2006年1月2日",
	"2006-01",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// parseDate tries every layout in order.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
