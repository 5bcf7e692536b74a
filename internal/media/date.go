package media

import (
	"fmt"
	"strings"
	"time"
)

// Providers hand back anything from "2001" to "May 3, 2001". Layouts are
// tried most-specific first; year-only and year-month values snap to the
// first day so stored dates round-trip to the same calendar date.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01",
	"January 2006",
	"2006",
}

// NormalizeDate coerces a provider date string to YYYY-MM-DD.
// An empty input is not an error; it stays empty.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", s)
}
