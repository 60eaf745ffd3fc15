package verify

import (
	"strings"
	"time"
)

var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006 3:04 PM",
	"January 2, 2006 3:04PM",
	"January 2, 2006",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseEventDate parses the date a model reported for an event. Trailing
// detail after " at ", " from ", " - " or "; " is ignored when the whole
// string does not parse.
func ParseEventDate(when string) (time.Time, bool) {
	when = strings.TrimSpace(when)
	if when == "" {
		return time.Time{}, false
	}
	candidates := []string{when}
	for _, sep := range []string{" at ", " from ", " - ", " – ", "; "} {
		if i := strings.Index(when, sep); i > 0 {
			candidates = append(candidates, strings.TrimSpace(when[:i]))
		}
	}
	for _, c := range candidates {
		for _, layout := range eventDateLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// beforeDay reports whether t falls on a calendar day before now's day.
func beforeDay(t, now time.Time) bool {
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty != ny {
		return ty < ny
	}
	if tm != nm {
		return tm < nm
	}
	return td < nd
}
