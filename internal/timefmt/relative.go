// Package timefmt renders timestamps the way the board shows them ("5 minutes ago",
// "yesterday").
package timefmt

import (
	"fmt"
	"math"
	"time"
)

type unit struct {
	name    string
	seconds float64
	// phrases for -1, 0 and +1 of this unit
	last, this, next string
}

var units = []unit{
	{"year", 365 * 24 * 3600, "last year", "this year", "next year"},
	{"month", 30 * 24 * 3600, "last month", "this month", "next month"},
	{"day", 24 * 3600, "yesterday", "today", "tomorrow"},
	{"hour", 3600, "", "this hour", ""},
	{"minute", 60, "", "this minute", ""},
	{"second", 1, "", "now", ""},
}

// round matches JavaScript's Math.round: halves go towards positive infinity.
func round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// FormatRelative describes t relative to now using the largest unit that fits.
func FormatRelative(t, now time.Time) string {
	diff := round(float64(t.Sub(now).Milliseconds()) / 1000)
	abs := math.Abs(diff)

	u := units[len(units)-1]
	for _, candidate := range units {
		if abs >= candidate.seconds {
			u = candidate
			break
		}
	}

	value := int(round(diff / u.seconds))
	switch {
	case value == 0:
		return u.this
	case value == -1 && u.last != "":
		return u.last
	case value == 1 && u.next != "":
		return u.next
	}

	label := u.name
	if value != 1 && value != -1 {
		label += "s"
	}
	if value < 0 {
		return fmt.Sprintf("%d %s ago", -value, label)
	}
	return fmt.Sprintf("in %d %s", value, label)
}
