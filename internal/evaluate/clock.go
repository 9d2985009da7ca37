// Package evaluate implements the attendance evaluator: clock parsing,
// per-log status classification, effective-absence tallying, notification
// gating and schedule due-checks. Everything here is pure; callers fetch
// the data and supply "now".
package evaluate

import (
	"strconv"
	"strings"
	"time"
)

// Clock is a wall-clock time of day.
type Clock struct {
	Hours int
	Mins  int
}

// Minutes returns the clock as minutes from midnight.
func (c Clock) Minutes() int {
	return c.Hours*60 + c.Mins
}

// At anchors the clock to the given calendar day in day's location.
func (c Clock) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hours, c.Mins, 0, 0, day.Location())
}

// ParseClock parses scanner and schedule time strings: "H:mm", "hh:mm AM/PM",
// and the blank markers "", "-" and "/". Scanners occasionally emit garbage,
// so malformed tokens degrade to zero instead of erroring; an unreadable
// time is midnight, never a dropped log.
func ParseClock(s string) Clock {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" || trimmed == "-" || trimmed == "/" {
		return Clock{}
	}

	meridiem := ""
	if strings.HasSuffix(trimmed, "AM") || strings.HasSuffix(trimmed, "PM") {
		meridiem = trimmed[len(trimmed)-2:]
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-2])
	}

	parts := strings.Split(trimmed, ":")
	hh := atoiOrZero(parts[0])
	mm := 0
	if len(parts) > 1 {
		mm = atoiOrZero(parts[1])
	}

	switch meridiem {
	case "PM":
		if hh < 12 {
			hh += 12
		}
	case "AM":
		if hh == 12 {
			hh = 0
		}
	}
	return Clock{Hours: hh, Mins: mm}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// TimeRange is a class's scheduled start and end time.
type TimeRange struct {
	Start Clock
	End   Clock
}

// ParseRange parses a schedule string like "09:00 - 10:00". Ranges that do
// not split into exactly two parts are rejected; callers skip such classes
// rather than guessing.
func ParseRange(s string) (TimeRange, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return TimeRange{}, false
	}
	return TimeRange{
		Start: ParseClock(parts[0]),
		End:   ParseClock(parts[1]),
	}, true
}
