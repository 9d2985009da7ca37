package evaluate

import "time"

// Schedule is the evaluator's view of a class: when it meets and whether it
// still counts.
type Schedule struct {
	Name      string
	Room      string
	TeacherID string
	Days      []string // full weekday names, e.g. "Monday"
	TimeRange string   // "HH:mm - HH:mm"
	Archived  bool
}

// MeetsOn reports whether the class is scheduled on the given weekday.
func (s Schedule) MeetsOn(day time.Weekday) bool {
	name := day.String()
	for _, d := range s.Days {
		if d == name {
			return true
		}
	}
	return false
}

// DueForEvaluation reports whether the batch job may evaluate the class at
// "now": the class is active, meets today, and its scheduled end has passed.
// A malformed time range makes the class silently not due; erroring here
// would stall the whole run over one bad admin entry.
func DueForEvaluation(s Schedule, now time.Time) bool {
	if s.Archived {
		return false
	}
	if !s.MeetsOn(now.Weekday()) {
		return false
	}
	rng, ok := ParseRange(s.TimeRange)
	if !ok {
		return false
	}
	return !now.Before(rng.End.At(now))
}
