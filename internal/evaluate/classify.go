package evaluate

import (
	"sort"
	"strings"
	"time"
)

// Status is the classification of a single attendance log.
type Status string

const (
	StatusAbsent       Status = "Absent"
	StatusPresent      Status = "Present"
	StatusLate         Status = "Late"
	StatusEarlyTimeout Status = "Early Timeout"
)

// ParseStatus normalizes stored status values, including the lowercase
// "absent" marker written by older synthesizer runs.
func ParseStatus(s string) Status {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "present":
		return StatusPresent
	case "late":
		return StatusLate
	case "early timeout":
		return StatusEarlyTimeout
	default:
		return StatusAbsent
	}
}

// Entry is one attendance log as the evaluator sees it.
type Entry struct {
	Date       string // YYYY-MM-DD
	TimeIn     string
	TimeOut    string
	ScannerIn  string
	ScannerOut string
	Excused    bool
	Status     Status
}

// Rules holds the classification thresholds. The defaults absorb scan-clock
// skew and walking time between the scanner and the classroom.
type Rules struct {
	LateGraceMin   int
	EarlyMarginMin int
}

// DefaultRules matches the thresholds the school runs with.
func DefaultRules() Rules {
	return Rules{LateGraceMin: 15, EarlyMarginMin: 10}
}

// Classify derives the status of one log against the scheduled time range.
// A log with no time_in never reached the scanner: Absent. A time_in with
// no time_out is an incomplete attendance and also counts Absent. Checking
// out more than EarlyMarginMin before the scheduled end is an early timeout,
// and takes precedence over lateness.
func (r Rules) Classify(e Entry, rng TimeRange) Status {
	if strings.TrimSpace(e.TimeIn) == "" {
		return StatusAbsent
	}
	if strings.TrimSpace(e.TimeOut) == "" {
		return StatusAbsent
	}
	out := ParseClock(e.TimeOut).Minutes()
	if rng.End.Minutes()-out > r.EarlyMarginMin {
		return StatusEarlyTimeout
	}
	in := ParseClock(e.TimeIn).Minutes()
	if in > rng.Start.Minutes()+r.LateGraceMin {
		return StatusLate
	}
	return StatusPresent
}

// SortKey orders entries for display: a complete in+out record outranks an
// in-only record, which outranks a no-show. Within a rank the governing
// timestamp is time_out when present, else time_in.
type SortKey struct {
	Rank int
	Time int64
}

// KeyOf computes the sort key for one entry.
func KeyOf(e Entry) SortKey {
	if strings.TrimSpace(e.TimeIn) == "" {
		return SortKey{Rank: 0, Time: 0}
	}
	rank := 1
	governing := e.TimeIn
	if strings.TrimSpace(e.TimeOut) != "" {
		rank = 2
		governing = e.TimeOut
	}
	day, err := time.Parse("2006-01-02", e.Date)
	if err != nil {
		day = time.Time{}
	}
	return SortKey{Rank: rank, Time: ParseClock(governing).At(day).Unix()}
}

// SortEntries sorts in place so the most complete, most recent record
// surfaces first: rank descending, then governing timestamp descending.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := KeyOf(entries[i]), KeyOf(entries[j])
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		return a.Time > b.Time
	})
}
