package evaluate

import "strings"

// Summary is the live per-class count for today's dashboard bar.
type Summary struct {
	Late   int `json:"late"`
	OnTime int `json:"onTime"`
	Absent int `json:"absent"`
}

// TodaySummary folds each student's logs for today into the dashboard
// counts. The input maps student to that student's non-excused logs for the
// day; students with no logs at all contribute nothing. A log is a valid
// completed attendance when its time_out lands within EarlyMarginMin of the
// scheduled end. The student's earliest valid check-in decides late versus
// on time; a student with logs but no valid one counts absent.
func (r Rules) TodaySummary(logsByStudent map[string][]Entry, rng TimeRange) Summary {
	var sum Summary
	for _, logs := range logsByStudent {
		if len(logs) == 0 {
			continue
		}
		var earliest *Entry
		for i := range logs {
			e := &logs[i]
			if strings.TrimSpace(e.TimeOut) == "" {
				continue
			}
			if ParseClock(e.TimeOut).Minutes() < rng.End.Minutes()-r.EarlyMarginMin {
				continue
			}
			if earliest == nil || ParseClock(e.TimeIn).Minutes() < ParseClock(earliest.TimeIn).Minutes() {
				earliest = e
			}
		}
		if earliest == nil {
			sum.Absent++
			continue
		}
		if ParseClock(earliest.TimeIn).Minutes() > rng.Start.Minutes()+r.LateGraceMin {
			sum.Late++
		} else {
			sum.OnTime++
		}
	}
	return sum
}
