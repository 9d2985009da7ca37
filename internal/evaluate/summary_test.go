package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTodaySummary(t *testing.T) {
	rules := DefaultRules()
	rng := mustRange(t, "09:00 - 10:00")

	logs := map[string][]Entry{
		// On time: in before grace, out within margin of the end.
		"ana": {{TimeIn: "09:05", TimeOut: "10:00"}},
		// Late: in after grace.
		"ben": {{TimeIn: "09:20", TimeOut: "09:55"}},
		// Absent: checked out too early, no valid log remains.
		"cho": {{TimeIn: "09:05", TimeOut: "09:30"}},
		// Absent: never checked out.
		"dee": {{TimeIn: "09:05"}},
		// No logs today: not counted at all.
		"eli": {},
	}

	assert.Equal(t, Summary{Late: 1, OnTime: 1, Absent: 2}, rules.TodaySummary(logs, rng))
}

func TestTodaySummaryEarliestValidLogWins(t *testing.T) {
	rules := DefaultRules()
	rng := mustRange(t, "09:00 - 10:00")

	// Two complete scans; the earlier check-in is on time, so the student
	// counts on time even though the re-scan was late.
	logs := map[string][]Entry{
		"ana": {
			{TimeIn: "09:40", TimeOut: "10:00"},
			{TimeIn: "09:02", TimeOut: "09:58"},
		},
	}
	assert.Equal(t, Summary{OnTime: 1}, rules.TodaySummary(logs, rng))
}

func TestTodaySummaryEmpty(t *testing.T) {
	rules := DefaultRules()
	rng := mustRange(t, "09:00 - 10:00")
	assert.Equal(t, Summary{}, rules.TodaySummary(nil, rng))
}
