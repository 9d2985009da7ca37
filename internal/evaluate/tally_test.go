package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func entryWithStatus(t *testing.T, rules Rules, rng TimeRange, want Status) Entry {
	t.Helper()
	var e Entry
	switch want {
	case StatusAbsent:
		e = Entry{Date: "2025-03-10"}
	case StatusPresent:
		e = Entry{Date: "2025-03-10", TimeIn: "09:05", TimeOut: "10:00"}
	case StatusLate:
		e = Entry{Date: "2025-03-10", TimeIn: "09:30", TimeOut: "10:00"}
	case StatusEarlyTimeout:
		e = Entry{Date: "2025-03-10", TimeIn: "09:05", TimeOut: "09:30"}
	}
	assert.Equal(t, want, rules.Classify(e, rng))
	return e
}

func TestTallyLogs(t *testing.T) {
	rules := DefaultRules()
	rng := mustRange(t, "09:00 - 10:00")

	var logs []Entry
	logs = append(logs, entryWithStatus(t, rules, rng, StatusAbsent))
	for i := 0; i < 4; i++ {
		logs = append(logs, entryWithStatus(t, rules, rng, StatusLate))
	}
	for i := 0; i < 2; i++ {
		logs = append(logs, entryWithStatus(t, rules, rng, StatusEarlyTimeout))
	}
	logs = append(logs, entryWithStatus(t, rules, rng, StatusPresent))

	got := rules.TallyLogs(logs, rng)
	assert.Equal(t, Tally{Absent: 1, Late: 4, Early: 2, Effective: 3}, got)
}

func TestTallyRoundsDown(t *testing.T) {
	rules := DefaultRules()
	rng := mustRange(t, "09:00 - 10:00")

	logs := []Entry{
		entryWithStatus(t, rules, rng, StatusLate),
		entryWithStatus(t, rules, rng, StatusLate),
		entryWithStatus(t, rules, rng, StatusEarlyTimeout),
	}
	assert.Equal(t, Tally{Late: 2, Early: 1, Effective: 1}, rules.TallyLogs(logs, rng))

	twoLates := logs[:2]
	assert.Equal(t, Tally{Late: 2, Effective: 0}, rules.TallyLogs(twoLates, rng))
}

func TestTallyExcludesExcused(t *testing.T) {
	rules := DefaultRules()
	rng := mustRange(t, "09:00 - 10:00")

	late := entryWithStatus(t, rules, rng, StatusLate)
	logs := []Entry{
		entryWithStatus(t, rules, rng, StatusAbsent),
		late, late, late,
	}
	assert.Equal(t, Tally{Absent: 1, Late: 3, Effective: 2}, rules.TallyLogs(logs, rng))

	// Excusing one late drops it from the count and the derived extra.
	logs[1].Excused = true
	assert.Equal(t, Tally{Absent: 1, Late: 2, Effective: 1}, rules.TallyLogs(logs, rng))
}

func TestTallyEmpty(t *testing.T) {
	rules := DefaultRules()
	rng := mustRange(t, "09:00 - 10:00")
	assert.Equal(t, Tally{}, rules.TallyLogs(nil, rng))
}
