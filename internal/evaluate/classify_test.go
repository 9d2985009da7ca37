package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRange(t *testing.T, s string) TimeRange {
	t.Helper()
	rng, ok := ParseRange(s)
	require.True(t, ok)
	return rng
}

func TestClassify(t *testing.T) {
	rules := DefaultRules()
	rng := mustRange(t, "09:00 - 10:00")

	cases := []struct {
		name    string
		in, out string
		want    Status
	}{
		{"within grace and margin", "09:10", "10:05", StatusPresent},
		{"exactly at grace boundary", "09:15", "10:00", StatusPresent},
		{"past grace", "09:20", "10:05", StatusLate},
		{"left early", "09:05", "09:45", StatusEarlyTimeout},
		{"exactly at margin boundary", "09:05", "09:50", StatusPresent},
		{"no time in", "", "10:00", StatusAbsent},
		{"checked in, never out", "09:10", "", StatusAbsent},
		{"blank marker times", "-", "/", StatusAbsent},
		{"early beats late", "09:40", "09:30", StatusEarlyTimeout},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := rules.Classify(Entry{TimeIn: c.in, TimeOut: c.out}, rng)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestClassifyConfigurableThresholds(t *testing.T) {
	rng := mustRange(t, "09:00 - 10:00")
	strict := Rules{LateGraceMin: 0, EarlyMarginMin: 0}
	assert.Equal(t, StatusLate, strict.Classify(Entry{TimeIn: "09:01", TimeOut: "10:00"}, rng))
	assert.Equal(t, StatusEarlyTimeout, strict.Classify(Entry{TimeIn: "09:00", TimeOut: "09:59"}, rng))
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusAbsent, ParseStatus("absent"))
	assert.Equal(t, StatusAbsent, ParseStatus("Absent"))
	assert.Equal(t, StatusLate, ParseStatus("late"))
	assert.Equal(t, StatusEarlyTimeout, ParseStatus("Early Timeout"))
	assert.Equal(t, StatusAbsent, ParseStatus(""))
}

func TestSortEntries(t *testing.T) {
	noShow := Entry{Date: "2025-03-12"}
	inOnly := Entry{Date: "2025-03-12", TimeIn: "09:10"}
	complete := Entry{Date: "2025-03-12", TimeIn: "09:05", TimeOut: "10:00"}
	completeOlder := Entry{Date: "2025-03-11", TimeIn: "09:05", TimeOut: "10:00"}

	entries := []Entry{noShow, inOnly, completeOlder, complete}
	SortEntries(entries)

	assert.Equal(t, complete, entries[0], "most complete and most recent first")
	assert.Equal(t, completeOlder, entries[1])
	assert.Equal(t, inOnly, entries[2])
	assert.Equal(t, noShow, entries[3])
}

func TestKeyOfGoverningTimestamp(t *testing.T) {
	withOut := KeyOf(Entry{Date: "2025-03-12", TimeIn: "08:00", TimeOut: "10:00"})
	inOnly := KeyOf(Entry{Date: "2025-03-12", TimeIn: "08:00"})
	assert.Equal(t, 2, withOut.Rank)
	assert.Equal(t, 1, inOnly.Rank)
	assert.Greater(t, withOut.Time, inOnly.Time, "time_out governs when present")

	assert.Equal(t, SortKey{Rank: 0, Time: 0}, KeyOf(Entry{Date: "2025-03-12"}))
}
