package evaluate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2025-03-12 is a Wednesday.
func wednesdayAt(hh, mm int) time.Time {
	return time.Date(2025, 3, 12, hh, mm, 0, 0, time.UTC)
}

func TestDueForEvaluation(t *testing.T) {
	sched := Schedule{
		Name:      "Physics 101",
		Room:      "room_1",
		Days:      []string{"Monday", "Wednesday", "Friday"},
		TimeRange: "09:00 - 10:00",
	}

	assert.False(t, DueForEvaluation(sched, wednesdayAt(9, 30)), "class still running")
	assert.True(t, DueForEvaluation(sched, wednesdayAt(10, 0)), "due exactly at the end")
	assert.True(t, DueForEvaluation(sched, wednesdayAt(23, 59)))

	archived := sched
	archived.Archived = true
	assert.False(t, DueForEvaluation(archived, wednesdayAt(12, 0)))

	tuesdayOnly := sched
	tuesdayOnly.Days = []string{"Tuesday"}
	assert.False(t, DueForEvaluation(tuesdayOnly, wednesdayAt(12, 0)))

	malformed := sched
	malformed.TimeRange = "09:00"
	assert.False(t, DueForEvaluation(malformed, wednesdayAt(12, 0)), "malformed range is skipped, not an error")

	noDays := sched
	noDays.Days = nil
	assert.False(t, DueForEvaluation(noDays, wednesdayAt(12, 0)))
}

func TestConflicts(t *testing.T) {
	base := Schedule{Room: "room_1", Days: []string{"Monday", "Wednesday"}, TimeRange: "09:00 - 10:00"}

	overlapping := Schedule{Room: "room_1", Days: []string{"Wednesday"}, TimeRange: "09:30 - 11:00"}
	assert.True(t, Conflicts(base, overlapping))

	backToBack := Schedule{Room: "room_1", Days: []string{"Monday"}, TimeRange: "10:00 - 11:00"}
	assert.False(t, Conflicts(base, backToBack), "touching intervals do not overlap")

	otherRoom := overlapping
	otherRoom.Room = "room_2"
	assert.False(t, Conflicts(base, otherRoom))

	otherDays := overlapping
	otherDays.Days = []string{"Friday"}
	assert.False(t, Conflicts(base, otherDays))

	archived := overlapping
	archived.Archived = true
	assert.False(t, Conflicts(base, archived), "archived classes never conflict")
	assert.False(t, Conflicts(archived, base))

	malformed := overlapping
	malformed.TimeRange = "all day"
	assert.False(t, Conflicts(base, malformed))
}
