package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/attendance"
	"classtrack/internal/evaluate"
)

// Wednesday after the 09:00-10:00 class has ended.
var synthNow = time.Date(2025, 3, 12, 10, 5, 0, 0, time.UTC)

func TestSynthesizerInsertsAbsence(t *testing.T) {
	store := newFakeStore()
	store.classes = []attendance.Class{testClass("c1")}
	store.enrollments["c1"] = []attendance.User{
		{ID: "u1", Name: "Ana Cruz"},
		{ID: "u2", Name: "Ben Reyes"},
	}
	// u1 scanned in; u2 never showed up.
	store.logs[logKey("c1", "u1")] = []attendance.Log{{
		ClassID: "c1", UserID: "u1", Date: "2025-03-12", TimeIn: "09:03",
	}}

	s := NewSynthesizer(store)
	report, err := s.Run(context.Background(), synthNow)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)

	logs := store.logs[logKey("c1", "u2")]
	require.Len(t, logs, 1)
	assert.Equal(t, "2025-03-12", logs[0].Date)
	assert.Equal(t, evaluate.StatusAbsent, evaluate.ParseStatus(logs[0].Status))
	assert.Empty(t, logs[0].TimeIn)
	assert.Empty(t, logs[0].TimeOut)
}

func TestSynthesizerIdempotent(t *testing.T) {
	store := newFakeStore()
	store.classes = []attendance.Class{testClass("c1")}
	store.enrollments["c1"] = []attendance.User{{ID: "u1", Name: "Ana Cruz"}}

	s := NewSynthesizer(store)
	_, err := s.Run(context.Background(), synthNow)
	require.NoError(t, err)
	report, err := s.Run(context.Background(), synthNow)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted, "existing absence row suppresses a second insert")
	assert.Len(t, store.logs[logKey("c1", "u1")], 1)
}

func TestSynthesizerSkipsClassesNotDue(t *testing.T) {
	store := newFakeStore()
	running := testClass("c1") // ends 10:00; evaluate at 09:30
	archived := testClass("c2")
	archived.Archived = true
	offDay := testClass("c3")
	offDay.Days = []string{"Friday"}
	store.classes = []attendance.Class{running, archived, offDay}
	for _, id := range []string{"c1", "c2", "c3"} {
		store.enrollments[id] = []attendance.User{{ID: "u1", Name: "Ana Cruz"}}
	}

	s := NewSynthesizer(store)
	report, err := s.Run(context.Background(), time.Date(2025, 3, 12, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Inserted)
}

func TestResetClearsFlags(t *testing.T) {
	store := newFakeStore()
	r := NewReset(store)
	require.NoError(t, r.Run(context.Background(), synthNow))
	assert.Equal(t, 1, store.resetCalls)
}
