package evaluate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateBelowWarnFloor(t *testing.T) {
	g := DefaultGate()
	for effective := 0; effective < 4; effective++ {
		d, _ := g.Decide(effective, NotificationState{})
		assert.Equal(t, DecideNone, d, "effective=%d", effective)
	}
}

func TestGateWarningOncePerLevel(t *testing.T) {
	g := DefaultGate()

	d, level := g.Decide(4, NotificationState{})
	assert.Equal(t, DecideWarning, d)
	assert.Equal(t, 4, level)

	// Re-evaluating the same count against the recorded state is a no-op.
	d, _ = g.Decide(4, NotificationState{WarningLevels: []int{4}})
	assert.Equal(t, DecideNone, d)

	// The next distinct level fires again.
	d, level = g.Decide(5, NotificationState{WarningLevels: []int{4}})
	assert.Equal(t, DecideWarning, d)
	assert.Equal(t, 5, level)
}

func TestGateFailedAttendanceOnce(t *testing.T) {
	g := DefaultGate()

	d, level := g.Decide(8, NotificationState{WarningLevels: []int{4, 5, 6, 7}})
	assert.Equal(t, DecideFailed, d)
	assert.Equal(t, 8, level)

	d, _ = g.Decide(9, NotificationState{FailedAttendance: true})
	assert.Equal(t, DecideNone, d, "failed state is terminal regardless of further increases")

	d, _ = g.Decide(12, NotificationState{})
	assert.Equal(t, DecideFailed, d, "first evaluation can land past the floor")
}

func TestGateNoRetraction(t *testing.T) {
	// A count that dropped back below the floor after excusing logs simply
	// stops producing decisions; prior state stays as-is.
	g := DefaultGate()
	st := NotificationState{WarningLevels: []int{4, 5}}
	d, _ := g.Decide(3, st)
	assert.Equal(t, DecideNone, d)
	assert.Equal(t, []int{4, 5}, st.WarningLevels)
}
