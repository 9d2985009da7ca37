package evaluate

// Decision is the outcome of gating one recomputed effective-absence count
// against what has already been sent.
type Decision int

const (
	DecideNone Decision = iota
	DecideWarning
	DecideFailed
)

// NotificationState is the persisted do-not-resend memory for one
// (class, student) pair within the configured scope. It only ever grows;
// excusing logs later can drop the effective count but never retracts a
// notification already sent.
type NotificationState struct {
	WarningLevels    []int
	FailedAttendance bool
}

// Warned reports whether a warning was already sent at the given level.
func (s NotificationState) Warned(level int) bool {
	for _, l := range s.WarningLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Gate holds the notification thresholds: warnings start at WarnFloor
// effective absences, the failed-attendance mail fires at FailFloor.
type Gate struct {
	WarnFloor int
	FailFloor int
}

// DefaultGate warns from the 4th effective absence and fails at the 8th.
func DefaultGate() Gate {
	return Gate{WarnFloor: 4, FailFloor: 8}
}

// Decide returns what, if anything, to send for the recomputed effective
// count. The failed-attendance mail is sent at most once; each distinct
// warning level is sent at most once. Below WarnFloor nothing ever fires.
// The returned level is the effective count a warning is recorded at.
func (g Gate) Decide(effective int, st NotificationState) (Decision, int) {
	if effective < g.WarnFloor {
		return DecideNone, 0
	}
	if effective >= g.FailFloor {
		if st.FailedAttendance {
			return DecideNone, 0
		}
		return DecideFailed, effective
	}
	if st.Warned(effective) {
		return DecideNone, 0
	}
	return DecideWarning, effective
}
