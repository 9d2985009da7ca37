package evaluate

// Conflicts reports whether two class schedules collide: same room, at
// least one shared weekday, and overlapping time intervals. An archived
// schedule never conflicts with anything; it holds no room.
func Conflicts(a, b Schedule) bool {
	if a.Archived || b.Archived {
		return false
	}
	if a.Room != b.Room {
		return false
	}
	shared := false
	for _, d := range a.Days {
		for _, e := range b.Days {
			if d == e {
				shared = true
			}
		}
	}
	if !shared {
		return false
	}
	ra, ok := ParseRange(a.TimeRange)
	if !ok {
		return false
	}
	rb, ok := ParseRange(b.TimeRange)
	if !ok {
		return false
	}
	// Intervals [a, b) and [c, d) overlap when a < d and c < b.
	return ra.Start.Minutes() < rb.End.Minutes() && rb.Start.Minutes() < ra.End.Minutes()
}
