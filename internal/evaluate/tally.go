package evaluate

// Tally is the derived absence count for one (student, class) enrollment.
// It is recomputed from the current non-excused logs on every request, so
// toggling an excuse flag is reflected immediately.
type Tally struct {
	Absent    int `json:"absent"`
	Late      int `json:"late"`
	Early     int `json:"early"`
	Effective int `json:"effective"`
}

// TallyLogs folds a student's logs for one class into a tally. Excused
// entries contribute nothing. Every three combined late-or-early incidents
// convert to one additional absence equivalent, rounding down.
func (r Rules) TallyLogs(entries []Entry, rng TimeRange) Tally {
	var t Tally
	for _, e := range entries {
		if e.Excused {
			continue
		}
		switch r.Classify(e, rng) {
		case StatusAbsent:
			t.Absent++
		case StatusLate:
			t.Late++
		case StatusEarlyTimeout:
			t.Early++
		}
	}
	t.Effective = t.Absent + (t.Late+t.Early)/3
	return t
}
