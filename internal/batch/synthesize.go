package batch

import (
	"context"
	"strings"
	"time"

	"classtrack/internal/evaluate"
)

// Synthesizer writes absence rows for students who never scanned on a
// scheduled day. It runs every few minutes so absences appear shortly
// after each class ends rather than at end of day.
type Synthesizer struct {
	store Store
}

// NewSynthesizer creates the job.
func NewSynthesizer(store Store) *Synthesizer {
	return &Synthesizer{store: store}
}

// SynthReport summarizes one synthesizer run.
type SynthReport struct {
	Inserted int
	Failures []Failure
}

// Run checks every active class that has ended today and inserts an absence
// row for each enrolled student with no scan and no absence yet. Re-running
// is safe: an existing absence row suppresses a second insert.
func (s *Synthesizer) Run(ctx context.Context, now time.Time) (SynthReport, error) {
	var report SynthReport
	date := now.Format("2006-01-02")

	classes, err := s.store.ListActiveClasses(ctx)
	if err != nil {
		return report, err
	}
	for _, class := range classes {
		if !evaluate.DueForEvaluation(class.Schedule(), now) {
			continue
		}
		users, err := s.store.ListEnrolledUsers(ctx, class.ID)
		if err != nil {
			report.Failures = append(report.Failures, Failure{ClassID: class.ID, Err: err})
			continue
		}
		for _, u := range users {
			inserted, err := s.synthesizeFor(ctx, class.ID, u.ID, date)
			if err != nil {
				report.Failures = append(report.Failures, Failure{ClassID: class.ID, UserID: u.ID, Err: err})
				continue
			}
			if inserted {
				report.Inserted++
				absencesSynthesized.Inc()
			}
		}
	}
	batchRuns.WithLabelValues("synthesize").Inc()
	return report, nil
}

func (s *Synthesizer) synthesizeFor(ctx context.Context, classID, userID, date string) (bool, error) {
	logs, err := s.store.ListUserLogsOn(ctx, classID, userID, date)
	if err != nil {
		return false, err
	}
	alreadyAbsent := false
	for _, l := range logs {
		if strings.TrimSpace(l.TimeIn) != "" || strings.TrimSpace(l.TimeOut) != "" {
			// Any scan today means they attended in some form.
			return false, nil
		}
		if evaluate.ParseStatus(l.Status) == evaluate.StatusAbsent {
			alreadyAbsent = true
		}
	}
	if alreadyAbsent {
		return false, nil
	}
	if err := s.store.InsertAbsence(ctx, classID, userID, date); err != nil {
		return false, err
	}
	return true, nil
}
