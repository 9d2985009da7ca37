package batch

import (
	"context"
	"fmt"
	"time"

	"classtrack/internal/attendance"
	"classtrack/internal/evaluate"
	"classtrack/internal/mailer"
)

// Scope controls how notification records are keyed.
type Scope string

const (
	// ScopeDaily keys records by evaluation date: the behavior the school
	// has been running with. Each day's record starts empty, so a count
	// that sits on the same level can warn again the next day.
	ScopeDaily Scope = "daily"
	// ScopeEnrollment keeps one record per (class, student) for the whole
	// enrollment, so each warning level fires once ever.
	ScopeEnrollment Scope = "enrollment"
)

// Notifier is the daily absence check: it retallies every enrollment and
// sends warning or failed-attendance emails through the gate.
type Notifier struct {
	store       Store
	mail        mailer.Sender
	rules       evaluate.Rules
	gate        evaluate.Gate
	scope       Scope
	registrarTo string
}

// NewNotifier creates the job. Warnings go to the student's own address;
// the failed-attendance mail goes to registrarTo.
func NewNotifier(store Store, mail mailer.Sender, rules evaluate.Rules, gate evaluate.Gate, scope Scope, registrarTo string) *Notifier {
	if scope != ScopeEnrollment {
		scope = ScopeDaily
	}
	return &Notifier{store: store, mail: mail, rules: rules, gate: gate, scope: scope, registrarTo: registrarTo}
}

// NotifyReport summarizes one notifier run.
type NotifyReport struct {
	Warnings int
	Failed   int
	Failures []Failure
}

// Run evaluates every active class scheduled today. Classes with malformed
// time ranges are skipped. The record is persisted before the email goes
// out: a crash between the two leaves a marked-but-unsent state rather
// than risking duplicate sends on the retry.
func (n *Notifier) Run(ctx context.Context, now time.Time) (NotifyReport, error) {
	var report NotifyReport

	classes, err := n.store.ListActiveClasses(ctx)
	if err != nil {
		return report, err
	}
	for _, class := range classes {
		if !class.Schedule().MeetsOn(now.Weekday()) {
			continue
		}
		rng, ok := evaluate.ParseRange(class.TimeRange)
		if !ok {
			continue
		}

		users, err := n.store.ListEnrolledUsers(ctx, class.ID)
		if err != nil {
			report.Failures = append(report.Failures, Failure{ClassID: class.ID, Err: err})
			continue
		}
		for _, u := range users {
			if err := n.evaluateStudent(ctx, class, rng, u, now, &report); err != nil {
				report.Failures = append(report.Failures, Failure{ClassID: class.ID, UserID: u.ID, Err: err})
				batchFailures.Inc()
			}
		}
	}
	batchRuns.WithLabelValues("notify").Inc()
	return report, nil
}

func (n *Notifier) evaluateStudent(ctx context.Context, class attendance.Class, rng evaluate.TimeRange, u attendance.User, now time.Time, report *NotifyReport) error {
	logs, err := n.store.ListUserLogs(ctx, class.ID, u.ID)
	if err != nil {
		return err
	}
	tally := n.rules.TallyLogs(entriesOf(logs), rng)

	key := n.scopeKey(now)
	state, err := n.store.NotificationState(ctx, class.ID, u.ID, key)
	if err != nil {
		return err
	}

	decision, level := n.gate.Decide(tally.Effective, state)
	switch decision {
	case evaluate.DecideWarning:
		if err := n.store.RecordWarning(ctx, class.ID, u.ID, key, level); err != nil {
			return err
		}
		if err := n.mail.Send(warningMail(u.Email, u.Name, class.Name, level, n.gate)); err != nil {
			return fmt.Errorf("warning recorded but not sent: %w", err)
		}
		report.Warnings++
		notificationsSent.WithLabelValues("warning").Inc()
	case evaluate.DecideFailed:
		if err := n.store.RecordFailed(ctx, class.ID, u.ID, key); err != nil {
			return err
		}
		if err := n.mail.Send(failedMail(n.registrarTo, u.Name, class.Name, level)); err != nil {
			return fmt.Errorf("failed-attendance recorded but not sent: %w", err)
		}
		report.Failed++
		notificationsSent.WithLabelValues("failed_attendance").Inc()
	}
	return nil
}

func (n *Notifier) scopeKey(now time.Time) string {
	if n.scope == ScopeEnrollment {
		return "all"
	}
	return now.Format("2006-01-02")
}

func warningMail(to, studentName, className string, effective int, gate evaluate.Gate) mailer.Message {
	body := fmt.Sprintf(`Dear %s,

This is a warning that your effective absence count for class %q is %d.
You will receive a further warning on each additional effective absence.
Once your effective absences reach %d, a failed attendance notification
will be sent to the registrar.

Regards,
Attendance System`, studentName, className, effective, gate.FailFloor)
	return mailer.Message{To: to, Subject: "Attendance Warning", Body: body}
}

func failedMail(to, studentName, className string, effective int) mailer.Message {
	body := fmt.Sprintf(`Dear Teacher,

Student %s in class %q has reached an effective absence count of %d and
has failed attendance. Please take the necessary actions.

Regards,
Attendance System`, studentName, className, effective)
	return mailer.Message{To: to, Subject: "Failed Attendance Notification", Body: body}
}
