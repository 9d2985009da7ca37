package batch

import (
	"context"
	"errors"
	"fmt"

	"classtrack/internal/attendance"
	"classtrack/internal/evaluate"
	"classtrack/internal/mailer"
)

// fakeStore is an in-memory Store for batch tests.
type fakeStore struct {
	classes     []attendance.Class
	enrollments map[string][]attendance.User        // classID -> users
	logs        map[string][]attendance.Log         // classID/userID -> logs
	notifs      map[string]evaluate.NotificationState // classID/userID/scopeKey
	resetCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		enrollments: make(map[string][]attendance.User),
		logs:        make(map[string][]attendance.Log),
		notifs:      make(map[string]evaluate.NotificationState),
	}
}

func logKey(classID, userID string) string { return classID + "/" + userID }

func notifKey(classID, userID, scopeKey string) string {
	return fmt.Sprintf("%s/%s/%s", classID, userID, scopeKey)
}

func (f *fakeStore) ListActiveClasses(context.Context) ([]attendance.Class, error) {
	var active []attendance.Class
	for _, c := range f.classes {
		if !c.Archived {
			active = append(active, c)
		}
	}
	return active, nil
}

func (f *fakeStore) ListEnrolledUsers(_ context.Context, classID string) ([]attendance.User, error) {
	return f.enrollments[classID], nil
}

func (f *fakeStore) ListUserLogs(_ context.Context, classID, userID string) ([]attendance.Log, error) {
	return f.logs[logKey(classID, userID)], nil
}

func (f *fakeStore) ListUserLogsOn(_ context.Context, classID, userID, date string) ([]attendance.Log, error) {
	var out []attendance.Log
	for _, l := range f.logs[logKey(classID, userID)] {
		if l.Date == date {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertAbsence(_ context.Context, classID, userID, date string) error {
	key := logKey(classID, userID)
	f.logs[key] = append(f.logs[key], attendance.Log{
		ClassID: classID, UserID: userID, Date: date,
		Status: string(evaluate.StatusAbsent),
	})
	return nil
}

func (f *fakeStore) NotificationState(_ context.Context, classID, userID, scopeKey string) (evaluate.NotificationState, error) {
	return f.notifs[notifKey(classID, userID, scopeKey)], nil
}

func (f *fakeStore) RecordWarning(_ context.Context, classID, userID, scopeKey string, level int) error {
	key := notifKey(classID, userID, scopeKey)
	st := f.notifs[key]
	st.WarningLevels = append(st.WarningLevels, level)
	f.notifs[key] = st
	return nil
}

func (f *fakeStore) RecordFailed(_ context.Context, classID, userID, scopeKey string) error {
	key := notifKey(classID, userID, scopeKey)
	st := f.notifs[key]
	st.FailedAttendance = true
	f.notifs[key] = st
	return nil
}

func (f *fakeStore) ResetAttendanceFlags(context.Context) error {
	f.resetCalls++
	return nil
}

// fakeMailer records sends and can be told to fail.
type fakeMailer struct {
	sent []mailer.Message
	fail bool
}

func (m *fakeMailer) Send(msg mailer.Message) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, msg)
	return nil
}
