// Package batch holds the scheduled jobs: the absence synthesizer, the
// daily absence notifier and the nightly attendance-flag reset. Jobs are
// pure loops over repository snapshots; per-(class, student) failures are
// collected and the run keeps going.
package batch

import (
	"context"

	"classtrack/internal/attendance"
	"classtrack/internal/evaluate"
)

// Store is the slice of the repository the batch jobs need.
type Store interface {
	ListActiveClasses(ctx context.Context) ([]attendance.Class, error)
	ListEnrolledUsers(ctx context.Context, classID string) ([]attendance.User, error)
	ListUserLogs(ctx context.Context, classID, userID string) ([]attendance.Log, error)
	ListUserLogsOn(ctx context.Context, classID, userID, date string) ([]attendance.Log, error)
	InsertAbsence(ctx context.Context, classID, userID, date string) error
	NotificationState(ctx context.Context, classID, userID, scopeKey string) (evaluate.NotificationState, error)
	RecordWarning(ctx context.Context, classID, userID, scopeKey string, level int) error
	RecordFailed(ctx context.Context, classID, userID, scopeKey string) error
	ResetAttendanceFlags(ctx context.Context) error
}

// Failure records one isolated per-student error inside a run.
type Failure struct {
	ClassID string
	UserID  string
	Err     error
}

func entriesOf(logs []attendance.Log) []evaluate.Entry {
	entries := make([]evaluate.Entry, len(logs))
	for i, l := range logs {
		entries[i] = l.Entry()
	}
	return entries
}
