package attendance

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"classtrack/internal/evaluate"
)

// ErrNoOpenLog is returned for a check-out scan with no matching check-in.
var ErrNoOpenLog = errors.New("no open check-in for today")

// ErrNotEnrolled is returned for scans by students outside the class.
var ErrNotEnrolled = errors.New("student not enrolled in class")

// ErrUnknownUser is returned when a scanned badge matches no login.
var ErrUnknownUser = errors.New("unknown user")

// Service is the live/display path: it answers the dashboard, the
// attendance table and the tally views, and ingests scanner events. All
// classification goes through the evaluate package, the same rules the
// batch notifier applies.
type Service struct {
	repo  *Repository
	rules evaluate.Rules
	loc   *time.Location
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, rules evaluate.Rules, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, rules: rules, loc: loc}
}

// Repo exposes the underlying repository for the admin handlers.
func (s *Service) Repo() *Repository {
	return s.repo
}

// Today returns the current school-local calendar date.
func (s *Service) Today() string {
	return time.Now().In(s.loc).Format("2006-01-02")
}

// RowFilter narrows the attendance table.
type RowFilter struct {
	Date   string // exact YYYY-MM-DD, empty for all
	Name   string // case-insensitive substring
	UserID string // set for student role: only their own rows
}

// Rows returns the classified, sorted attendance table for a class.
func (s *Service) Rows(ctx context.Context, classID string, f RowFilter) ([]Row, error) {
	class, err := s.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class == nil {
		return nil, errors.New("class not found")
	}
	// A malformed schedule degrades to midnight bounds; rows still render.
	rng, _ := evaluate.ParseRange(class.TimeRange)

	all, err := s.repo.ListClassRows(ctx, classID)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(all))
	for _, row := range all {
		if f.UserID != "" && row.UserID != f.UserID {
			continue
		}
		if f.Date != "" && row.Date != f.Date {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(row.UserName), strings.ToLower(f.Name)) {
			continue
		}
		row.LiveStatus = s.rules.Classify(row.Entry(), rng)
		if row.Excused {
			row.DisplayedAs = "Excused"
		} else {
			row.DisplayedAs = string(row.LiveStatus)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := evaluate.KeyOf(rows[i].Entry()), evaluate.KeyOf(rows[j].Entry())
		if a.Rank != b.Rank {
			return a.Rank > b.Rank
		}
		return a.Time > b.Time
	})
	return rows, nil
}

// Summary computes today's {late, onTime, absent} bar for a class. The
// second return is false when the class simply does not meet today.
func (s *Service) Summary(ctx context.Context, classID string) (evaluate.Summary, bool, error) {
	class, err := s.repo.GetClass(ctx, classID)
	if err != nil {
		return evaluate.Summary{}, false, err
	}
	if class == nil {
		return evaluate.Summary{}, false, errors.New("class not found")
	}

	now := time.Now().In(s.loc)
	if !class.Schedule().MeetsOn(now.Weekday()) {
		return evaluate.Summary{}, false, nil
	}
	rng, _ := evaluate.ParseRange(class.TimeRange)

	logs, err := s.repo.ListLogsOn(ctx, classID, now.Format("2006-01-02"))
	if err != nil {
		return evaluate.Summary{}, false, err
	}

	byStudent := make(map[string][]evaluate.Entry)
	for _, l := range logs {
		if l.Excused {
			continue
		}
		byStudent[l.UserID] = append(byStudent[l.UserID], l.Entry())
	}
	return s.rules.TodaySummary(byStudent, rng), true, nil
}

// Tallies computes the per-student absence tally for a class, worst first.
// Students with no logs yet do not appear; a missing record is a zero
// contribution, not an error.
func (s *Service) Tallies(ctx context.Context, classID string) ([]StudentTally, error) {
	class, err := s.repo.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if class == nil {
		return nil, errors.New("class not found")
	}
	rng, _ := evaluate.ParseRange(class.TimeRange)

	users, err := s.repo.ListEnrolledUsers(ctx, classID)
	if err != nil {
		return nil, err
	}

	var tallies []StudentTally
	for _, u := range users {
		logs, err := s.repo.ListUserLogs(ctx, classID, u.ID)
		if err != nil {
			return nil, err
		}
		if len(logs) == 0 {
			continue
		}
		entries := make([]evaluate.Entry, len(logs))
		for i, l := range logs {
			entries[i] = l.Entry()
		}
		t := s.rules.TallyLogs(entries, rng)
		tallies = append(tallies, StudentTally{
			UserID:   u.ID,
			UserName: u.Name,
			Tally:    t,
			Flag:     faFlag(t.Effective),
		})
	}
	sort.SliceStable(tallies, func(i, j int) bool {
		return tallies[i].Tally.Effective > tallies[j].Tally.Effective
	})
	return tallies, nil
}

func faFlag(effective int) string {
	switch {
	case effective >= 8:
		return "Failed Attendance"
	case effective >= 4:
		return "Half FA"
	default:
		return ""
	}
}

// ScanRequest is one QR scan reported by a room scanner.
type ScanRequest struct {
	Username  string `json:"username"`
	ClassID   string `json:"class_id"`
	ScannerID string `json:"scanner_id"`
	Direction string `json:"direction"` // "in" or "out"
}

// RecordScan ingests a scanner event: a check-in opens a new log for today,
// a check-out completes the most recent open one. The returned log is what
// the caller hands to the normalization queue.
func (s *Service) RecordScan(ctx context.Context, req ScanRequest) (Log, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return Log{}, err
	}
	if user == nil {
		return Log{}, ErrUnknownUser
	}

	enrolled, err := s.isEnrolled(ctx, req.ClassID, user.ID)
	if err != nil {
		return Log{}, err
	}
	if !enrolled {
		return Log{}, ErrNotEnrolled
	}

	now := time.Now().In(s.loc)
	date := now.Format("2006-01-02")
	clock := now.Format("15:04")

	switch req.Direction {
	case "out":
		open, err := s.repo.OpenLogFor(ctx, req.ClassID, user.ID, date)
		if err != nil {
			return Log{}, err
		}
		if open == nil {
			return Log{}, ErrNoOpenLog
		}
		if err := s.repo.SetTimeOut(ctx, open.ID, clock, req.ScannerID); err != nil {
			return Log{}, err
		}
		open.TimeOut = clock
		open.ScannerOut = req.ScannerID
		return *open, nil
	default: // "in"
		l, err := s.repo.InsertLog(ctx, Log{
			ClassID:   req.ClassID,
			UserID:    user.ID,
			Date:      date,
			TimeIn:    clock,
			ScannerIn: req.ScannerID,
		})
		if err != nil {
			return Log{}, err
		}
		if err := s.repo.MarkAttendedToday(ctx, req.ClassID, user.ID); err != nil {
			return Log{}, err
		}
		return l, nil
	}
}

func (s *Service) isEnrolled(ctx context.Context, classID, userID string) (bool, error) {
	classes, err := s.repo.ListClassesForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, c := range classes {
		if c.ID == classID {
			return true, nil
		}
	}
	return false, nil
}

// ToggleExcuse flips a log's excused flag and returns the new state.
// Tallies recompute on read, so the change takes effect immediately;
// notification records already written stay untouched.
func (s *Service) ToggleExcuse(ctx context.Context, logID string) (bool, error) {
	l, err := s.repo.GetLogByID(ctx, logID)
	if err != nil {
		return false, err
	}
	if err := s.repo.SetExcused(ctx, logID, !l.Excused); err != nil {
		return false, err
	}
	return !l.Excused, nil
}

// Normalize reclassifies one log against its class schedule and persists
// the status, so downstream consumers read one canonical tag instead of
// re-deriving it from raw optional fields.
func (s *Service) Normalize(ctx context.Context, logID string) (evaluate.Status, error) {
	l, err := s.repo.GetLogByID(ctx, logID)
	if err != nil {
		return "", err
	}
	class, err := s.repo.GetClass(ctx, l.ClassID)
	if err != nil {
		return "", err
	}
	if class == nil {
		return "", errors.New("class not found")
	}
	rng, _ := evaluate.ParseRange(class.TimeRange)
	status := s.rules.Classify(l.Entry(), rng)
	if err := s.repo.SetLogStatus(ctx, logID, string(status)); err != nil {
		return "", err
	}
	return status, nil
}
