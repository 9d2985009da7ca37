package attendance

import (
	"time"

	"classtrack/internal/evaluate"
)

// User is a login: student, teacher or admin.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Class is a scheduled class owned by the admin workflow.
type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Room      string    `json:"room"`
	TeacherID string    `json:"teacher_id"`
	Days      []string  `json:"days"`
	TimeRange string    `json:"time"` // "HH:mm - HH:mm"
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"`
}

// Schedule converts the stored class to the evaluator's view.
func (c Class) Schedule() evaluate.Schedule {
	return evaluate.Schedule{
		Name:      c.Name,
		Room:      c.Room,
		TeacherID: c.TeacherID,
		Days:      c.Days,
		TimeRange: c.TimeRange,
		Archived:  c.Archived,
	}
}

// Log is one raw attendance record: a scanner event pair, or an absence row
// synthesized by the batch job. Immutable once written except for the
// excused flag and the normalized status.
type Log struct {
	ID         string    `json:"id"`
	ClassID    string    `json:"class_id"`
	UserID     string    `json:"user_id"`
	Date       string    `json:"date"` // YYYY-MM-DD
	TimeIn     string    `json:"time_in"`
	TimeOut    string    `json:"time_out"`
	ScannerIn  string    `json:"scanner_in"`
	ScannerOut string    `json:"scanner_out"`
	Status     string    `json:"status"`
	Excused    bool      `json:"excused"`
	CreatedAt  time.Time `json:"created_at"`
}

// Entry converts the stored log to the evaluator's view.
func (l Log) Entry() evaluate.Entry {
	return evaluate.Entry{
		Date:       l.Date,
		TimeIn:     l.TimeIn,
		TimeOut:    l.TimeOut,
		ScannerIn:  l.ScannerIn,
		ScannerOut: l.ScannerOut,
		Excused:    l.Excused,
		Status:     evaluate.ParseStatus(l.Status),
	}
}

// Row is a classified log joined with the student's name, ready for the
// attendance table and CSV export.
type Row struct {
	Log
	UserName    string          `json:"user_name"`
	LiveStatus  evaluate.Status `json:"live_status"`
	DisplayedAs string          `json:"displayed_as"` // "Excused" overrides the status
}

// StudentTally is one row of the per-class absence tally.
type StudentTally struct {
	UserID   string         `json:"user_id"`
	UserName string         `json:"user_name"`
	Tally    evaluate.Tally `json:"tally"`
	Flag     string         `json:"flag,omitempty"` // "Half FA" or "Failed Attendance"
}
