package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"classtrack/internal/evaluate"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ---------- users ----------

// CreateUser inserts a login. The password arrives already hashed.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	if u.Username == "" {
		return User{}, errors.New("username required")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, name, email, password_hash, role)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, u.ID, u.Username, u.Name, u.Email, u.PasswordHash, u.Role)
	if err := row.Scan(&u.CreatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// GetUser returns a user by id, or nil when absent.
func (r *Repository) GetUser(ctx context.Context, id string) (*User, error) {
	return r.oneUser(ctx, `SELECT id, username, name, email, password_hash, role, created_at FROM users WHERE id = $1`, id)
}

// GetUserByUsername returns a user by login name, or nil when absent.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.oneUser(ctx, `SELECT id, username, name, email, password_hash, role, created_at FROM users WHERE username = $1`, username)
}

func (r *Repository) oneUser(ctx context.Context, query string, arg any) (*User, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all logins ordered by name.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, name, email, password_hash, role, created_at
		FROM users ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// UpdateUser updates profile fields; the password is changed separately.
func (r *Repository) UpdateUser(ctx context.Context, u User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = $2, email = $3, role = $4 WHERE id = $1
	`, u.ID, u.Name, u.Email, u.Role)
	return err
}

// SetPassword stores a new password hash.
func (r *Repository) SetPassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	return err
}

// DeleteUser removes a login along with its enrollments and logs.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// ---------- classes ----------

// CreateClass inserts a class schedule.
func (r *Repository) CreateClass(ctx context.Context, c Class) (Class, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, name, room, teacher_id, days, time_range, archived)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`, c.ID, c.Name, c.Room, c.TeacherID, joinList(c.Days), c.TimeRange, c.Archived)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return Class{}, err
	}
	return c, nil
}

// GetClass returns a class by id, or nil when absent.
func (r *Repository) GetClass(ctx context.Context, id string) (*Class, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, room, teacher_id, days, time_range, archived, created_at
		FROM classes WHERE id = $1
	`, id)
	c, err := scanClass(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListClasses returns classes, optionally including archived ones.
func (r *Repository) ListClasses(ctx context.Context, includeArchived bool) ([]Class, error) {
	query := `SELECT id, name, room, teacher_id, days, time_range, archived, created_at FROM classes`
	if !includeArchived {
		query += ` WHERE NOT archived`
	}
	query += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// ListActiveClasses returns the classes the batch job evaluates.
func (r *Repository) ListActiveClasses(ctx context.Context) ([]Class, error) {
	return r.ListClasses(ctx, false)
}

// UpdateClass rewrites schedule fields.
func (r *Repository) UpdateClass(ctx context.Context, c Class) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE classes SET name = $2, room = $3, teacher_id = $4, days = $5, time_range = $6
		WHERE id = $1
	`, c.ID, c.Name, c.Room, c.TeacherID, joinList(c.Days), c.TimeRange)
	return err
}

// SetArchived toggles a class in or out of the archive.
func (r *Repository) SetArchived(ctx context.Context, id string, archived bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE classes SET archived = $2 WHERE id = $1`, id, archived)
	return err
}

// DeleteClass removes a class; enrollments and logs cascade.
func (r *Repository) DeleteClass(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClass(s scanner) (Class, error) {
	var c Class
	var days string
	if err := s.Scan(&c.ID, &c.Name, &c.Room, &c.TeacherID, &days, &c.TimeRange, &c.Archived, &c.CreatedAt); err != nil {
		return Class{}, err
	}
	c.Days = splitList(days)
	return c, nil
}

// ---------- enrollment ----------

// Enroll adds a student (or the teacher) to a class.
func (r *Repository) Enroll(ctx context.Context, classID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO enrollments (class_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (class_id, user_id) DO NOTHING
	`, classID, userID)
	return err
}

// Unenroll removes a student from a class, keeping their logs.
func (r *Repository) Unenroll(ctx context.Context, classID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE class_id = $1 AND user_id = $2`, classID, userID)
	return err
}

// ListEnrolledUsers returns everyone enrolled in a class.
func (r *Repository) ListEnrolledUsers(ctx context.Context, classID string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.name, u.email, u.password_hash, u.role, u.created_at
		FROM enrollments e JOIN users u ON u.id = e.user_id
		WHERE e.class_id = $1
		ORDER BY u.name
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// ListClassesForUser returns the classes a user is enrolled in.
func (r *Repository) ListClassesForUser(ctx context.Context, userID string) ([]Class, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.room, c.teacher_id, c.days, c.time_range, c.archived, c.created_at
		FROM enrollments e JOIN classes c ON c.id = e.class_id
		WHERE e.user_id = $1
		ORDER BY c.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// MarkAttendedToday flips the per-enrollment daily presence flag on scan-in.
func (r *Repository) MarkAttendedToday(ctx context.Context, classID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE enrollments SET attended_today = TRUE WHERE class_id = $1 AND user_id = $2
	`, classID, userID)
	return err
}

// ResetAttendanceFlags clears every enrollment's daily presence flag; the
// worker runs this at midnight.
func (r *Repository) ResetAttendanceFlags(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE enrollments SET attended_today = FALSE`)
	return err
}

// ---------- attendance logs ----------

// InsertLog writes a new attendance log.
func (r *Repository) InsertLog(ctx context.Context, l Log) (Log, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_logs (id, class_id, user_id, log_date, time_in, time_out, scanner_in, scanner_out, status, excused)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at
	`, l.ID, l.ClassID, l.UserID, l.Date, l.TimeIn, l.TimeOut, l.ScannerIn, l.ScannerOut, l.Status, l.Excused)
	if err := row.Scan(&l.CreatedAt); err != nil {
		return Log{}, err
	}
	return l, nil
}

// InsertAbsence synthesizes the absence row the batch job writes when no
// scan occurred on a scheduled day.
func (r *Repository) InsertAbsence(ctx context.Context, classID, userID, date string) error {
	_, err := r.InsertLog(ctx, Log{
		ClassID: classID,
		UserID:  userID,
		Date:    date,
		Status:  string(evaluate.StatusAbsent),
	})
	return err
}

const logColumns = `id, class_id, user_id, log_date, time_in, time_out, scanner_in, scanner_out, status, excused, created_at`

// GetLogByID returns a single log.
func (r *Repository) GetLogByID(ctx context.Context, id string) (Log, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM attendance_logs WHERE id = $1`, id)
	return scanLog(row)
}

// ListUserLogs returns every log for one (class, student) enrollment.
func (r *Repository) ListUserLogs(ctx context.Context, classID, userID string) ([]Log, error) {
	return r.logs(ctx, `SELECT `+logColumns+` FROM attendance_logs WHERE class_id = $1 AND user_id = $2 ORDER BY log_date`, classID, userID)
}

// ListUserLogsOn returns one student's logs for a single date.
func (r *Repository) ListUserLogsOn(ctx context.Context, classID, userID, date string) ([]Log, error) {
	return r.logs(ctx, `SELECT `+logColumns+` FROM attendance_logs WHERE class_id = $1 AND user_id = $2 AND log_date = $3`, classID, userID, date)
}

// ListLogsOn returns all students' logs in a class for a single date.
func (r *Repository) ListLogsOn(ctx context.Context, classID, date string) ([]Log, error) {
	return r.logs(ctx, `SELECT `+logColumns+` FROM attendance_logs WHERE class_id = $1 AND log_date = $2`, classID, date)
}

func (r *Repository) logs(ctx context.Context, query string, args ...any) ([]Log, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

// ListClassRows returns all logs in a class joined with student names.
func (r *Repository) ListClassRows(ctx context.Context, classID string) ([]Row, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT l.id, l.class_id, l.user_id, l.log_date, l.time_in, l.time_out, l.scanner_in, l.scanner_out, l.status, l.excused, l.created_at, u.name
		FROM attendance_logs l JOIN users u ON u.id = l.user_id
		WHERE l.class_id = $1
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.ClassID, &row.UserID, &row.Date, &row.TimeIn, &row.TimeOut,
			&row.ScannerIn, &row.ScannerOut, &row.Status, &row.Excused, &row.CreatedAt, &row.UserName); err != nil {
			return nil, err
		}
		res = append(res, row)
	}
	return res, rows.Err()
}

// OpenLogFor returns today's log awaiting a time_out scan, or nil.
func (r *Repository) OpenLogFor(ctx context.Context, classID, userID, date string) (*Log, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+logColumns+` FROM attendance_logs
		WHERE class_id = $1 AND user_id = $2 AND log_date = $3 AND time_in <> '' AND time_out = ''
		ORDER BY created_at DESC
		LIMIT 1
	`, classID, userID, date)
	l, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// SetTimeOut completes a log with the check-out scan.
func (r *Repository) SetTimeOut(ctx context.Context, id, timeOut, scannerOut string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_logs SET time_out = $2, scanner_out = $3 WHERE id = $1
	`, id, timeOut, scannerOut)
	return err
}

// SetLogStatus persists the normalized classification for a log.
func (r *Repository) SetLogStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE attendance_logs SET status = $2 WHERE id = $1`, id, status)
	return err
}

// SetExcused flips the excuse flag; the log itself is never deleted for it.
func (r *Repository) SetExcused(ctx context.Context, id string, excused bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE attendance_logs SET excused = $2 WHERE id = $1`, id, excused)
	return err
}

// DeleteLogsInRange removes a class's logs between two dates inclusive;
// used for holidays and class suspensions.
func (r *Repository) DeleteLogsInRange(ctx context.Context, classID, from, to string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM attendance_logs WHERE class_id = $1 AND log_date >= $2 AND log_date <= $3
	`, classID, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanLog(s scanner) (Log, error) {
	var l Log
	err := s.Scan(&l.ID, &l.ClassID, &l.UserID, &l.Date, &l.TimeIn, &l.TimeOut,
		&l.ScannerIn, &l.ScannerOut, &l.Status, &l.Excused, &l.CreatedAt)
	return l, err
}

// ---------- notification records ----------

// NotificationState loads the do-not-resend memory for one (class, student)
// within the given scope key. Missing records read as the empty state.
func (r *Repository) NotificationState(ctx context.Context, classID, userID, scopeKey string) (evaluate.NotificationState, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT warning_levels, failed_attendance
		FROM notifications_sent
		WHERE class_id = $1 AND user_id = $2 AND scope_key = $3
	`, classID, userID, scopeKey)
	var levels string
	var failed bool
	if err := row.Scan(&levels, &failed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return evaluate.NotificationState{}, nil
		}
		return evaluate.NotificationState{}, err
	}
	return evaluate.NotificationState{
		WarningLevels:    splitLevels(levels),
		FailedAttendance: failed,
	}, nil
}

// RecordWarning appends a warning level to the record, creating it lazily.
func (r *Repository) RecordWarning(ctx context.Context, classID, userID, scopeKey string, level int) error {
	lvl := strconv.Itoa(level)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications_sent (class_id, user_id, scope_key, warning_levels, failed_attendance)
		VALUES ($1,$2,$3,$4,FALSE)
		ON CONFLICT (class_id, user_id, scope_key) DO UPDATE SET
			warning_levels = CASE
				WHEN notifications_sent.warning_levels = '' THEN EXCLUDED.warning_levels
				ELSE notifications_sent.warning_levels || ',' || EXCLUDED.warning_levels
			END
	`, classID, userID, scopeKey, lvl)
	return err
}

// RecordFailed marks the terminal failed-attendance send.
func (r *Repository) RecordFailed(ctx context.Context, classID, userID, scopeKey string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications_sent (class_id, user_id, scope_key, warning_levels, failed_attendance)
		VALUES ($1,$2,$3,'',TRUE)
		ON CONFLICT (class_id, user_id, scope_key) DO UPDATE SET failed_attendance = TRUE
	`, classID, userID, scopeKey)
	return err
}

// ---------- helpers ----------

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func splitLevels(s string) []int {
	var levels []int
	for _, part := range splitList(s) {
		if n, err := strconv.Atoi(part); err == nil {
			levels = append(levels, n)
		}
	}
	return levels
}
