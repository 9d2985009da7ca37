package attendance

import "context"

// Migrate creates the tables on startup. Every statement is idempotent,
// so concurrent replicas racing through it is harmless.
func (r *Repository) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT UNIQUE NOT NULL,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS classes (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		room       TEXT NOT NULL,
		teacher_id TEXT NOT NULL DEFAULT '',
		days       TEXT NOT NULL DEFAULT '',
		time_range TEXT NOT NULL,
		archived   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		class_id       TEXT NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
		user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		attended_today BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (class_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS attendance_logs (
		id          TEXT PRIMARY KEY,
		class_id    TEXT NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
		user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		log_date    TEXT NOT NULL,
		time_in     TEXT NOT NULL DEFAULT '',
		time_out    TEXT NOT NULL DEFAULT '',
		scanner_in  TEXT NOT NULL DEFAULT '',
		scanner_out TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT '',
		excused     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_logs_class_date ON attendance_logs(class_id, log_date);
	CREATE INDEX IF NOT EXISTS idx_logs_class_user ON attendance_logs(class_id, user_id);

	CREATE TABLE IF NOT EXISTS notifications_sent (
		class_id          TEXT NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
		user_id           TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		scope_key         TEXT NOT NULL,
		warning_levels    TEXT NOT NULL DEFAULT '',
		failed_attendance BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (class_id, user_id, scope_key)
	);
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}
