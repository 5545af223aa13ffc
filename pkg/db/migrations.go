package db

// migrationsSQL is the embedded schema. Statements are split on ";" by
// InitDB, so none of them may contain a literal semicolon.
//
// Task content is stored as a serialized JSON string in a TEXT column; the
// codec in pkg/task re-classifies it on read, so the table needs no content
// type discriminant beyond task_type (which is informational only).
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	task_type TEXT NOT NULL,
	content TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	due_date DATE NOT NULL,
	skipped INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_due ON tasks(user_id, due_date);

CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	task_id TEXT NOT NULL REFERENCES tasks(id),
	submission_type TEXT NOT NULL,
	content TEXT NOT NULL,
	ai_feedback TEXT,
	score INTEGER,
	passed INTEGER,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_task ON submissions(task_id);

CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	display_name TEXT,
	daily_goal_minutes INTEGER NOT NULL DEFAULT 30,
	streak_days INTEGER NOT NULL DEFAULT 0,
	skip_remaining INTEGER NOT NULL DEFAULT 3,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS kana_progress (
	user_id TEXT NOT NULL,
	kana TEXT NOT NULL,
	kana_type TEXT NOT NULL,
	correct_count INTEGER NOT NULL DEFAULT 0,
	incorrect_count INTEGER NOT NULL DEFAULT 0,
	mastery_score INTEGER NOT NULL DEFAULT 0,
	last_reviewed TIMESTAMP,
	PRIMARY KEY (user_id, kana, kana_type)
)
`
