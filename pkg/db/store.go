package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kantoku-app/kantoku/pkg/submission"
	"github.com/kantoku-app/kantoku/pkg/task"
)

// Store wraps a sqlite connection with the queries the app core needs. All
// methods are context-aware; Store itself holds no state beyond the handle,
// so it is safe for concurrent use to the extent the underlying *sql.DB is.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store over an initialized connection.
func NewStore(db *sql.DB) *Store { return &Store{DB: db} }

// InsertTask persists a task. Content is serialized to a JSON string column;
// the codec re-classifies it on read, so task_type is stored for queries but
// never trusted during decoding.
func (s *Store) InsertTask(ctx context.Context, t *task.Task) error {
	content, err := task.EncodeContent(t.Content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, task_type, content, status, due_date, skipped, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.UserID.String(), string(t.Type), string(content),
		string(t.Status), t.DueDate.Format("2006-01-02"), t.Skipped, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	return nil
}

// GetTask fetches one task by id.
func (s *Store) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, content, status, due_date, skipped, created_at, updated_at
		FROM tasks WHERE id = ?`, id.String())
	return scanTask(row)
}

// ListDueTasks returns the user's unfinished tasks due on or before the
// given day, oldest due date first.
func (s *Store) ListDueTasks(ctx context.Context, userID uuid.UUID, day time.Time) ([]*task.Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, user_id, content, status, due_date, skipped, created_at, updated_at
		FROM tasks
		WHERE user_id = ? AND due_date <= ? AND status != ?
		ORDER BY due_date ASC`,
		userID.String(), day.Format("2006-01-02"), string(task.StatusPassed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		idStr, userStr, content, status string
		due, created, updated           time.Time
		skipped                         bool
	)
	if err := row.Scan(&idStr, &userStr, &content, &status, &due, &skipped, &created, &updated); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("task id column: %w", err)
	}
	userID, err := uuid.Parse(userStr)
	if err != nil {
		return nil, fmt.Errorf("task user_id column: %w", err)
	}
	c, err := task.DecodeContent([]byte(content))
	if err != nil {
		return nil, err
	}
	return &task.Task{
		ID:        id,
		UserID:    userID,
		Type:      c.Kind(),
		Content:   c,
		Status:    task.Status(status),
		DueDate:   due,
		Skipped:   skipped,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// UpdateTaskStatus writes a status transition back to the row.
func (s *Store) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status task.Status, updatedAt time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), updatedAt, id.String())
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

// SetTaskSkipped records an explicit skip.
func (s *Store) SetTaskSkipped(ctx context.Context, id uuid.UUID, updatedAt time.Time) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE tasks SET skipped = 1, updated_at = ? WHERE id = ?`,
		updatedAt, id.String())
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no task with id %s", id)
	}
	return nil
}

// CountTasksCreatedSince counts the user's tasks created at or after the
// cutoff, regardless of status. The dashboard uses it with local midnight to
// decide whether today's generation already ran.
func (s *Store) CountTasksCreatedSince(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ? AND created_at >= ?`,
		userID.String(), cutoff).Scan(&n)
	return n, err
}

// CountTasksByStatus counts the user's tasks in one status.
func (s *Store) CountTasksByStatus(ctx context.Context, userID uuid.UUID, status task.Status) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ? AND status = ?`,
		userID.String(), string(status)).Scan(&n)
	return n, err
}

// CountTasks counts all of the user's tasks.
func (s *Store) CountTasks(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ?`,
		userID.String()).Scan(&n)
	return n, err
}

// InsertSubmission persists a fresh submission. Verdict columns stay NULL
// until the external grader writes them.
func (s *Store) InsertSubmission(ctx context.Context, sub *submission.Submission) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO submissions (id, task_id, submission_type, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sub.ID.String(), sub.TaskID.String(), string(sub.Type), sub.Content, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert submission %s: %w", sub.ID, err)
	}
	return nil
}

// GetSubmission re-fetches a submission by id. Feedback, score and verdict
// are either all present or all absent, mirroring how the grader writes them.
func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (*submission.Submission, error) {
	var (
		idStr, taskStr, subType, content string
		created                          time.Time
		feedback                         sql.NullString
		score                            sql.NullInt64
		passed                           sql.NullBool
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, task_id, submission_type, content, ai_feedback, score, passed, created_at
		FROM submissions WHERE id = ?`, id.String()).
		Scan(&idStr, &taskStr, &subType, &content, &feedback, &score, &passed, &created)
	if err != nil {
		return nil, err
	}

	subID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("submission id column: %w", err)
	}
	taskID, err := uuid.Parse(taskStr)
	if err != nil {
		return nil, fmt.Errorf("submission task_id column: %w", err)
	}

	sub := &submission.Submission{
		ID:        subID,
		TaskID:    taskID,
		Type:      submission.Type(subType),
		Content:   content,
		CreatedAt: created,
	}
	if feedback.Valid {
		var fb submission.AIFeedback
		if err := json.Unmarshal([]byte(feedback.String), &fb); err != nil {
			return nil, fmt.Errorf("submission %s feedback column: %w", id, err)
		}
		sub.Feedback = &fb
	}
	if score.Valid {
		v := int(score.Int64)
		sub.Score = &v
	}
	if passed.Valid {
		v := passed.Bool
		sub.Passed = &v
	}
	return sub, nil
}

// SetReview writes the grading outcome in one statement, so a concurrent
// reader never observes feedback without the score and verdict. This is the
// grader's side of the contract; the client core only calls it from tests
// and tooling.
func (s *Store) SetReview(ctx context.Context, id uuid.UUID, fb submission.AIFeedback, score int, passed bool) error {
	js, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("encode feedback: %w", err)
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE submissions SET ai_feedback = ?, score = ?, passed = ? WHERE id = ?`,
		string(js), score, passed, id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no submission with id %s", id)
	}
	return nil
}

// GetProfile fetches a user's profile row.
func (s *Store) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var (
		idStr            string
		displayName      sql.NullString
		goal, streak, sk int
		created, updated time.Time
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, display_name, daily_goal_minutes, streak_days, skip_remaining, created_at, updated_at
		FROM profiles WHERE id = ?`, id.String()).
		Scan(&idStr, &displayName, &goal, &streak, &sk, &created, &updated)
	if err != nil {
		return nil, err
	}
	pid, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("profile id column: %w", err)
	}
	return &Profile{
		ID:               pid,
		DisplayName:      displayName.String,
		DailyGoalMinutes: goal,
		StreakDays:       streak,
		SkipRemaining:    sk,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}, nil
}

// UpsertProfile creates or refreshes a profile row.
func (s *Store) UpsertProfile(ctx context.Context, p *Profile) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name, daily_goal_minutes, streak_days, skip_remaining, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			daily_goal_minutes = excluded.daily_goal_minutes,
			streak_days = excluded.streak_days,
			skip_remaining = excluded.skip_remaining,
			updated_at = excluded.updated_at`,
		p.ID.String(), p.DisplayName, p.DailyGoalMinutes, p.StreakDays, p.SkipRemaining,
		p.CreatedAt, p.UpdatedAt)
	return err
}

// RecordKanaResult upserts one drill outcome for a character. Mastery moves
// +10 on a correct answer and -5 on a miss, clamped to [0, 100].
func (s *Store) RecordKanaResult(ctx context.Context, userID uuid.UUID, kana string, kt task.KanaType, correct bool, when time.Time) error {
	correctInc, incorrectInc, delta := 1, 0, 10
	if !correct {
		correctInc, incorrectInc, delta = 0, 1, -5
	}
	initial := delta
	if initial < 0 {
		initial = 0
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO kana_progress (user_id, kana, kana_type, correct_count, incorrect_count, mastery_score, last_reviewed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, kana, kana_type) DO UPDATE SET
			correct_count = kana_progress.correct_count + excluded.correct_count,
			incorrect_count = kana_progress.incorrect_count + excluded.incorrect_count,
			mastery_score = max(0, min(100, kana_progress.mastery_score + ?)),
			last_reviewed = excluded.last_reviewed`,
		userID.String(), kana, string(kt), correctInc, incorrectInc, initial, when, delta)
	return err
}

// GetKanaProgress fetches the drill record for one character.
func (s *Store) GetKanaProgress(ctx context.Context, userID uuid.UUID, kana string, kt task.KanaType) (*KanaProgress, error) {
	var (
		p    KanaProgress
		last sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT correct_count, incorrect_count, mastery_score, last_reviewed
		FROM kana_progress WHERE user_id = ? AND kana = ? AND kana_type = ?`,
		userID.String(), kana, string(kt)).
		Scan(&p.CorrectCount, &p.IncorrectCount, &p.MasteryScore, &last)
	if err != nil {
		return nil, err
	}
	p.UserID = userID
	p.Kana = kana
	p.KanaType = kt
	if last.Valid {
		p.LastReviewed = last.Time
	}
	return &p, nil
}
