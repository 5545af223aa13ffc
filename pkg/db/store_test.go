package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kantoku-app/kantoku/pkg/submission"
	"github.com/kantoku-app/kantoku/pkg/task"
)

// The sqlite store must satisfy the orchestrator's store contract.
var _ submission.Store = (*Store)(nil)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func kanaTask(userID uuid.UUID, due time.Time) *task.Task {
	now := time.Now().UTC().Truncate(time.Second)
	return &task.Task{
		ID:     uuid.New(),
		UserID: userID,
		Type:   task.KindKanaLearn,
		Content: task.KanaLearn{
			KanaList: []task.KanaItem{{Kana: "あ", Romaji: "a"}, {Kana: "い", Romaji: "i"}},
			KanaType: task.Hiragana,
		},
		Status:    task.StatusPending,
		DueDate:   due,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertAndGetTask(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	in := kanaTask(userID, due)
	if err := store.InsertTask(ctx, in); err != nil {
		t.Fatalf("insert: %v", err)
	}

	out, err := store.GetTask(ctx, in.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Type != task.KindKanaLearn {
		t.Fatalf("type = %q", out.Type)
	}
	kl, ok := out.Content.(task.KanaLearn)
	if !ok {
		t.Fatalf("content type %T", out.Content)
	}
	if len(kl.KanaList) != 2 || kl.KanaList[0].Kana != "あ" {
		t.Fatalf("content lost: %+v", kl)
	}
	if got := out.DueDate.Format("2006-01-02"); got != "2026-03-01" {
		t.Fatalf("due date = %s", got)
	}
}

func TestGetTaskStringSerializedContent(t *testing.T) {
	// Rows written by the backend store the content column as a serialized
	// JSON string (quoted). The codec must unwrap that transparently.
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	id := uuid.New()
	now := time.Now()

	_, err := db.Exec(`
		INSERT INTO tasks (id, user_id, task_type, content, status, due_date, skipped, created_at, updated_at)
		VALUES (?, ?, 'kana_learn', ?, 'pending', '2026-03-01', 0, ?, ?)`,
		id.String(), uuid.New().String(),
		`"{\"kana_list\":[{\"kana\":\"あ\",\"romaji\":\"a\"}],\"kana_type\":\"hiragana\"}"`,
		now, now)
	if err != nil {
		t.Fatalf("seed row: %v", err)
	}

	out, err := store.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Type != task.KindKanaLearn {
		t.Fatalf("type = %q", out.Type)
	}
}

func TestListDueTasks(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	overdue := kanaTask(userID, today.AddDate(0, 0, -1))
	dueToday := kanaTask(userID, today)
	future := kanaTask(userID, today.AddDate(0, 0, 5))
	done := kanaTask(userID, today)
	done.Status = task.StatusPassed
	otherUser := kanaTask(uuid.New(), today)

	for _, tk := range []*task.Task{dueToday, overdue, future, done, otherUser} {
		if err := store.InsertTask(ctx, tk); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	got, err := store.ListDueTasks(ctx, userID, today)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 due tasks, got %d", len(got))
	}
	if got[0].ID != overdue.ID || got[1].ID != dueToday.ID {
		t.Fatalf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	tk := kanaTask(uuid.New(), time.Now())
	if err := store.InsertTask(ctx, tk); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := store.UpdateTaskStatus(ctx, tk.ID, task.StatusSubmitted, time.Now()); err != nil {
		t.Fatalf("update: %v", err)
	}
	out, err := store.GetTask(ctx, tk.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Status != task.StatusSubmitted {
		t.Fatalf("status = %q", out.Status)
	}

	if err := store.UpdateTaskStatus(ctx, uuid.New(), task.StatusPassed, time.Now()); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestCounts(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC()

	old := kanaTask(userID, now)
	old.CreatedAt = now.AddDate(0, 0, -2)
	passed := kanaTask(userID, now)
	passed.Status = task.StatusPassed
	fresh := kanaTask(userID, now)

	for _, tk := range []*task.Task{old, passed, fresh} {
		if err := store.InsertTask(ctx, tk); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	created, err := store.CountTasksCreatedSince(ctx, userID, midnight)
	if err != nil {
		t.Fatalf("count created: %v", err)
	}
	if created != 2 {
		t.Fatalf("created today = %d", created)
	}

	passedCount, err := store.CountTasksByStatus(ctx, userID, task.StatusPassed)
	if err != nil {
		t.Fatalf("count passed: %v", err)
	}
	if passedCount != 1 {
		t.Fatalf("passed = %d", passedCount)
	}

	total, err := store.CountTasks(ctx, userID)
	if err != nil {
		t.Fatalf("count total: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d", total)
	}
}

func TestSubmissionVerdictRoundTrip(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	tk := kanaTask(uuid.New(), time.Now())
	if err := store.InsertTask(ctx, tk); err != nil {
		t.Fatalf("insert task: %v", err)
	}

	sub := &submission.Submission{
		ID:        uuid.New(),
		TaskID:    tk.ID,
		Type:      submission.TypeAudio,
		Content:   "user/audio/task_123.m4a",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := store.InsertSubmission(ctx, sub); err != nil {
		t.Fatalf("insert submission: %v", err)
	}

	before, err := store.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if before.Graded() || before.Score != nil || before.Passed != nil {
		t.Fatalf("verdict fields must start unset: %+v", before)
	}

	enc := "keep going"
	fb := submission.AIFeedback{
		Overall:       "solid pronunciation",
		Strengths:     []string{"clear vowels"},
		Improvements:  []string{"pitch accent on き"},
		Encouragement: &enc,
	}
	if err := store.SetReview(ctx, sub.ID, fb, 85, true); err != nil {
		t.Fatalf("set review: %v", err)
	}

	after, err := store.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("get after review: %v", err)
	}
	if !after.Graded() {
		t.Fatal("expected feedback after review")
	}
	if after.Score == nil || *after.Score != 85 {
		t.Fatalf("score = %+v", after.Score)
	}
	if after.Passed == nil || !*after.Passed {
		t.Fatalf("passed = %+v", after.Passed)
	}
	if after.Feedback.Overall != fb.Overall || len(after.Feedback.Strengths) != 1 {
		t.Fatalf("feedback lost: %+v", after.Feedback)
	}

	if err := store.SetReview(ctx, uuid.New(), fb, 1, false); err == nil {
		t.Fatal("expected error for unknown submission id")
	}
}

func TestProfileUpsert(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	p := &Profile{
		ID:               uuid.New(),
		DisplayName:      "Mika",
		DailyGoalMinutes: 30,
		StreakDays:       4,
		SkipRemaining:    3,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := store.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	p.StreakDays = 5
	if err := store.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("upsert 2: %v", err)
	}

	got, err := store.GetProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StreakDays != 5 || got.DailyGoalMinutes != 30 || got.DisplayName != "Mika" {
		t.Fatalf("profile = %+v", got)
	}
}

func TestRecordKanaResult(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	for _, correct := range []bool{true, true, false} {
		if err := store.RecordKanaResult(ctx, userID, "き", task.Hiragana, correct, now); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	p, err := store.GetKanaProgress(ctx, userID, "き", task.Hiragana)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.CorrectCount != 2 || p.IncorrectCount != 1 {
		t.Fatalf("counts = %d/%d", p.CorrectCount, p.IncorrectCount)
	}
	if p.MasteryScore != 15 {
		t.Fatalf("mastery = %d", p.MasteryScore)
	}
	if got := p.Accuracy(); got < 0.66 || got > 0.67 {
		t.Fatalf("accuracy = %f", got)
	}
}
