package task

import (
	"errors"
	"testing"
	"time"
)

const wireTask = `{
	"id": "0e8dd0a4-5a1b-4c2d-8e3f-4a5b6c7d8e9f",
	"user_id": "f2b3c4d5-6e7f-4a8b-9c0d-1e2f3a4b5c6d",
	"task_type": "kana_learn",
	"content": {"kana_list":[{"kana":"あ","romaji":"a"}],"kana_type":"hiragana"},
	"status": "pending",
	"due_date": "2026-03-01",
	"skipped": false,
	"created_at": "2026-02-28T09:15:04.123456Z",
	"updated_at": "2026-02-28T09:15:04.123456Z"
}`

func TestParseTask(t *testing.T) {
	tk, err := Parse([]byte(wireTask))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tk.Type != KindKanaLearn {
		t.Fatalf("type = %q", tk.Type)
	}
	if tk.Status != StatusPending {
		t.Fatalf("status = %q", tk.Status)
	}
	if got := tk.DueDate.Format("2006-01-02"); got != "2026-03-01" {
		t.Fatalf("due date = %s", got)
	}
	if tk.CreatedAt.Nanosecond() != 123456000 {
		t.Fatalf("fractional seconds lost: %v", tk.CreatedAt)
	}
}

func TestParseTaskDerivesKindFromContent(t *testing.T) {
	// task_type says vocabulary but the payload is a kana list: the variant
	// wins, because legacy rows carry stale type fields.
	raw := `{
		"id": "0e8dd0a4-5a1b-4c2d-8e3f-4a5b6c7d8e9f",
		"user_id": "f2b3c4d5-6e7f-4a8b-9c0d-1e2f3a4b5c6d",
		"task_type": "vocabulary",
		"content": {"kana_list":[{"kana":"あ","romaji":"a"}],"kana_type":"hiragana"},
		"status": "pending",
		"due_date": "2026-03-01",
		"created_at": "2026-02-28T09:15:04Z",
		"updated_at": "2026-02-28T09:15:04Z"
	}`
	tk, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tk.Type != KindKanaLearn {
		t.Fatalf("expected kind derived from content, got %q", tk.Type)
	}
}

func TestParseTaskBadEnvelope(t *testing.T) {
	raw := `{"id":"not-a-uuid","user_id":"f2b3c4d5-6e7f-4a8b-9c0d-1e2f3a4b5c6d","content":{},"status":"pending"}`
	_, err := Parse([]byte(raw))
	var malformed *MalformedTaskError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedTaskError, got %v", err)
	}
	if malformed.Field != "id" {
		t.Fatalf("field = %q", malformed.Field)
	}
}

func TestParseTaskPropagatesContentErrors(t *testing.T) {
	raw := `{
		"id": "0e8dd0a4-5a1b-4c2d-8e3f-4a5b6c7d8e9f",
		"user_id": "f2b3c4d5-6e7f-4a8b-9c0d-1e2f3a4b5c6d",
		"content": {"mystery": true},
		"status": "pending"
	}`
	_, err := Parse([]byte(raw))
	var shapeErr *UnrecognizedShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected UnrecognizedShapeError to propagate, got %v", err)
	}
}

func TestParseTaskLenientDates(t *testing.T) {
	raw := `{
		"id": "0e8dd0a4-5a1b-4c2d-8e3f-4a5b6c7d8e9f",
		"user_id": "f2b3c4d5-6e7f-4a8b-9c0d-1e2f3a4b5c6d",
		"content": {"kana_list":[{"kana":"あ","romaji":"a"}],"kana_type":"hiragana"},
		"status": "pending",
		"due_date": "whenever",
		"created_at": "2026-02-28T09:15:04"
	}`
	before := time.Now()
	tk, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// Unparseable due date falls back to now instead of failing the task.
	if tk.DueDate.Before(before.Add(-time.Second)) {
		t.Fatalf("expected due date to default to now, got %v", tk.DueDate)
	}
	// Zone-less timestamp is still parsed, not defaulted.
	if tk.CreatedAt.Year() != 2026 || tk.CreatedAt.Hour() != 9 {
		t.Fatalf("created_at = %v", tk.CreatedAt)
	}
}

func TestStatusTransitions(t *testing.T) {
	tk, err := Parse([]byte(wireTask))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	now := time.Now()

	if err := tk.Resolve(true, now); err == nil {
		t.Fatal("resolving a pending task must fail")
	}
	if err := tk.MarkSubmitted(now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := tk.MarkSubmitted(now); err == nil {
		t.Fatal("double submit must fail")
	}
	if err := tk.Skip(now); err == nil {
		t.Fatal("skipping a submitted task must fail")
	}
	if err := tk.Resolve(false, now); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tk.Status != StatusFailed {
		t.Fatalf("status = %q", tk.Status)
	}
}

func TestSkip(t *testing.T) {
	tk, err := Parse([]byte(wireTask))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := tk.Skip(time.Now()); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if !tk.Skipped || tk.Status != StatusPending {
		t.Fatalf("skip changed status: %+v", tk)
	}
}
