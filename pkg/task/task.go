package task

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the review lifecycle of a task: pending → submitted →
// {passed | failed}.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
)

func validStatus(s Status) bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusPassed, StatusFailed:
		return true
	}
	return false
}

// Task is one unit of daily study work assigned to a user.
type Task struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      Kind
	Content   Content
	Status    Status
	DueDate   time.Time
	Skipped   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MalformedTaskError reports a task envelope with a missing or mistyped
// field outside the content payload.
type MalformedTaskError struct {
	Field string
	Err   error
}

func (e *MalformedTaskError) Error() string {
	return fmt.Sprintf("malformed task: field %s: %v", e.Field, e.Err)
}

func (e *MalformedTaskError) Unwrap() error { return e.Err }

type taskWire struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	TaskType  string          `json:"task_type"`
	Content   json.RawMessage `json:"content"`
	Status    string          `json:"status"`
	DueDate   json.RawMessage `json:"due_date"`
	Skipped   bool            `json:"skipped"`
	CreatedAt json.RawMessage `json:"created_at"`
	UpdatedAt json.RawMessage `json:"updated_at"`
}

// Parse builds a Task from a wire or storage object. Content errors from
// DecodeContent are propagated unchanged; envelope problems surface as
// MalformedTaskError. The task type is derived from the decoded variant, not
// from the wire task_type field: on legacy payloads the two can disagree and
// the content is the one that drives rendering.
func Parse(raw []byte) (*Task, error) {
	var w taskWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, &MalformedTaskError{Field: "envelope", Err: err}
	}

	id, err := uuid.Parse(w.ID)
	if err != nil {
		return nil, &MalformedTaskError{Field: "id", Err: err}
	}
	userID, err := uuid.Parse(w.UserID)
	if err != nil {
		return nil, &MalformedTaskError{Field: "user_id", Err: err}
	}
	status := Status(w.Status)
	if !validStatus(status) {
		return nil, &MalformedTaskError{Field: "status", Err: fmt.Errorf("unknown status %q", w.Status)}
	}

	content, err := DecodeContent(w.Content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Task{
		ID:        id,
		UserID:    userID,
		Type:      content.Kind(),
		Content:   content,
		Status:    status,
		DueDate:   parseWhen(w.DueDate, now),
		Skipped:   w.Skipped,
		CreatedAt: parseWhen(w.CreatedAt, now),
		UpdatedAt: parseWhen(w.UpdatedAt, now),
	}, nil
}

// whenFormats are tried in order after RFC3339 decoding fails. The bare
// calendar date is how due_date arrives from the store; the fractional
// variants come from the workflow engine.
var whenFormats = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseWhen decodes a date field leniently. A field that cannot be parsed at
// all resolves to now rather than failing the whole task: due-date precision
// is not worth losing a task over a cosmetic format mismatch.
func parseWhen(raw json.RawMessage, now time.Time) time.Time {
	if len(raw) == 0 {
		return now
	}
	var ts time.Time
	if err := json.Unmarshal(raw, &ts); err == nil {
		return ts
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return now
	}
	for _, layout := range whenFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return now
}

// MarkSubmitted moves a pending task into review.
func (t *Task) MarkSubmitted(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("cannot submit task in status %q", t.Status)
	}
	t.Status = StatusSubmitted
	t.UpdatedAt = now
	return nil
}

// Resolve records the review verdict for a submitted task.
func (t *Task) Resolve(passed bool, now time.Time) error {
	if t.Status != StatusSubmitted {
		return fmt.Errorf("cannot resolve task in status %q", t.Status)
	}
	if passed {
		t.Status = StatusPassed
	} else {
		t.Status = StatusFailed
	}
	t.UpdatedAt = now
	return nil
}

// Skip marks a pending task as skipped without running it through review.
func (t *Task) Skip(now time.Time) error {
	if t.Status != StatusPending {
		return fmt.Errorf("cannot skip task in status %q", t.Status)
	}
	t.Skipped = true
	t.UpdatedAt = now
	return nil
}
