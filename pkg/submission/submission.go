package submission

import (
	"time"

	"github.com/google/uuid"
)

// Type says what kind of artifact a submission carries.
type Type string

const (
	TypeText  Type = "text"
	TypeAudio Type = "audio"
	TypeImage Type = "image"
)

// AIFeedback is the grader's commentary. It is written by the external
// review workflow together with the score and the verdict; the client only
// ever reads it.
type AIFeedback struct {
	Overall       string   `json:"overall"`
	Strengths     []string `json:"strengths,omitempty"`
	Improvements  []string `json:"improvements,omitempty"`
	Encouragement *string  `json:"encouragement,omitempty"`
}

// Submission is one graded attempt at a task. Content is a storage path for
// audio/image submissions or the literal text for text submissions.
//
// Feedback, Score and Passed are set atomically by the grader: either all
// three are present or none is. Once a verdict is present the record is
// immutable from the client's side.
type Submission struct {
	ID        uuid.UUID   `json:"id"`
	TaskID    uuid.UUID   `json:"task_id"`
	Type      Type        `json:"submission_type"`
	Content   string      `json:"content"`
	Feedback  *AIFeedback `json:"ai_feedback,omitempty"`
	Score     *int        `json:"score,omitempty"`
	Passed    *bool       `json:"passed,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Graded reports whether the external review has completed.
func (s *Submission) Graded() bool {
	return s != nil && s.Feedback != nil
}
