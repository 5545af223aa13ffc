package submission

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is where the orchestrator currently is in the submission pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StatePersisting State = "persisting"
	StateTriggering State = "triggering"
	StatePolling    State = "polling"
	StateResolved   State = "resolved"
)

// Stage names the pipeline step a StageError happened in.
type Stage string

const (
	StageUpload  Stage = "upload"
	StagePersist Stage = "persist"
	StageTrigger Stage = "trigger"
)

// ErrNoArtifact is returned by Submit when there is nothing to grade.
var ErrNoArtifact = fmt.Errorf("no artifact attached to submission")

// StageError wraps a failure from one of the pipeline steps. The pipeline
// aborts at the failing step and the orchestrator re-arms to idle so the
// caller can retry from scratch; server-side leftovers from earlier steps
// (an uploaded blob with no record) are accepted as orphans, not rolled back.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s failed: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// BlobStore is the object-storage side of a submission: artifact bytes go in
// under a caller-chosen path. Upload must be an idempotent overwrite.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
}

// Store is the relational side: the submissions table. GetSubmission
// re-fetches by id during polling; the store is the single source of truth
// for the verdict, so nothing is cached across calls.
type Store interface {
	InsertSubmission(ctx context.Context, sub *Submission) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error)
}

// ReviewTrigger kicks off the external grading workflow. Fire-and-forget:
// the response carries no verdict, only acceptance.
type ReviewTrigger interface {
	TriggerReview(ctx context.Context, submissionID uuid.UUID) error
}

// Result is delivered on Results when polling observes a completed grade.
type Result struct {
	Submission *Submission
	Feedback   *AIFeedback
	Passed     bool
}

// Request describes one submission attempt.
type Request struct {
	UserID uuid.UUID
	TaskID uuid.UUID
	Type   Type
	// Data is the artifact: recorded audio or image bytes, or the literal
	// text for text submissions.
	Data        []byte
	Ext         string
	ContentType string
}

// Orchestrator drives one submission at a time through
// upload → persist → trigger → poll. Collaborators are injected so tests can
// substitute fakes. All steps of one submission run on the caller's
// goroutine except polling, which runs on a single background timer; at most
// one poll timer exists per orchestrator, and starting a new submission
// cancels a still-running one first.
type Orchestrator struct {
	blobs   BlobStore
	store   Store
	trigger ReviewTrigger

	// Interval between poll fetches. Defaults to 3 seconds.
	Interval time.Duration
	// MaxAttempts bounds polling; 0 polls until cancelled. The source
	// behavior had no bound, so this stays opt-in.
	MaxAttempts int
	// Logger receives transient poll errors. nil disables logging.
	Logger *log.Logger

	now   func() time.Time
	newID func() uuid.UUID

	mu      sync.Mutex
	state   State
	poll    *pollSession
	results chan Result
}

type pollSession struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an orchestrator around the three external collaborators.
func New(blobs BlobStore, store Store, trigger ReviewTrigger) *Orchestrator {
	return &Orchestrator{
		blobs:    blobs,
		store:    store,
		trigger:  trigger,
		Interval: 3 * time.Second,
		now:      time.Now,
		newID:    uuid.New,
		state:    StateIdle,
		results:  make(chan Result, 1),
	}
}

// Results delivers grading outcomes discovered by polling.
func (o *Orchestrator) Results() <-chan Result { return o.results }

// State reports the current pipeline state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(st State) {
	o.mu.Lock()
	o.state = st
	o.mu.Unlock()
}

// Submit runs the pipeline for one artifact: upload the bytes, create the
// submission record with no verdict fields, trigger the external review,
// then start polling for the grade. On any step failure the state machine
// returns to idle and the error names the failed stage. Text submissions
// skip the upload and store the text itself as the content locator.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Submission, error) {
	if len(req.Data) == 0 {
		return nil, ErrNoArtifact
	}

	// A still-active poll from a previous submission would race this one's
	// state writes; stop it before touching anything.
	o.Cancel()

	content := string(req.Data)
	if req.Type != TypeText {
		o.setState(StateUploading)
		path := o.artifactPath(req)
		if err := o.blobs.Upload(ctx, path, req.Data, req.ContentType); err != nil {
			o.setState(StateIdle)
			return nil, &StageError{Stage: StageUpload, Err: err}
		}
		content = path
	}

	o.setState(StatePersisting)
	sub := &Submission{
		ID:        o.newID(),
		TaskID:    req.TaskID,
		Type:      req.Type,
		Content:   content,
		CreatedAt: o.now(),
	}
	if err := o.store.InsertSubmission(ctx, sub); err != nil {
		o.setState(StateIdle)
		return nil, &StageError{Stage: StagePersist, Err: err}
	}

	o.setState(StateTriggering)
	if err := o.trigger.TriggerReview(ctx, sub.ID); err != nil {
		o.setState(StateIdle)
		return nil, &StageError{Stage: StageTrigger, Err: err}
	}

	o.startPolling(sub.ID)
	return sub, nil
}

// Cancel stops an active poll deterministically: when it returns, no further
// fetch will fire. Safe to call at any time, from any state, repeatedly.
// Cancellation is not a verdict; no Result is emitted.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	s := o.poll
	o.poll = nil
	if s != nil {
		o.state = StateIdle
	}
	o.mu.Unlock()

	if s != nil {
		s.cancel()
		<-s.done
	}
}

// artifactPath scopes uploads per user and submission kind:
// {userId}/{kind}/{taskId}_{timestamp}.{ext}.
func (o *Orchestrator) artifactPath(req Request) string {
	return fmt.Sprintf("%s/%s/%s_%d.%s",
		req.UserID, req.Type, req.TaskID, o.now().Unix(), req.Ext)
}

func (o *Orchestrator) startPolling(id uuid.UUID) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &pollSession{cancel: cancel, done: make(chan struct{})}

	o.mu.Lock()
	o.state = StatePolling
	o.poll = s
	o.mu.Unlock()

	go o.pollLoop(ctx, s, id)
}

// pollLoop re-fetches the submission on a fixed interval until the grader
// has written feedback. A failed fetch is logged and retried on the next
// tick; only cancellation or a verdict ends the loop.
func (o *Orchestrator) pollLoop(ctx context.Context, s *pollSession, id uuid.UUID) {
	defer close(s.done)

	ticker := time.NewTicker(o.Interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		attempts++
		sub, err := o.store.GetSubmission(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.logf("poll submission %s: %v", id, err)
			continue
		}
		if sub.Graded() {
			o.resolve(s, sub)
			return
		}
		if o.MaxAttempts > 0 && attempts >= o.MaxAttempts {
			o.logf("poll submission %s: no verdict after %d attempts, giving up", id, attempts)
			o.finish(s, StateIdle)
			return
		}
	}
}

func (o *Orchestrator) resolve(s *pollSession, sub *Submission) {
	o.mu.Lock()
	if o.poll != s {
		// Cancelled while the fetch was in flight; the cancel won.
		o.mu.Unlock()
		return
	}
	o.poll = nil
	o.state = StateResolved
	o.mu.Unlock()

	passed := sub.Passed != nil && *sub.Passed
	r := Result{Submission: sub, Feedback: sub.Feedback, Passed: passed}
	select {
	case o.results <- r:
	default:
		o.logf("dropping unconsumed result for submission %s", sub.ID)
	}
}

func (o *Orchestrator) finish(s *pollSession, st State) {
	o.mu.Lock()
	if o.poll == s {
		o.poll = nil
		o.state = st
	}
	o.mu.Unlock()
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}
