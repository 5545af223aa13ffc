// Package dashboard implements the daily study workflow: make sure today's
// tasks exist, enrich them with locally derived readings, and keep the
// profile's streak and skip allowance honest.
package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kantoku-app/kantoku/pkg/db"
	"github.com/kantoku-app/kantoku/pkg/reading"
	"github.com/kantoku-app/kantoku/pkg/task"
)

// defaultDailyGoal is used when a user has no profile row yet.
const defaultDailyGoal = 30

// ErrNoSkipsLeft is returned by SkipTask when the allowance is used up.
var ErrNoSkipsLeft = errors.New("no skips remaining")

// Generator produces a day's worth of tasks for a user.
type Generator interface {
	GenerateTasks(ctx context.Context, userID uuid.UUID, dailyGoalMinutes int) ([]*task.Task, error)
}

// Service coordinates the store, the generation webhook and the reading
// analyzer. Analyzer may be nil; vocabulary enrichment is then skipped.
type Service struct {
	store    *db.Store
	gen      Generator
	analyzer *reading.Analyzer

	// Logger receives non-fatal notices. nil disables logging.
	Logger *log.Logger

	now func() time.Time
}

// New creates a dashboard service.
func New(store *db.Store, gen Generator, analyzer *reading.Analyzer) *Service {
	return &Service{
		store:    store,
		gen:      gen,
		analyzer: analyzer,
		now:      time.Now,
	}
}

// Stats is the dashboard's progress summary for one user.
type Stats struct {
	DueTasks         int
	PassedTasks      int
	TotalTasks       int
	DailyGoalMinutes int
	StreakDays       int
	SkipRemaining    int
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// HasGeneratedToday reports whether the generation webhook already ran for
// the user today. Generation is keyed off created_at, not due_date: overdue
// carry-over tasks are due today without meaning today's batch exists.
func (s *Service) HasGeneratedToday(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.store.CountTasksCreatedSince(ctx, userID, startOfDay(s.now()))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SyncToday makes sure today's tasks exist and returns everything currently
// due, oldest first. Generation runs at most once per day; a sync after that
// is a plain read.
func (s *Service) SyncToday(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	generated, err := s.HasGeneratedToday(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !generated {
		goal := defaultDailyGoal
		profile, err := s.store.GetProfile(ctx, userID)
		switch {
		case err == nil:
			goal = profile.DailyGoalMinutes
		case errors.Is(err, sql.ErrNoRows):
			s.logf("no profile for %s, using default goal", userID)
		default:
			return nil, err
		}

		tasks, err := s.gen.GenerateTasks(ctx, userID, goal)
		if err != nil {
			return nil, fmt.Errorf("generate today's tasks: %w", err)
		}
		for _, t := range tasks {
			s.enrich(t)
			if err := s.store.InsertTask(ctx, t); err != nil {
				return nil, err
			}
		}
	}

	return s.store.ListDueTasks(ctx, userID, s.now())
}

// enrich fills in readings the generation workflow left blank.
func (s *Service) enrich(t *task.Task) {
	switch c := t.Content.(type) {
	case task.KanaLearn:
		c.KanaList = reading.AnnotateKana(c.KanaList)
		t.Content = c
	case task.KanaReview:
		c.ReviewKana = reading.AnnotateKana(c.ReviewKana)
		t.Content = c
	case task.Vocabulary:
		if s.analyzer == nil {
			return
		}
		c.Words = s.analyzer.AnnotateWords(c.Words)
		t.Content = c
	}
}

// Stats summarizes the user's progress and profile settings.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	due, err := s.store.ListDueTasks(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	passed, err := s.store.CountTasksByStatus(ctx, userID, task.StatusPassed)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountTasks(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		DueTasks:         len(due),
		PassedTasks:      passed,
		TotalTasks:       total,
		DailyGoalMinutes: defaultDailyGoal,
	}
	profile, err := s.store.GetProfile(ctx, userID)
	switch {
	case err == nil:
		st.DailyGoalMinutes = profile.DailyGoalMinutes
		st.StreakDays = profile.StreakDays
		st.SkipRemaining = profile.SkipRemaining
	case errors.Is(err, sql.ErrNoRows):
		// New user, defaults stand.
	default:
		return nil, err
	}
	return st, nil
}

// SkipTask spends one of the user's skips on a pending task. The allowance
// lives on the profile; with no profile row there is nothing to spend.
func (s *Service) SkipTask(ctx context.Context, userID, taskID uuid.UUID) error {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNoSkipsLeft
		}
		return err
	}
	if profile.SkipRemaining <= 0 {
		return ErrNoSkipsLeft
	}

	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	now := s.now()
	if err := t.Skip(now); err != nil {
		return err
	}
	if err := s.store.SetTaskSkipped(ctx, taskID, now); err != nil {
		return err
	}

	profile.SkipRemaining--
	profile.UpdatedAt = now
	return s.store.UpsertProfile(ctx, profile)
}

// ResolveTask records a grading verdict on the task and, for kana drills,
// folds the outcome into per-character progress.
func (s *Service) ResolveTask(ctx context.Context, taskID uuid.UUID, passed bool) error {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	now := s.now()
	if err := t.Resolve(passed, now); err != nil {
		return err
	}
	if err := s.store.UpdateTaskStatus(ctx, taskID, t.Status, now); err != nil {
		return err
	}

	var items []task.KanaItem
	var kt task.KanaType
	switch c := t.Content.(type) {
	case task.KanaLearn:
		items, kt = c.KanaList, c.KanaType
	case task.KanaReview:
		items, kt = c.ReviewKana, c.KanaType
	default:
		return nil
	}
	for _, item := range items {
		if err := s.store.RecordKanaResult(ctx, t.UserID, item.Kana, kt, passed, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}
