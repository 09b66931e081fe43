// Package tutor exposes the student-facing operations: onboarding, answer
// submission, the daily queue, graph views, progress and audits.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/mathlab/internal/exercise"
	"github.com/abhisek/mathlab/internal/graph"
	"github.com/abhisek/mathlab/internal/leaderboard"
	"github.com/abhisek/mathlab/internal/lock"
	"github.com/abhisek/mathlab/internal/logger"
	"github.com/abhisek/mathlab/internal/mastery"
	"github.com/abhisek/mathlab/internal/rewards"
	"github.com/abhisek/mathlab/internal/selector"
	"github.com/abhisek/mathlab/internal/store"
)

var (
	// ErrNotFound covers unknown students, exercises and knowledge points.
	ErrNotFound = errors.New("not found")
	// ErrTopicLocked is returned when the student has not unlocked the
	// exercise's knowledge point.
	ErrTopicLocked = errors.New("topic not unlocked")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
)

// Options carries the optional collaborators and parameters of a Service.
// Zero values select in-process defaults.
type Options struct {
	Selector       selector.Config
	TimeBonusUnder time.Duration
	Locker         lock.Locker
	Board          leaderboard.Board
	Clock          func() time.Time
}

// Service implements the tutoring operations on top of the store, the
// knowledge graph and the mastery engine.
type Service struct {
	store          *store.Store
	graph          *graph.Graph
	engine         *mastery.Engine
	badges         *rewards.Badges
	selector       selector.Config
	timeBonusUnder time.Duration
	locker         lock.Locker
	board          leaderboard.Board
	log            *logger.Logger
	now            func() time.Time
}

// New creates a Service.
func New(st *store.Store, g *graph.Graph, engine *mastery.Engine, log *logger.Logger, opts Options) *Service {
	s := &Service{
		store:          st,
		graph:          g,
		engine:         engine,
		badges:         rewards.NewBadges(g),
		selector:       opts.Selector,
		timeBonusUnder: opts.TimeBonusUnder,
		locker:         opts.Locker,
		board:          opts.Board,
		log:            log.With("service", "TutorService"),
		now:            opts.Clock,
	}
	if s.selector == (selector.Config{}) {
		s.selector = selector.DefaultConfig()
	}
	if s.timeBonusUnder == 0 {
		s.timeBonusUnder = rewards.DefaultTimeBonusUnder
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.board == nil {
		s.board = leaderboard.NewMemory()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Graph returns the knowledge graph the service runs on.
func (s *Service) Graph() *graph.Graph {
	return s.graph
}

// SeedExercises inserts or updates the exercise catalogue. Every exercise
// must belong to a known knowledge point.
func (s *Service) SeedExercises(ctx context.Context, exs []exercise.Exercise) error {
	for i := range exs {
		if err := exs[i].Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if !s.graph.Has(exs[i].KnowledgePointID) {
			return fmt.Errorf("%w: exercise %q references knowledge point %q", ErrNotFound, exs[i].ID, exs[i].KnowledgePointID)
		}
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r store.Repos) error {
		for _, ex := range exs {
			if ex.CreatedAt.IsZero() {
				ex.CreatedAt = s.now()
			}
			if err := r.Exercises.Upsert(ctx, ex); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed exercises: %w", err)
	}
	s.log.Info("exercises seeded", "count", len(exs))
	return nil
}

// lockStudent serializes mastery updates of one student.
func (s *Service) lockStudent(ctx context.Context, studentID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "student:"+studentID)
	if err != nil {
		return nil, fmt.Errorf("lock student %s: %w", studentID, err)
	}
	return unlock, nil
}

func (s *Service) requireStudent(ctx context.Context, studentID string) (*store.Student, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}
	st, err := s.store.Students.Get(ctx, studentID)
	return st, mapStoreErr(err)
}

// mapStoreErr translates storage and domain errors into the service's
// sentinel errors.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, graph.ErrNodeNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, mastery.ErrLocked):
		return fmt.Errorf("%w: %w", ErrTopicLocked, err)
	default:
		return err
	}
}

// records loads every mastery record of the student.
func (s *Service) records(ctx context.Context, studentID string) ([]mastery.Record, error) {
	rows, err := s.store.Mastery.List(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return mastery.RecordsFromStore(rows)
}
