package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/mathlab/internal/graph"
	"github.com/abhisek/mathlab/internal/logger"
	"github.com/abhisek/mathlab/internal/store"
)

// ErrLocked is returned when an attempt targets a topic the student has not
// unlocked.
var ErrLocked = errors.New("topic locked")

// Event reasons written to the mastery audit trail.
const (
	ReasonAttempt = "attempt"
	ReasonUnlock  = "unlock"
	ReasonAudit   = "audit"
	ReasonOnboard = "onboard"
)

// Ledger is the per-student mastery record storage.
type Ledger interface {
	Get(ctx context.Context, studentID, kpID string) (*store.MasteryRecord, error)
	List(ctx context.Context, studentID string) ([]store.MasteryRecord, error)
	UpsertAvailable(ctx context.Context, studentID, kpID string, at time.Time) (bool, error)
	Update(ctx context.Context, rec store.MasteryRecord) error
}

// AttemptLog answers derivation queries over the attempt history.
type AttemptLog interface {
	DistinctCorrect(ctx context.Context, studentID, kpID string) (int, error)
}

// ExerciseCatalog counts the exercises defined under a topic.
type ExerciseCatalog interface {
	CountByKnowledgePoint(ctx context.Context, kpID string) (int, error)
}

// EventLog receives mastery transitions.
type EventLog interface {
	AppendMastery(ctx context.Context, data store.MasteryEventData) error
}

// Repos bundles the storage the engine reads and writes. All of them should
// be bound to the same transaction.
type Repos struct {
	Ledger    Ledger
	Attempts  AttemptLog
	Exercises ExerciseCatalog
	Events    EventLog
}

// ReposFrom adapts store repositories.
func ReposFrom(r store.Repos) Repos {
	return Repos{
		Ledger:    r.Mastery,
		Attempts:  r.Attempts,
		Exercises: r.Exercises,
		Events:    r.Events,
	}
}

// Result is the outcome of recording one attempt.
type Result struct {
	Record Record
	// Transition is nil for incorrect attempts.
	Transition *Transition
	// Unlocked lists knowledge points made available by this attempt.
	Unlocked []string
}

// HealReport describes what an audit changed.
type HealReport struct {
	Repaired []Transition
	Unlocked []string
}

// Engine applies attempt outcomes to the mastery ledger and cascades
// unlocks through the knowledge graph.
type Engine struct {
	graph *graph.Graph
	cfg   Config
	log   *logger.Logger
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over g.
func NewEngine(g *graph.Graph, cfg Config, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		graph: g,
		cfg:   cfg,
		log:   log.With("service", "MasteryEngine"),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine's progression parameters.
func (e *Engine) Config() Config {
	return e.cfg
}

// Get returns the student's record for kpID, or nil when the topic has never
// been surfaced.
func (e *Engine) Get(ctx context.Context, r Repos, studentID, kpID string) (*Record, error) {
	row, err := r.Ledger.Get(ctx, studentID, kpID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	rec, err := RecordFromStore(*row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Unlock makes kpID available for the student. It never regresses a record
// and is safe to repeat.
func (e *Engine) Unlock(ctx context.Context, r Repos, studentID, kpID, reason string) (bool, error) {
	if !e.graph.Has(kpID) {
		return false, fmt.Errorf("unlock: %w: %q", graph.ErrNodeNotFound, kpID)
	}

	prev, err := r.Ledger.Get(ctx, studentID, kpID)
	if err != nil {
		return false, fmt.Errorf("unlock %s: %w", kpID, err)
	}

	now := e.now()
	changed, err := r.Ledger.UpsertAvailable(ctx, studentID, kpID, now)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	from := "absent"
	if prev != nil {
		from = prev.Status
	}
	err = r.Events.AppendMastery(ctx, store.MasteryEventData{
		StudentID:        studentID,
		KnowledgePointID: kpID,
		FromStatus:       from,
		ToStatus:         StatusAvailable.String(),
		Reason:           reason,
		At:               now,
	})
	if err != nil {
		return false, fmt.Errorf("unlock %s: %w", kpID, err)
	}
	return true, nil
}

// RecordAttempt applies one attempt outcome for studentID on kpID. The
// attempt itself must already be in the attempt log so the level derivation
// sees it. Incorrect attempts leave the record untouched.
func (e *Engine) RecordAttempt(ctx context.Context, r Repos, studentID, kpID string, correct bool) (Result, error) {
	if !e.graph.Has(kpID) {
		return Result{}, fmt.Errorf("record attempt: %w: %q", graph.ErrNodeNotFound, kpID)
	}

	cur, err := e.Get(ctx, r, studentID, kpID)
	if err != nil {
		return Result{}, fmt.Errorf("record attempt: %w", err)
	}
	if cur == nil || cur.Status == StatusLocked {
		return Result{}, fmt.Errorf("%w: %s", ErrLocked, kpID)
	}
	if !correct {
		return Result{Record: *cur}, nil
	}

	uniqueCorrect, total, err := e.counts(ctx, r, studentID, kpID)
	if err != nil {
		return Result{}, err
	}

	tr, err := e.cfg.Evaluate(*cur, uniqueCorrect, total, e.now())
	if err != nil {
		return Result{}, err
	}
	if err := e.write(ctx, r, tr, ReasonAttempt); err != nil {
		return Result{}, err
	}

	res := Result{Record: tr.After, Transition: &tr}
	if tr.Mastered {
		e.log.Info("topic mastered", "student_id", studentID, "kp_id", kpID, "level", tr.After.Level)
		res.Unlocked, err = e.Cascade(ctx, r, studentID, kpID)
		if err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

// Cascade unlocks the direct dependents of kpID whose prerequisites are now
// all mastered. It is a pure function of the current ledger, so it may be
// rerun at any time; a second run for the same state unlocks nothing.
func (e *Engine) Cascade(ctx context.Context, r Repos, studentID, kpID string) ([]string, error) {
	rows, err := r.Ledger.List(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("cascade %s: %w", kpID, err)
	}
	recs, err := RecordsFromStore(rows)
	if err != nil {
		return nil, fmt.Errorf("cascade %s: %w", kpID, err)
	}

	intents := PlanUnlocks(e.graph, studentID, kpID, StatusMap(recs), e.reportDangling(studentID))

	var unlocked []string
	for _, in := range intents {
		changed, err := e.Unlock(ctx, r, in.StudentID, in.KnowledgePointID, ReasonUnlock)
		if err != nil {
			return nil, err
		}
		if changed {
			unlocked = append(unlocked, in.KnowledgePointID)
			e.log.Info("topic unlocked", "student_id", studentID, "kp_id", in.KnowledgePointID, "via", kpID)
		}
	}
	return unlocked, nil
}

// Heal re-derives every record of the student from the attempt log, makes
// sure every root is available and reruns the cascade for every mastered
// topic. It repairs partially applied submissions and never regresses a
// status. Running it twice in a row changes nothing the second time.
func (e *Engine) Heal(ctx context.Context, r Repos, studentID string) (HealReport, error) {
	var report HealReport

	for _, root := range e.graph.Roots() {
		changed, err := e.Unlock(ctx, r, studentID, root.ID, ReasonAudit)
		if err != nil {
			return HealReport{}, err
		}
		if changed {
			report.Unlocked = append(report.Unlocked, root.ID)
		}
	}

	rows, err := r.Ledger.List(ctx, studentID)
	if err != nil {
		return HealReport{}, fmt.Errorf("heal: %w", err)
	}
	recs, err := RecordsFromStore(rows)
	if err != nil {
		return HealReport{}, fmt.Errorf("heal: %w", err)
	}
	byID := make(map[string]Record, len(recs))
	for _, rec := range recs {
		byID[rec.KnowledgePointID] = rec
	}

	for _, rec := range recs {
		if !e.graph.Has(rec.KnowledgePointID) {
			e.log.Warn("mastery record for unknown knowledge point",
				"student_id", studentID, "kp_id", rec.KnowledgePointID)
			continue
		}
		uniqueCorrect, total, err := e.counts(ctx, r, studentID, rec.KnowledgePointID)
		if err != nil {
			return HealReport{}, err
		}
		tr, err := e.cfg.Reevaluate(rec, uniqueCorrect, total)
		if err != nil {
			return HealReport{}, err
		}
		if tr.After.Level == tr.Before.Level && !tr.StatusChanged() {
			continue
		}
		tr.After.UpdatedAt = e.now()
		if err := e.write(ctx, r, tr, ReasonAudit); err != nil {
			return HealReport{}, err
		}
		byID[rec.KnowledgePointID] = tr.After
		report.Repaired = append(report.Repaired, tr)
	}

	// Prerequisites cascade before their dependents.
	for _, kp := range e.graph.TopologicalOrder() {
		rec, ok := byID[kp.ID]
		if !ok || rec.Status != StatusMastered {
			continue
		}
		unlocked, err := e.Cascade(ctx, r, studentID, kp.ID)
		if err != nil {
			return HealReport{}, err
		}
		report.Unlocked = append(report.Unlocked, unlocked...)
	}

	if len(report.Repaired) > 0 || len(report.Unlocked) > 0 {
		e.log.Info("mastery healed", "student_id", studentID,
			"repaired", len(report.Repaired), "unlocked", len(report.Unlocked))
	}
	return report, nil
}

func (e *Engine) reportDangling(studentID string) DanglingFunc {
	return func(dependentID, prereqID string) {
		e.log.Warn("dangling prerequisite treated as not mastered",
			"student_id", studentID, "kp_id", dependentID, "prerequisite_id", prereqID)
	}
}

func (e *Engine) counts(ctx context.Context, r Repos, studentID, kpID string) (int, int, error) {
	uniqueCorrect, err := r.Attempts.DistinctCorrect(ctx, studentID, kpID)
	if err != nil {
		return 0, 0, fmt.Errorf("derive level %s: %w", kpID, err)
	}
	total, err := r.Exercises.CountByKnowledgePoint(ctx, kpID)
	if err != nil {
		return 0, 0, fmt.Errorf("derive level %s: %w", kpID, err)
	}
	if total == 0 {
		e.log.Warn("knowledge point has no exercises",
			"student_id", studentID, "kp_id", kpID, "policy", string(e.cfg.ZeroExercisePolicy))
	}
	return uniqueCorrect, total, nil
}

func (e *Engine) write(ctx context.Context, r Repos, tr Transition, reason string) error {
	if err := r.Ledger.Update(ctx, tr.After.ToStore()); err != nil {
		return err
	}
	if !tr.StatusChanged() {
		return nil
	}
	err := r.Events.AppendMastery(ctx, store.MasteryEventData{
		StudentID:        tr.After.StudentID,
		KnowledgePointID: tr.After.KnowledgePointID,
		FromStatus:       tr.Before.Status.String(),
		ToStatus:         tr.After.Status.String(),
		Reason:           reason,
		MasteryLevel:     tr.After.Level,
		At:               tr.After.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}
