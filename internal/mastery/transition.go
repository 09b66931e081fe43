package mastery

import (
	"fmt"
	"time"
)

// Transition is the outcome of evaluating one correct attempt.
type Transition struct {
	Before Record
	After  Record
	// Mastered is set when this evaluation moved the topic into mastered.
	// It triggers the unlock cascade.
	Mastered bool
}

// StatusChanged reports whether the status moved.
func (t Transition) StatusChanged() bool {
	return t.Before.Status != t.After.Status
}

// Evaluate computes the record that results from a correct attempt. It is a
// pure function of its inputs: the level is derived from the attempt log
// counts, and the status is the higher of the previous status and the status
// the new level earns.
func (c Config) Evaluate(prev Record, uniqueCorrect, totalExercises int, now time.Time) (Transition, error) {
	if prev.Status == StatusLocked {
		return Transition{}, fmt.Errorf("%w: %s is locked for %s", ErrIllegalTransition, prev.KnowledgePointID, prev.StudentID)
	}

	level := c.Level(uniqueCorrect, totalExercises)
	status := max(prev.Status, c.StatusFor(level))
	if err := checkTransition(prev.Status, status); err != nil {
		return Transition{}, err
	}

	practiced := now
	next := prev
	next.Level = level
	next.Status = status
	next.LastPracticed = &practiced
	next.UpdatedAt = now

	return Transition{
		Before:   prev,
		After:    next,
		Mastered: status == StatusMastered && prev.Status != StatusMastered,
	}, nil
}

// Reevaluate recomputes a stored record from the attempt log without
// touching lastPracticed. Records that were never practiced are returned
// unchanged. Used by audits.
func (c Config) Reevaluate(rec Record, uniqueCorrect, totalExercises int) (Transition, error) {
	if rec.Status == StatusLocked || (rec.Status == StatusAvailable && uniqueCorrect == 0) {
		return Transition{Before: rec, After: rec}, nil
	}

	level := c.Level(uniqueCorrect, totalExercises)
	status := max(rec.Status, c.StatusFor(level))
	if err := checkTransition(rec.Status, status); err != nil {
		return Transition{}, err
	}

	next := rec
	next.Level = level
	next.Status = status
	return Transition{
		Before:   rec,
		After:    next,
		Mastered: status == StatusMastered && rec.Status != StatusMastered,
	}, nil
}
