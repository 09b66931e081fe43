package store

import (
	"context"
	"database/sql"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Mastery status values as persisted. The mastery package owns the typed
// enumeration; the store only needs the two values it writes itself.
const (
	StatusLocked    = "locked"
	StatusAvailable = "available"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repos groups every repository bound to one querier.
type Repos struct {
	Students  *StudentRepo
	Exercises *ExerciseRepo
	Mastery   *MasteryRepo
	Attempts  *AttemptRepo
	Events    *EventRepo
}

func newRepos(q querier) Repos {
	return Repos{
		Students:  &StudentRepo{q: q},
		Exercises: &ExerciseRepo{q: q},
		Mastery:   &MasteryRepo{q: q},
		Attempts:  &AttemptRepo{q: q},
		Events:    &EventRepo{q: q},
	}
}

// builder returns an SQL builder for the SQLite dialect.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// Student is a learner account.
type Student struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// MasteryRecord is the persisted per-student, per-knowledge-point progress row.
type MasteryRecord struct {
	StudentID        string
	KnowledgePointID string
	Status           string
	MasteryLevel     float64
	LastPracticed    *time.Time
	UpdatedAt        time.Time
}

// Attempt is one submitted answer. Attempts are append-only.
type Attempt struct {
	ID           string
	StudentID    string
	ExerciseID   string
	Answer       string
	IsCorrect    bool
	XPEarned     int
	CoinsEarned  int
	TimeSpent    time.Duration
	AssignmentID *string
	CreatedAt    time.Time
}

// MasteryEventData captures a single mastery status transition.
type MasteryEventData struct {
	StudentID        string
	KnowledgePointID string
	FromStatus       string
	ToStatus         string
	Reason           string
	MasteryLevel     float64
	At               time.Time
}

// MasteryEvent is a persisted mastery transition.
type MasteryEvent struct {
	ID int
	MasteryEventData
}

// Totals aggregates the gamification counters of one student.
type Totals struct {
	XP       int
	Coins    int
	Attempts int
	Correct  int
}
