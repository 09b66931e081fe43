package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// AttemptRepo manages the append-only attempt log.
type AttemptRepo struct {
	q querier
}

// Append writes an attempt. A missing ID is replaced with a fresh UUID and a
// zero CreatedAt with the current time; the stored attempt is returned.
func (r *AttemptRepo) Append(ctx context.Context, a Attempt) (Attempt, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	var assignment sql.NullString
	if a.AssignmentID != nil {
		assignment = sql.NullString{String: *a.AssignmentID, Valid: true}
	}

	query, args := builder().
		Insert(tableAttempts).
		Columns("attempt_id", "student_id", "exercise_id", "answer", "is_correct",
			"xp_earned", "coins_earned", "time_spent", "assignment_id", "created_at").
		Values(a.ID, a.StudentID, a.ExerciseID, a.Answer, a.IsCorrect,
			a.XPEarned, a.CoinsEarned, int64(a.TimeSpent/time.Second), assignment, a.CreatedAt.UTC()).
		Query()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

// CountForExercise returns how many attempts the student has made on the
// exercise, correct or not.
func (r *AttemptRepo) CountForExercise(ctx context.Context, studentID, exerciseID string) (int, error) {
	query, args := builder().
		Select(entsql.Count("*")).
		From(entsql.Table(tableAttempts)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("exercise_id", exerciseID),
		)).
		Query()

	var n int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

// DistinctCorrect returns the number of distinct exercises currently defined
// under the knowledge point that the student has answered correctly at least
// once. Attempts on exercises that no longer exist are not counted.
func (r *AttemptRepo) DistinctCorrect(ctx context.Context, studentID, kpID string) (int, error) {
	a := entsql.Table(tableAttempts).As("a")
	e := entsql.Table(tableExercises).As("e")
	query, args := builder().
		Select(entsql.Count(entsql.Distinct(a.C("exercise_id")))).
		From(a).
		Join(e).On(e.C("id"), a.C("exercise_id")).
		Where(entsql.And(
			entsql.EQ(a.C("student_id"), studentID),
			entsql.EQ(e.C("knowledge_point_id"), kpID),
			entsql.EQ(a.C("is_correct"), true),
		)).
		Query()

	var n int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count distinct correct: %w", err)
	}
	return n, nil
}

// CorrectExerciseIDs returns the set of exercises the student has solved.
func (r *AttemptRepo) CorrectExerciseIDs(ctx context.Context, studentID string) (map[string]bool, error) {
	query, args := builder().
		Select("exercise_id").
		Distinct().
		From(entsql.Table(tableAttempts)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("is_correct", true),
		)).
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query solved exercises: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exercise id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// ListForStudent returns the student's attempts in submission order.
func (r *AttemptRepo) ListForStudent(ctx context.Context, studentID string) ([]Attempt, error) {
	query, args := builder().
		Select("attempt_id", "student_id", "exercise_id", "answer", "is_correct",
			"xp_earned", "coins_earned", "time_spent", "assignment_id", "created_at").
		From(entsql.Table(tableAttempts)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a          Attempt
			seconds    int64
			assignment sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.StudentID, &a.ExerciseID, &a.Answer, &a.IsCorrect,
			&a.XPEarned, &a.CoinsEarned, &seconds, &assignment, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.TimeSpent = time.Duration(seconds) * time.Second
		if assignment.Valid {
			s := assignment.String
			a.AssignmentID = &s
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Totals sums rewards and attempt counts for the student.
func (r *AttemptRepo) Totals(ctx context.Context, studentID string) (Totals, error) {
	query, args := builder().
		Select(
			entsql.Sum("xp_earned"),
			entsql.Sum("coins_earned"),
			entsql.Count("*"),
			entsql.Sum("is_correct"),
		).
		From(entsql.Table(tableAttempts)).
		Where(entsql.EQ("student_id", studentID)).
		Query()

	// SUM is NULL when the student has no attempts.
	var xp, coins, correct sql.NullInt64
	var t Totals
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&xp, &coins, &t.Attempts, &correct); err != nil {
		return Totals{}, fmt.Errorf("sum attempts: %w", err)
	}
	t.XP = int(xp.Int64)
	t.Coins = int(coins.Int64)
	t.Correct = int(correct.Int64)
	return t, nil
}
