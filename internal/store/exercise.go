package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/mathlab/internal/exercise"
)

var exerciseColumns = []string{"id", "knowledge_point_id", "question", "answer", "hint", "difficulty", "created_at"}

// ExerciseRepo manages the exercise catalogue.
type ExerciseRepo struct {
	q querier
}

// Upsert inserts the exercise or replaces the content of an existing one.
// The original creation time is preserved.
func (r *ExerciseRepo) Upsert(ctx context.Context, ex exercise.Exercise) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	query, args := builder().
		Insert(tableExercises).
		Columns(exerciseColumns...).
		Values(ex.ID, ex.KnowledgePointID, ex.Question, ex.Answer, ex.Hint, ex.Difficulty, ex.CreatedAt.UTC()).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range []string{"knowledge_point_id", "question", "answer", "hint", "difficulty"} {
					u.SetExcluded(c)
				}
			}),
		).
		Query()

	_, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("upsert exercise %q: %w", ex.ID, err)
	}
	return nil
}

// Get returns the exercise with the given ID or ErrNotFound.
func (r *ExerciseRepo) Get(ctx context.Context, id string) (*exercise.Exercise, error) {
	query, args := builder().
		Select(exerciseColumns...).
		From(entsql.Table(tableExercises)).
		Where(entsql.EQ("id", id)).
		Query()

	ex, err := scanExercise(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("exercise %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query exercise: %w", err)
	}
	return ex, nil
}

// ListByKnowledgePoint returns the exercises of one knowledge point ordered
// by difficulty then ID.
func (r *ExerciseRepo) ListByKnowledgePoint(ctx context.Context, kpID string) ([]exercise.Exercise, error) {
	query, args := builder().
		Select(exerciseColumns...).
		From(entsql.Table(tableExercises)).
		Where(entsql.EQ("knowledge_point_id", kpID)).
		OrderBy("difficulty", "id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exercises: %w", err)
	}
	defer rows.Close()

	var out []exercise.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		out = append(out, *ex)
	}
	return out, rows.Err()
}

// CountByKnowledgePoint returns how many exercises are currently defined
// under the knowledge point.
func (r *ExerciseRepo) CountByKnowledgePoint(ctx context.Context, kpID string) (int, error) {
	query, args := builder().
		Select(entsql.Count("*")).
		From(entsql.Table(tableExercises)).
		Where(entsql.EQ("knowledge_point_id", kpID)).
		Query()

	var n int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count exercises: %w", err)
	}
	return n, nil
}

// CountsByKnowledgePoint returns the exercise count of every knowledge point that has any.
func (r *ExerciseRepo) CountsByKnowledgePoint(ctx context.Context) (map[string]int, error) {
	query, args := builder().
		Select("knowledge_point_id", entsql.Count("*")).
		From(entsql.Table(tableExercises)).
		GroupBy("knowledge_point_id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count exercises: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var kpID string
		var n int
		if err := rows.Scan(&kpID, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[kpID] = n
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(s rowScanner) (*exercise.Exercise, error) {
	var ex exercise.Exercise
	if err := s.Scan(&ex.ID, &ex.KnowledgePointID, &ex.Question, &ex.Answer, &ex.Hint, &ex.Difficulty, &ex.CreatedAt); err != nil {
		return nil, err
	}
	return &ex, nil
}
