package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// StudentRepo manages learner accounts.
type StudentRepo struct {
	q querier
}

// Create inserts the student. It reports false without error when a student
// with the same ID already exists.
func (r *StudentRepo) Create(ctx context.Context, s Student) (bool, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	query, args := builder().
		Insert(tableStudents).
		Columns("id", "name", "created_at").
		Values(s.ID, s.Name, s.CreatedAt.UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert student: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert student: %w", err)
	}
	return n == 1, nil
}

// Get returns the student with the given ID or ErrNotFound.
func (r *StudentRepo) Get(ctx context.Context, id string) (*Student, error) {
	query, args := builder().
		Select("id", "name", "created_at").
		From(entsql.Table(tableStudents)).
		Where(entsql.EQ("id", id)).
		Query()

	var s Student
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("student %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query student: %w", err)
	}
	return &s, nil
}

// List returns all students ordered by creation time.
func (r *StudentRepo) List(ctx context.Context) ([]Student, error) {
	query, args := builder().
		Select("id", "name", "created_at").
		From(entsql.Table(tableStudents)).
		OrderBy("created_at", "id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
