package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

var masteryColumns = []string{"student_id", "knowledge_point_id", "status", "mastery_level", "last_practiced", "updated_at"}

// MasteryRepo manages per-student mastery records.
type MasteryRepo struct {
	q querier
}

// Get returns the record for the pair, or nil without error when the topic
// has never been surfaced to the student.
func (r *MasteryRepo) Get(ctx context.Context, studentID, kpID string) (*MasteryRecord, error) {
	query, args := builder().
		Select(masteryColumns...).
		From(entsql.Table(tableMastery)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("knowledge_point_id", kpID),
		)).
		Query()

	rec, err := scanMastery(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query mastery record: %w", err)
	}
	return rec, nil
}

// List returns every record of the student ordered by knowledge point ID.
func (r *MasteryRepo) List(ctx context.Context, studentID string) ([]MasteryRecord, error) {
	query, args := builder().
		Select(masteryColumns...).
		From(entsql.Table(tableMastery)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("knowledge_point_id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery records: %w", err)
	}
	defer rows.Close()

	var out []MasteryRecord
	for rows.Next() {
		rec, err := scanMastery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mastery record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// UpsertAvailable creates the record as available, or promotes an existing
// locked record to available. Records in any other status are left alone.
// The statement is a single atomic upsert so concurrent unlocks of the same
// pair cannot create duplicates. It reports whether a row changed.
func (r *MasteryRepo) UpsertAvailable(ctx context.Context, studentID, kpID string, at time.Time) (bool, error) {
	query, args := builder().
		Insert(tableMastery).
		Columns("student_id", "knowledge_point_id", "status", "mastery_level", "updated_at").
		Values(studentID, kpID, StatusAvailable, 0, at.UTC()).
		OnConflict(
			entsql.ConflictColumns("student_id", "knowledge_point_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("status")
				u.SetExcluded("updated_at")
			}),
			entsql.UpdateWhere(entsql.EQ("status", StatusLocked)),
		).
		Query()

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("upsert available %s/%s: %w", studentID, kpID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert available %s/%s: %w", studentID, kpID, err)
	}
	return n > 0, nil
}

// Update overwrites status, level and timestamps of an existing record.
func (r *MasteryRepo) Update(ctx context.Context, rec MasteryRecord) error {
	query, args := builder().
		Update(tableMastery).
		Set("status", rec.Status).
		Set("mastery_level", rec.MasteryLevel).
		Set("last_practiced", nullTime(rec.LastPracticed)).
		Set("updated_at", rec.UpdatedAt.UTC()).
		Where(entsql.And(
			entsql.EQ("student_id", rec.StudentID),
			entsql.EQ("knowledge_point_id", rec.KnowledgePointID),
		)).
		Query()

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update mastery record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update mastery record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mastery record %s/%s: %w", rec.StudentID, rec.KnowledgePointID, ErrNotFound)
	}
	return nil
}

func scanMastery(s rowScanner) (*MasteryRecord, error) {
	var (
		rec  MasteryRecord
		last sql.NullTime
	)
	if err := s.Scan(&rec.StudentID, &rec.KnowledgePointID, &rec.Status, &rec.MasteryLevel, &last, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		rec.LastPracticed = &t
	}
	return &rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
