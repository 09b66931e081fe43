package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// EventRepo manages the mastery transition audit trail.
type EventRepo struct {
	q querier
}

// AppendMastery records one status transition.
func (r *EventRepo) AppendMastery(ctx context.Context, data MasteryEventData) error {
	if data.At.IsZero() {
		data.At = time.Now()
	}
	query, args := builder().
		Insert(tableMasteryEvents).
		Columns("student_id", "knowledge_point_id", "from_status", "to_status", "reason", "mastery_level", "created_at").
		Values(data.StudentID, data.KnowledgePointID, data.FromStatus, data.ToStatus, data.Reason, data.MasteryLevel, data.At.UTC()).
		Query()

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert mastery event: %w", err)
	}
	return nil
}

// ListMastery returns the student's transitions, oldest first.
func (r *EventRepo) ListMastery(ctx context.Context, studentID string) ([]MasteryEvent, error) {
	query, args := builder().
		Select("id", "student_id", "knowledge_point_id", "from_status", "to_status", "reason", "mastery_level", "created_at").
		From(entsql.Table(tableMasteryEvents)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("id").
		Query()

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mastery events: %w", err)
	}
	defer rows.Close()

	var out []MasteryEvent
	for rows.Next() {
		var e MasteryEvent
		if err := rows.Scan(&e.ID, &e.StudentID, &e.KnowledgePointID, &e.FromStatus, &e.ToStatus,
			&e.Reason, &e.MasteryLevel, &e.At); err != nil {
			return nil, fmt.Errorf("scan mastery event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
