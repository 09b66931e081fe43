package mastery

import (
	"fmt"
	"time"

	"github.com/abhisek/mathlab/internal/store"
)

// Record is a student's progress on one knowledge point.
type Record struct {
	StudentID        string     `json:"student_id"`
	KnowledgePointID string     `json:"knowledge_point_id"`
	Status           Status     `json:"status"`
	Level            float64    `json:"mastery_level"`
	LastPracticed    *time.Time `json:"last_practiced,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// RecordFromStore converts a persisted row.
func RecordFromStore(row store.MasteryRecord) (Record, error) {
	status, err := ParseStatus(row.Status)
	if err != nil {
		return Record{}, fmt.Errorf("record %s/%s: %w", row.StudentID, row.KnowledgePointID, err)
	}
	return Record{
		StudentID:        row.StudentID,
		KnowledgePointID: row.KnowledgePointID,
		Status:           status,
		Level:            row.MasteryLevel,
		LastPracticed:    row.LastPracticed,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

// ToStore converts the record to its persisted row.
func (r Record) ToStore() store.MasteryRecord {
	return store.MasteryRecord{
		StudentID:        r.StudentID,
		KnowledgePointID: r.KnowledgePointID,
		Status:           r.Status.String(),
		MasteryLevel:     r.Level,
		LastPracticed:    r.LastPracticed,
		UpdatedAt:        r.UpdatedAt,
	}
}

// RecordsFromStore converts a batch of rows.
func RecordsFromStore(rows []store.MasteryRecord) ([]Record, error) {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := RecordFromStore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// StatusMap indexes records by knowledge point.
func StatusMap(recs []Record) map[string]Status {
	m := make(map[string]Status, len(recs))
	for _, r := range recs {
		m[r.KnowledgePointID] = r.Status
	}
	return m
}
