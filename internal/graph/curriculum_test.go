package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCurriculum(t *testing.T) {
	c, err := DefaultCurriculum()
	require.NoError(t, err)
	assert.Equal(t, 13, c.Graph.Len())
	assert.Len(t, c.Exercises, 48)

	perKP := map[string]int{}
	for _, ex := range c.Exercises {
		perKP[ex.KnowledgePointID]++
	}
	for _, kp := range c.Graph.All() {
		assert.Greater(t, perKP[kp.ID], 0, "knowledge point %q has no exercises", kp.ID)
	}
}

func TestLoadCurriculum_Minimal(t *testing.T) {
	doc := `{
		"knowledge_points": [
			{"id": "a", "title": "A", "layer": 0},
			{"id": "b", "title": "B", "layer": 1, "prerequisites": ["a"]}
		],
		"exercises": [
			{"id": "a1", "knowledge_point_id": "a", "question": "q", "answer": "x", "difficulty": 1}
		]
	}`
	c, err := LoadCurriculum(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Graph.Len())
	require.Len(t, c.Exercises, 1)
	assert.Equal(t, "a", c.Exercises[0].KnowledgePointID)
}

func TestLoadCurriculum_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing knowledge points", `{"exercises": []}`},
		{"negative layer", `{"knowledge_points": [{"id": "a", "title": "A", "layer": -1}]}`},
		{"unknown field", `{"knowledge_points": [{"id": "a", "title": "A", "layer": 0, "color": "red"}]}`},
		{"difficulty out of range", `{"knowledge_points": [{"id": "a", "title": "A", "layer": 0}],
			"exercises": [{"id": "e", "knowledge_point_id": "a", "question": "q", "answer": "x", "difficulty": 5}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCurriculum(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadCurriculum_StructuralErrors(t *testing.T) {
	cyclic := `{"knowledge_points": [
		{"id": "r", "title": "R", "layer": 0},
		{"id": "a", "title": "A", "layer": 1, "prerequisites": ["r", "b"]},
		{"id": "b", "title": "B", "layer": 1, "prerequisites": ["a"]}
	]}`
	_, err := LoadCurriculum(strings.NewReader(cyclic))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)

	orphan := `{"knowledge_points": [{"id": "a", "title": "A", "layer": 0}],
		"exercises": [{"id": "e", "knowledge_point_id": "zzz", "question": "q", "answer": "x", "difficulty": 1}]}`
	_, err = LoadCurriculum(strings.NewReader(orphan))
	assert.ErrorIs(t, err, ErrNodeNotFound)

	dup := `{"knowledge_points": [{"id": "a", "title": "A", "layer": 0}],
		"exercises": [
			{"id": "e", "knowledge_point_id": "a", "question": "q", "answer": "x", "difficulty": 1},
			{"id": "e", "knowledge_point_id": "a", "question": "q2", "answer": "y", "difficulty": 1}
		]}`
	_, err = LoadCurriculum(strings.NewReader(dup))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate exercise")
}
