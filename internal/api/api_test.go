package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mathlab/internal/exercise"
	"github.com/abhisek/mathlab/internal/graph"
	"github.com/abhisek/mathlab/internal/logger"
	"github.com/abhisek/mathlab/internal/mastery"
	"github.com/abhisek/mathlab/internal/store"
	"github.com/abhisek/mathlab/internal/tutor"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	g, err := graph.New([]graph.KnowledgePoint{
		{ID: "counting", Title: "Counting"},
		{ID: "adding", Title: "Adding", Layer: 1, Prerequisites: []string{"counting"}},
	})
	require.NoError(t, err)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	engine := mastery.NewEngine(g, mastery.DefaultConfig(), logger.Nop())
	svc := tutor.New(st, g, engine, logger.Nop(), tutor.Options{})
	require.NoError(t, svc.SeedExercises(context.Background(), []exercise.Exercise{
		{ID: "c-1", KnowledgePointID: "counting", Question: "1, 2, ?", Answer: "3", Difficulty: 1},
		{ID: "a-1", KnowledgePointID: "adding", Question: "2+2", Answer: "4", Difficulty: 2},
	}))
	return New(svc, st.DB().PingContext, logger.Nop())
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestHealthCheck_Unavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Log: logger.Nop(),
		HealthHandler: NewHealthHandler(func(context.Context) error {
			return errors.New("sql: database is closed")
		}),
	})

	rec := do(t, r, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	env := decode[ErrorEnvelope](t, rec)
	assert.Equal(t, "unavailable", env.Error.Code)
	assert.NotContains(t, env.Error.Message, "sql:")
}

func TestOnboard_EmptyBody(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/students", http.NoBody)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	res := decode[tutor.OnboardResult](t, rec)
	_, err := uuid.Parse(res.StudentID)
	assert.NoError(t, err, "generated id %q", res.StudentID)
	assert.Equal(t, []string{"counting"}, res.Unlocked)

	rec = do(t, r, http.MethodPost, "/api/students", nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRaw(t, r, http.MethodPost, "/api/students", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func doRaw(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHistory(t *testing.T) {
	r := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/api/students", map[string]string{"student_id": "s1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/api/students/s1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Events []tutor.HistoryEntry `json:"events"`
	}](t, rec)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "counting", body.Events[0].KnowledgePointID)
	assert.Equal(t, "available", body.Events[0].To)

	rec = do(t, r, http.MethodGet, "/api/students/ghost/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentFlow(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/students", map[string]string{"student_id": "s1", "name": "Ada"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	onboard := decode[tutor.OnboardResult](t, rec)
	assert.Equal(t, []string{"counting"}, onboard.Unlocked)

	rec = do(t, r, http.MethodPost, "/api/students", map[string]string{"student_id": "s1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/students/s1/queue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	queue := decode[struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, queue.Items, 1)
	assert.Equal(t, "c-1", queue.Items[0].ID)

	rec = do(t, r, http.MethodPost, "/api/students/s1/attempts", map[string]any{
		"exercise_id": "c-1", "answer": "3", "time_spent_seconds": 12,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[map[string]any](t, rec)
	assert.Equal(t, true, res["is_correct"])
	assert.Equal(t, float64(12), res["xp_earned"])
	assert.Equal(t, "mastered", res["status"])
	assert.Equal(t, []any{"adding"}, res["unlocked"])

	rec = do(t, r, http.MethodGet, "/api/students/s1/exercises/a-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ex := decode[map[string]any](t, rec)
	assert.Equal(t, "2+2", ex["question"])
	assert.NotContains(t, ex, "answer")

	rec = do(t, r, http.MethodGet, "/api/students/s1/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode[tutor.Progress](t, rec)
	assert.Equal(t, 12, progress.XP)
	assert.Equal(t, 1, progress.Mastered)

	rec = do(t, r, http.MethodGet, "/api/leaderboard?limit=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"student_id":"s1"`)

	rec = do(t, r, http.MethodPost, "/api/students/s1/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"repaired":[],"unlocked":[]}`, rec.Body.String())
}

func TestGraphModes(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/students", map[string]string{"student_id": "s1"}).Code)

	rec := do(t, r, http.MethodGet, "/api/students/s1/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	full := decode[tutor.GraphView](t, rec)
	assert.Len(t, full.Nodes, 2)
	assert.Equal(t, []graph.Edge{{Source: "counting", Target: "adding"}}, full.Edges)

	rec = do(t, r, http.MethodGet, "/api/students/s1/graph?mode=progressive&parent=counting", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"adding"`)
	assert.Contains(t, rec.Body.String(), `"status":"locked"`)

	rec = do(t, r, http.MethodGet, "/api/students/s1/graph?mode=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/students", map[string]string{"student_id": "s1"}).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown student", http.MethodGet, "/api/students/ghost/progress", nil, http.StatusNotFound, "not_found"},
		{"unknown exercise", http.MethodGet, "/api/students/s1/exercises/zz", nil, http.StatusNotFound, "not_found"},
		{"locked topic", http.MethodPost, "/api/students/s1/attempts", map[string]any{"exercise_id": "a-1", "answer": "4"}, http.StatusForbidden, "topic_locked"},
		{"negative time", http.MethodPost, "/api/students/s1/attempts", map[string]any{"exercise_id": "c-1", "answer": "3", "time_spent_seconds": -1}, http.StatusBadRequest, "invalid_input"},
		{"missing exercise id", http.MethodPost, "/api/students/s1/attempts", map[string]any{"answer": "3"}, http.StatusBadRequest, "invalid_request"},
		{"unknown parent", http.MethodGet, "/api/students/s1/graph?mode=progressive&parent=zz", nil, http.StatusNotFound, "not_found"},
		{"bad limit", http.MethodGet, "/api/leaderboard?limit=abc", nil, http.StatusBadRequest, "invalid_request"},
		{"zero limit", http.MethodGet, "/api/leaderboard?limit=0", nil, http.StatusBadRequest, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			env := decode[ErrorEnvelope](t, rec)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
}
