package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/mathlab/internal/leaderboard"
	"github.com/abhisek/mathlab/internal/mastery"
	"github.com/abhisek/mathlab/internal/selector"
	"github.com/abhisek/mathlab/internal/tutor"
)

const defaultLeaderboardLimit = 10

// Tutor is the subset of tutor.Service the handlers call.
type Tutor interface {
	Onboard(ctx context.Context, studentID, name string) (tutor.OnboardResult, error)
	Submit(ctx context.Context, req tutor.SubmitRequest) (tutor.SubmitResult, error)
	Exercise(ctx context.Context, studentID, exerciseID string) (tutor.ExerciseView, error)
	DailyQueue(ctx context.Context, studentID string) (selector.Queue, error)
	GraphView(ctx context.Context, studentID string) (tutor.GraphView, error)
	ProgressiveView(ctx context.Context, studentID, parentID string) ([]tutor.ProgressiveNode, error)
	Progress(ctx context.Context, studentID string) (tutor.Progress, error)
	Audit(ctx context.Context, studentID string) (mastery.HealReport, error)
	History(ctx context.Context, studentID string) ([]tutor.HistoryEntry, error)
	Leaderboard(ctx context.Context, n int) ([]leaderboard.Entry, error)
}

// PingFunc reports whether a backing dependency is reachable.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	ping PingFunc
}

// NewHealthHandler builds the healthcheck. A nil ping always reports ok.
func NewHealthHandler(ping PingFunc) *HealthHandler { return &HealthHandler{ping: ping} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			_ = c.Error(err)
			RespondError(c, http.StatusServiceUnavailable, "unavailable", errors.New("database unavailable"))
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

type StudentHandler struct {
	tutor Tutor
}

func NewStudentHandler(t Tutor) *StudentHandler {
	return &StudentHandler{tutor: t}
}

// POST /api/students
// body: { "student_id": "...", "name": "..." }
func (h *StudentHandler) Onboard(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id"`
		Name      string `json:"name"`
	}
	// Every field is optional, so an empty body onboards a fresh student.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.tutor.Onboard(c.Request.Context(), req.StudentID, req.Name)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// GET /api/students/:id/history
func (h *StudentHandler) History(c *gin.Context) {
	events, err := h.tutor.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"events": events})
}

// GET /api/students/:id/progress
func (h *StudentHandler) Progress(c *gin.Context) {
	p, err := h.tutor.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, p)
}

// GET /api/students/:id/queue
func (h *StudentHandler) Queue(c *gin.Context) {
	q, err := h.tutor.DailyQueue(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, q)
}

// GET /api/students/:id/graph?mode=progressive&parent=<kp>
func (h *StudentHandler) Graph(c *gin.Context) {
	switch mode := c.DefaultQuery("mode", "full"); mode {
	case "full":
		view, err := h.tutor.GraphView(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		RespondOK(c, view)
	case "progressive":
		nodes, err := h.tutor.ProgressiveView(c.Request.Context(), c.Param("id"), c.Query("parent"))
		if err != nil {
			respondServiceError(c, err)
			return
		}
		RespondOK(c, gin.H{"parent": c.Query("parent"), "nodes": nodes})
	default:
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("unknown graph mode %q", mode))
	}
}

// GET /api/students/:id/exercises/:exerciseId
func (h *StudentHandler) Exercise(c *gin.Context) {
	ex, err := h.tutor.Exercise(c.Request.Context(), c.Param("id"), c.Param("exerciseId"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, ex)
}

// POST /api/students/:id/attempts
// body: { "exercise_id": "...", "answer": "...", "time_spent_seconds": 42, "assignment_id": null }
func (h *StudentHandler) SubmitAttempt(c *gin.Context) {
	var req struct {
		ExerciseID       string  `json:"exercise_id" binding:"required"`
		Answer           string  `json:"answer"`
		TimeSpentSeconds float64 `json:"time_spent_seconds"`
		AssignmentID     *string `json:"assignment_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	res, err := h.tutor.Submit(c.Request.Context(), tutor.SubmitRequest{
		StudentID:    c.Param("id"),
		ExerciseID:   req.ExerciseID,
		Answer:       req.Answer,
		TimeSpent:    time.Duration(req.TimeSpentSeconds * float64(time.Second)),
		AssignmentID: req.AssignmentID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, res)
}

// POST /api/students/:id/audit
func (h *StudentHandler) Audit(c *gin.Context) {
	report, err := h.tutor.Audit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	repaired := make([]mastery.Record, 0, len(report.Repaired))
	for _, tr := range report.Repaired {
		repaired = append(repaired, tr.After)
	}
	unlocked := report.Unlocked
	if unlocked == nil {
		unlocked = []string{}
	}
	RespondOK(c, gin.H{"repaired": repaired, "unlocked": unlocked})
}

type LeaderboardHandler struct {
	tutor Tutor
}

func NewLeaderboardHandler(t Tutor) *LeaderboardHandler {
	return &LeaderboardHandler{tutor: t}
}

// GET /api/leaderboard?limit=10
func (h *LeaderboardHandler) Top(c *gin.Context) {
	limit := defaultLeaderboardLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("limit: %w", err))
			return
		}
		limit = n
	}
	entries, err := h.tutor.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}
