// Package api serves the tutoring operations over HTTP/JSON.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/abhisek/mathlab/internal/logger"
)

type RouterConfig struct {
	Log                *logger.Logger
	HealthHandler      *HealthHandler
	StudentHandler     *StudentHandler
	LeaderboardHandler *LeaderboardHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Students
		if cfg.StudentHandler != nil {
			api.POST("/students", cfg.StudentHandler.Onboard)
			students := api.Group("/students/:id")
			students.GET("/progress", cfg.StudentHandler.Progress)
			students.GET("/queue", cfg.StudentHandler.Queue)
			students.GET("/graph", cfg.StudentHandler.Graph)
			students.GET("/exercises/:exerciseId", cfg.StudentHandler.Exercise)
			students.POST("/attempts", cfg.StudentHandler.SubmitAttempt)
			students.POST("/audit", cfg.StudentHandler.Audit)
			students.GET("/history", cfg.StudentHandler.History)
		}

		// Leaderboard
		if cfg.LeaderboardHandler != nil {
			api.GET("/leaderboard", cfg.LeaderboardHandler.Top)
		}
	}

	return r
}

// New wires every handler around one tutor service. ping backs the
// healthcheck and may be nil.
func New(t Tutor, ping PingFunc, log *logger.Logger) *gin.Engine {
	return NewRouter(RouterConfig{
		Log:                log.With("handler", "api"),
		HealthHandler:      NewHealthHandler(ping),
		StudentHandler:     NewStudentHandler(t),
		LeaderboardHandler: NewLeaderboardHandler(t),
	})
}
