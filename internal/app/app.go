// Package app wires configuration, storage, the knowledge graph and the
// tutoring service into one runnable unit shared by every command.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/abhisek/mathlab/internal/api"
	"github.com/abhisek/mathlab/internal/config"
	"github.com/abhisek/mathlab/internal/graph"
	"github.com/abhisek/mathlab/internal/leaderboard"
	"github.com/abhisek/mathlab/internal/lock"
	"github.com/abhisek/mathlab/internal/logger"
	"github.com/abhisek/mathlab/internal/mastery"
	"github.com/abhisek/mathlab/internal/store"
	"github.com/abhisek/mathlab/internal/tutor"
)

const redisPingTimeout = 3 * time.Second

// Options holds the values resolved outside the config file.
type Options struct {
	DBPath string
	// Log overrides the logger built from cfg.Env.
	Log *logger.Logger
	// Clock overrides time.Now in the engine and the service.
	Clock func() time.Time
}

// App is the assembled application.
type App struct {
	Cfg        *config.Config
	Log        *logger.Logger
	Store      *store.Store
	Curriculum *graph.Curriculum
	Engine     *mastery.Engine
	Tutor      *tutor.Service

	redis *redis.Client
}

// New opens the store, loads the curriculum and builds the service. Redis
// backs the per-student lock and the leaderboard when configured; otherwise
// both stay in-process.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		var err error
		log, err = logger.New(cfg.Env)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	cur, err := loadCurriculum(cfg.Curriculum.Path)
	if err != nil {
		return nil, err
	}

	mc, err := cfg.MasteryConfig()
	if err != nil {
		return nil, fmt.Errorf("progression config: %w", err)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{Cfg: cfg, Log: log, Store: st, Curriculum: cur}

	var engineOpts []mastery.Option
	if opts.Clock != nil {
		engineOpts = append(engineOpts, mastery.WithClock(opts.Clock))
	}
	a.Engine = mastery.NewEngine(cur.Graph, mc, log, engineOpts...)

	svcOpts := tutor.Options{
		Selector:       cfg.SelectorConfig(),
		TimeBonusUnder: cfg.Rewards.TimeBonusUnder,
		Clock:          opts.Clock,
	}
	if cfg.Redis.Enabled() {
		if err := a.connectRedis(ctx); err != nil {
			a.Close()
			return nil, err
		}
		svcOpts.Locker = lock.NewRedis(a.redis, cfg.Redis.Prefix)
		svcOpts.Board = leaderboard.NewRedis(a.redis, cfg.Redis.Prefix+":leaderboard")
	}
	a.Tutor = tutor.New(st, cur.Graph, a.Engine, log, svcOpts)

	log.Info("app initialized",
		"db", opts.DBPath,
		"knowledge_points", cur.Graph.Len(),
		"exercises", len(cur.Exercises),
		"redis", cfg.Redis.Enabled())
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) error {
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.Cfg.Redis.Addr,
		Password: a.Cfg.Redis.Password,
		DB:       a.Cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := a.redis.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect redis %s: %w", a.Cfg.Redis.Addr, err)
	}
	return nil
}

// SeedCurriculum upserts every curriculum exercise into the store.
func (a *App) SeedCurriculum(ctx context.Context) error {
	return a.Tutor.SeedExercises(ctx, a.Curriculum.Exercises)
}

// Router returns the HTTP handler for the service.
func (a *App) Router() *gin.Engine {
	return api.New(a.Tutor, a.Store.DB().PingContext, a.Log)
}

// Close releases the store and the Redis client.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warn("close redis", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("close store", "error", err)
		}
	}
	a.Log.Sync()
}

func loadCurriculum(path string) (*graph.Curriculum, error) {
	if path == "" {
		cur, err := graph.DefaultCurriculum()
		if err != nil {
			return nil, fmt.Errorf("load default curriculum: %w", err)
		}
		return cur, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open curriculum: %w", err)
	}
	defer f.Close()
	cur, err := graph.LoadCurriculum(f)
	if err != nil {
		return nil, fmt.Errorf("load curriculum %s: %w", path, err)
	}
	return cur, nil
}
