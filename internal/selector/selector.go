// Package selector builds a student's daily exercise queue by blending new
// material from reachable topics with review of topics due for refresh.
package selector

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/abhisek/mathlab/internal/exercise"
	"github.com/abhisek/mathlab/internal/graph"
	"github.com/abhisek/mathlab/internal/mastery"
)

// Config bounds the queue.
type Config struct {
	MaxShown     int           // items returned
	MaxPool      int           // candidates considered before sorting
	NewTopics    int           // topics feeding the new-material stream
	ReviewTopics int           // topics feeding the review stream
	ReviewAfter  time.Duration // a mastered topic is due once practiced longer ago than this
}

// DefaultConfig returns the standard queue parameters.
func DefaultConfig() Config {
	return Config{
		MaxShown:     5,
		MaxPool:      10,
		NewTopics:    3,
		ReviewTopics: 2,
		ReviewAfter:  24 * time.Hour,
	}
}

// Validate checks that every bound is positive.
func (c Config) Validate() error {
	switch {
	case c.MaxShown <= 0:
		return fmt.Errorf("max shown must be positive, got %d", c.MaxShown)
	case c.MaxPool < c.MaxShown:
		return fmt.Errorf("max pool %d smaller than max shown %d", c.MaxPool, c.MaxShown)
	case c.NewTopics < 0 || c.ReviewTopics < 0:
		return fmt.Errorf("topic caps must not be negative")
	case c.ReviewAfter <= 0:
		return fmt.Errorf("review threshold must be positive, got %s", c.ReviewAfter)
	}
	return nil
}

// Input is the student state the queue is built from.
type Input struct {
	Graph   *graph.Graph
	Records []mastery.Record
	// Exercises maps a knowledge point to its exercises in presentation order.
	Exercises map[string][]exercise.Exercise
	// Solved holds the exercises the student has answered correctly before.
	Solved map[string]bool
}

// Item is one queued exercise.
type Item struct {
	ID               string `json:"id"`
	KnowledgePointID string `json:"knowledge_point_id"`
	Question         string `json:"question"`
	Difficulty       int    `json:"difficulty"`
	Hint             string `json:"hint,omitempty"`
	Completed        bool   `json:"completed"`
	IsReview         bool   `json:"is_review"`
}

// Summary counts the shown items per stream.
type Summary struct {
	NewCount    int `json:"new_count"`
	ReviewCount int `json:"review_count"`
}

// Queue is the daily queue.
type Queue struct {
	Items   []Item  `json:"items"`
	Summary Summary `json:"summary"`
}

// Build assembles the queue. It is a pure function of its inputs.
//
// Items are ordered incomplete before complete, then new before review, with
// ties kept in stream order. When any review material is due, at least one
// review item is kept both in the pool and in the shown items.
func Build(in Input, cfg Config, now time.Time) Queue {
	newTopics := newStream(in, cfg.NewTopics)
	reviewTopics := reviewStream(in, cfg.ReviewTopics, cfg.ReviewAfter, now)

	newItems := items(in, newTopics, false)
	reviewItems := items(in, reviewTopics, true)

	reserve := min(1, len(reviewItems))
	newTake := min(len(newItems), cfg.MaxPool-reserve)
	reviewTake := min(len(reviewItems), cfg.MaxPool-newTake)

	pool := make([]Item, 0, newTake+reviewTake)
	pool = append(pool, newItems[:newTake]...)
	pool = append(pool, reviewItems[:reviewTake]...)

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Completed != pool[j].Completed {
			return !pool[i].Completed
		}
		return !pool[i].IsReview && pool[j].IsReview
	})

	shown := pool
	if len(shown) > cfg.MaxShown {
		shown = slices.Clone(pool[:cfg.MaxShown])
		if reserve > 0 && !slices.ContainsFunc(shown, isReview) {
			// The first review item sorts after everything shown, so putting
			// it last keeps the order.
			i := slices.IndexFunc(pool, isReview)
			shown[len(shown)-1] = pool[i]
		}
	}

	q := Queue{Items: shown}
	for _, it := range shown {
		if it.IsReview {
			q.Summary.ReviewCount++
		} else {
			q.Summary.NewCount++
		}
	}
	return q
}

func isReview(it Item) bool { return it.IsReview }

// newStream returns reachable, unmastered topics with exercises, in
// topological order.
func newStream(in Input, limit int) []string {
	statuses := mastery.StatusMap(in.Records)
	var out []string
	for _, kp := range in.Graph.TopologicalOrder() {
		if len(out) >= limit {
			break
		}
		s, ok := statuses[kp.ID]
		if !ok || (s != mastery.StatusAvailable && s != mastery.StatusInProgress) {
			continue
		}
		if len(in.Exercises[kp.ID]) == 0 {
			continue
		}
		out = append(out, kp.ID)
	}
	return out
}

// reviewStream returns mastered topics last practiced more than reviewAfter
// ago, oldest first. A topic never practiced counts as the oldest.
func reviewStream(in Input, limit int, reviewAfter time.Duration, now time.Time) []string {
	var due []mastery.Record
	for _, rec := range in.Records {
		if rec.Status != mastery.StatusMastered || len(in.Exercises[rec.KnowledgePointID]) == 0 {
			continue
		}
		if rec.LastPracticed != nil && now.Sub(*rec.LastPracticed) <= reviewAfter {
			continue
		}
		due = append(due, rec)
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i].LastPracticed, due[j].LastPracticed
		switch {
		case a == nil && b == nil:
		case a == nil:
			return true
		case b == nil:
			return false
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return in.Graph.TopoIndex(due[i].KnowledgePointID) < in.Graph.TopoIndex(due[j].KnowledgePointID)
	})

	out := make([]string, 0, min(limit, len(due)))
	for _, rec := range due {
		if len(out) >= limit {
			break
		}
		out = append(out, rec.KnowledgePointID)
	}
	return out
}

func items(in Input, topics []string, review bool) []Item {
	var out []Item
	for _, kpID := range topics {
		for _, ex := range in.Exercises[kpID] {
			out = append(out, Item{
				ID:               ex.ID,
				KnowledgePointID: kpID,
				Question:         ex.Question,
				Difficulty:       ex.Difficulty,
				Hint:             ex.Hint,
				Completed:        in.Solved[ex.ID],
				IsReview:         review,
			})
		}
	}
	return out
}
