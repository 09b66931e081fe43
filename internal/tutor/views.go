package tutor

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/mathlab/internal/exercise"
	"github.com/abhisek/mathlab/internal/graph"
	"github.com/abhisek/mathlab/internal/leaderboard"
	"github.com/abhisek/mathlab/internal/mastery"
	"github.com/abhisek/mathlab/internal/selector"
	"github.com/abhisek/mathlab/internal/store"
)

// ExerciseView is a single exercise as shown to a student. The answer is
// never included.
type ExerciseView struct {
	ID               string         `json:"id"`
	KnowledgePointID string         `json:"knowledge_point_id"`
	Question         string         `json:"question"`
	Difficulty       int            `json:"difficulty"`
	Hint             string         `json:"hint,omitempty"`
	Status           mastery.Status `json:"status"`
	Completed        bool           `json:"completed"`
}

// Exercise returns one exercise if the student has unlocked its topic.
func (s *Service) Exercise(ctx context.Context, studentID, exerciseID string) (ExerciseView, error) {
	if _, err := s.requireStudent(ctx, studentID); err != nil {
		return ExerciseView{}, err
	}
	ex, err := s.store.Exercises.Get(ctx, exerciseID)
	if err != nil {
		return ExerciseView{}, mapStoreErr(err)
	}
	if err := s.checkAccess(ctx, s.store.Repos, studentID, ex); err != nil {
		return ExerciseView{}, mapStoreErr(err)
	}

	rec, err := s.engine.Get(ctx, mastery.ReposFrom(s.store.Repos), studentID, ex.KnowledgePointID)
	if err != nil {
		return ExerciseView{}, err
	}
	solved, err := s.store.Attempts.CorrectExerciseIDs(ctx, studentID)
	if err != nil {
		return ExerciseView{}, err
	}

	return ExerciseView{
		ID:               ex.ID,
		KnowledgePointID: ex.KnowledgePointID,
		Question:         ex.Question,
		Difficulty:       ex.Difficulty,
		Hint:             ex.Hint,
		Status:           rec.Status,
		Completed:        solved[ex.ID],
	}, nil
}

// DailyQueue builds the student's queue of new and review exercises.
func (s *Service) DailyQueue(ctx context.Context, studentID string) (selector.Queue, error) {
	if _, err := s.requireStudent(ctx, studentID); err != nil {
		return selector.Queue{}, err
	}
	recs, err := s.records(ctx, studentID)
	if err != nil {
		return selector.Queue{}, fmt.Errorf("daily queue: %w", err)
	}

	exs := make(map[string][]exercise.Exercise)
	for _, rec := range recs {
		if rec.Status == mastery.StatusLocked {
			continue
		}
		list, err := s.store.Exercises.ListByKnowledgePoint(ctx, rec.KnowledgePointID)
		if err != nil {
			return selector.Queue{}, fmt.Errorf("daily queue: %w", err)
		}
		exs[rec.KnowledgePointID] = list
	}

	solved, err := s.store.Attempts.CorrectExerciseIDs(ctx, studentID)
	if err != nil {
		return selector.Queue{}, fmt.Errorf("daily queue: %w", err)
	}

	q := selector.Build(selector.Input{
		Graph:     s.graph,
		Records:   recs,
		Exercises: exs,
		Solved:    solved,
	}, s.selector, s.now())
	if q.Items == nil {
		q.Items = []selector.Item{}
	}
	return q, nil
}

// GraphNode is a knowledge point annotated with the student's status.
type GraphNode struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Layer  int            `json:"layer"`
	Status mastery.Status `json:"status"`
}

// GraphView is the whole knowledge graph from one student's perspective.
type GraphView struct {
	Nodes []GraphNode  `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// GraphView returns every node with the student's status (absent records show
// as locked) and every prerequisite edge.
func (s *Service) GraphView(ctx context.Context, studentID string) (GraphView, error) {
	if _, err := s.requireStudent(ctx, studentID); err != nil {
		return GraphView{}, err
	}
	statuses, err := s.statusMap(ctx, studentID)
	if err != nil {
		return GraphView{}, fmt.Errorf("graph view: %w", err)
	}

	view := GraphView{Nodes: []GraphNode{}, Edges: s.graph.Edges()}
	for _, kp := range s.graph.TopologicalOrder() {
		view.Nodes = append(view.Nodes, GraphNode{
			ID:     kp.ID,
			Title:  kp.Title,
			Layer:  kp.Layer,
			Status: statuses[kp.ID],
		})
	}
	if view.Edges == nil {
		view.Edges = []graph.Edge{}
	}
	return view, nil
}

// ProgressiveNode is a node of the progressive graph view.
type ProgressiveNode struct {
	GraphNode
	HasChildren bool `json:"has_children"`
}

// ProgressiveView returns the direct children of parentID, or the roots when
// parentID is empty, each flagged with whether it has children of its own.
func (s *Service) ProgressiveView(ctx context.Context, studentID, parentID string) ([]ProgressiveNode, error) {
	if _, err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	children, err := s.graph.Children(parentID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	statuses, err := s.statusMap(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("progressive view: %w", err)
	}

	out := make([]ProgressiveNode, 0, len(children))
	for _, kp := range children {
		out = append(out, ProgressiveNode{
			GraphNode: GraphNode{
				ID:     kp.ID,
				Title:  kp.Title,
				Layer:  kp.Layer,
				Status: statuses[kp.ID],
			},
			HasChildren: s.graph.HasChildren(kp.ID),
		})
	}
	return out, nil
}

// TopicProgress is one row of a progress report.
type TopicProgress struct {
	KnowledgePointID string         `json:"knowledge_point_id"`
	Title            string         `json:"title"`
	Layer            int            `json:"layer"`
	Status           mastery.Status `json:"status"`
	MasteryLevel     float64        `json:"mastery_level"`
	LastPracticed    *time.Time     `json:"last_practiced,omitempty"`
}

// Progress is a student's overall standing.
type Progress struct {
	StudentID string          `json:"student_id"`
	Name      string          `json:"name"`
	Topics    []TopicProgress `json:"topics"`
	Mastered  int             `json:"mastered"`
	XP        int             `json:"xp"`
	Coins     int             `json:"coins"`
	Attempts  int             `json:"attempts"`
	Correct   int             `json:"correct"`
	Rank      int             `json:"rank"`
}

// Progress reports every topic in topological order with totals.
func (s *Service) Progress(ctx context.Context, studentID string) (Progress, error) {
	st, err := s.requireStudent(ctx, studentID)
	if err != nil {
		return Progress{}, err
	}
	recs, err := s.records(ctx, studentID)
	if err != nil {
		return Progress{}, fmt.Errorf("progress: %w", err)
	}
	byID := make(map[string]mastery.Record, len(recs))
	for _, r := range recs {
		byID[r.KnowledgePointID] = r
	}

	totals, err := s.store.Attempts.Totals(ctx, studentID)
	if err != nil {
		return Progress{}, fmt.Errorf("progress: %w", err)
	}

	p := Progress{
		StudentID: st.ID,
		Name:      st.Name,
		XP:        totals.XP,
		Coins:     totals.Coins,
		Attempts:  totals.Attempts,
		Correct:   totals.Correct,
		Rank:      -1,
	}
	for _, kp := range s.graph.TopologicalOrder() {
		rec := byID[kp.ID]
		p.Topics = append(p.Topics, TopicProgress{
			KnowledgePointID: kp.ID,
			Title:            kp.Title,
			Layer:            kp.Layer,
			Status:           rec.Status,
			MasteryLevel:     rec.Level,
			LastPracticed:    rec.LastPracticed,
		})
		if rec.Status == mastery.StatusMastered {
			p.Mastered++
		}
	}

	if rank, err := s.board.Rank(ctx, studentID); err != nil {
		s.log.Warn("leaderboard rank failed", "student_id", studentID, "error", err)
	} else {
		p.Rank = rank
	}
	return p, nil
}

// Leaderboard returns the top n students by XP.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}
	entries, err := s.board.Top(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	if entries == nil {
		entries = []leaderboard.Entry{}
	}
	return entries, nil
}

// WarmLeaderboard loads every student's XP total into the board. Only
// meaningful for an empty in-process board after a restart.
func (s *Service) WarmLeaderboard(ctx context.Context) error {
	students, err := s.store.Students.List(ctx)
	if err != nil {
		return fmt.Errorf("warm leaderboard: %w", err)
	}
	for _, st := range students {
		totals, err := s.store.Attempts.Totals(ctx, st.ID)
		if err != nil {
			return fmt.Errorf("warm leaderboard: %w", err)
		}
		if totals.XP == 0 {
			continue
		}
		if err := s.board.Add(ctx, st.ID, totals.XP); err != nil {
			return fmt.Errorf("warm leaderboard: %w", err)
		}
	}
	return nil
}

// Audit re-derives the student's mastery from the attempt log and reruns
// every unlock cascade.
func (s *Service) Audit(ctx context.Context, studentID string) (mastery.HealReport, error) {
	if _, err := s.requireStudent(ctx, studentID); err != nil {
		return mastery.HealReport{}, err
	}

	unlock, err := s.lockStudent(ctx, studentID)
	if err != nil {
		return mastery.HealReport{}, err
	}
	defer unlock()

	var report mastery.HealReport
	err = s.store.WithinTx(ctx, func(ctx context.Context, r store.Repos) error {
		var err error
		report, err = s.engine.Heal(ctx, mastery.ReposFrom(r), studentID)
		return err
	})
	if err != nil {
		return mastery.HealReport{}, fmt.Errorf("audit %s: %w", studentID, err)
	}
	return report, nil
}

// HistoryEntry is one recorded mastery status change. From is "absent"
// when the topic had no record before it was unlocked.
type HistoryEntry struct {
	KnowledgePointID string    `json:"knowledge_point_id"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	Reason           string    `json:"reason"`
	MasteryLevel     float64   `json:"mastery_level"`
	At               time.Time `json:"at"`
}

// History returns the student's mastery transitions, oldest first.
func (s *Service) History(ctx context.Context, studentID string) ([]HistoryEntry, error) {
	if _, err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	events, err := s.store.Events.ListMastery(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", studentID, err)
	}
	out := make([]HistoryEntry, 0, len(events))
	for _, e := range events {
		out = append(out, HistoryEntry{
			KnowledgePointID: e.KnowledgePointID,
			From:             e.FromStatus,
			To:               e.ToStatus,
			Reason:           e.Reason,
			MasteryLevel:     e.MasteryLevel,
			At:               e.At,
		})
	}
	return out, nil
}

func (s *Service) statusMap(ctx context.Context, studentID string) (map[string]mastery.Status, error) {
	recs, err := s.records(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return mastery.StatusMap(recs), nil
}
