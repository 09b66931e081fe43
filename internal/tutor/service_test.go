package tutor

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/mathlab/internal/exercise"
	"github.com/abhisek/mathlab/internal/graph"
	"github.com/abhisek/mathlab/internal/logger"
	"github.com/abhisek/mathlab/internal/mastery"
	"github.com/abhisek/mathlab/internal/rewards"
	"github.com/abhisek/mathlab/internal/store"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc   *Service
	store *store.Store
	clock time.Time
}

// newTestEnv builds a service over the chain a -> b -> c plus an isolated
// root d without exercises.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	g, err := graph.New([]graph.KnowledgePoint{
		{ID: "a", Title: "Alpha", Layer: 0},
		{ID: "b", Title: "Beta", Layer: 1, Prerequisites: []string{"a"}},
		{ID: "c", Title: "Gamma", Layer: 2, Prerequisites: []string{"b"}},
		{ID: "d", Title: "Delta", Layer: 0},
	})
	require.NoError(t, err)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	env := &testEnv{store: st, clock: t0}
	clock := func() time.Time { return env.clock }
	engine := mastery.NewEngine(g, mastery.DefaultConfig(), logger.Nop(), mastery.WithClock(clock))
	env.svc = New(st, g, engine, logger.Nop(), Options{Clock: clock})

	require.NoError(t, env.svc.SeedExercises(context.Background(), []exercise.Exercise{
		{ID: "a-1", KnowledgePointID: "a", Question: "1+1", Answer: "2", Hint: "count", Difficulty: 3},
		{ID: "a-2", KnowledgePointID: "a", Question: "2+2", Answer: "4", Difficulty: 1},
		{ID: "b-1", KnowledgePointID: "b", Question: "3+3", Answer: "6", Difficulty: 2},
		{ID: "c-1", KnowledgePointID: "c", Question: "4+4", Answer: "8", Difficulty: 2},
	}))
	return env
}

func (e *testEnv) submit(t *testing.T, student, exID, answer string) SubmitResult {
	t.Helper()
	e.clock = e.clock.Add(time.Minute)
	res, err := e.svc.Submit(context.Background(), SubmitRequest{
		StudentID:  student,
		ExerciseID: exID,
		Answer:     answer,
		TimeSpent:  30 * time.Second,
	})
	require.NoError(t, err)
	return res
}

func TestOnboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Onboard(ctx, "s1", "Sam")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.ElementsMatch(t, []string{"a", "d"}, res.Unlocked)

	again, err := env.svc.Onboard(ctx, "s1", "Sam")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Empty(t, again.Unlocked)

	anon, err := env.svc.Onboard(ctx, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, anon.StudentID)
}

func TestSubmit_RewardsAndProgression(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "Sam")
	require.NoError(t, err)

	wrong := env.submit(t, "s1", "a-1", "3")
	assert.False(t, wrong.IsCorrect)
	assert.Equal(t, "2", wrong.CorrectAnswer)
	assert.Equal(t, "count", wrong.Hint)
	assert.Zero(t, wrong.XPEarned)
	assert.Equal(t, 1, wrong.AttemptNumber)
	assert.Equal(t, mastery.StatusAvailable, wrong.Status)

	right := env.submit(t, "s1", "a-1", " 2 ")
	assert.True(t, right.IsCorrect)
	assert.Empty(t, right.CorrectAnswer)
	assert.Equal(t, 2, right.AttemptNumber)
	assert.Equal(t, 25, right.XPEarned, "30 * 0.7 * 1.2")
	assert.Zero(t, right.CoinsEarned)
	assert.Equal(t, mastery.StatusInProgress, right.Status)
	assert.Equal(t, 50.0, right.MasteryLevel)

	first := env.submit(t, "s1", "a-2", "4")
	assert.Equal(t, 12, first.XPEarned)
	assert.Equal(t, 1, first.CoinsEarned)
	assert.Equal(t, mastery.StatusMastered, first.Status)
	assert.Equal(t, []string{"b"}, first.Unlocked)
	require.NotNil(t, first.Badge)
	assert.Equal(t, "a", first.Badge.KnowledgePointID)

	again := env.submit(t, "s1", "a-2", "4")
	assert.Nil(t, again.Badge, "badge only on the mastering attempt")
	assert.Empty(t, again.Unlocked)

	p, err := env.svc.Progress(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 25+12+8, p.XP)
	assert.Equal(t, 1, p.Coins)
	assert.Equal(t, 4, p.Attempts)
	assert.Equal(t, 3, p.Correct)
	assert.Equal(t, 1, p.Mastered)
	assert.Equal(t, 1, p.Rank)
}

func TestSubmit_FirstAttemptReward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)

	res := env.submit(t, "s1", "a-1", "2")
	assert.Equal(t, rewards.Reward{XP: 36, Coins: 3}, rewards.Reward{XP: res.XPEarned, Coins: res.CoinsEarned})

	slow, err := env.svc.Submit(ctx, SubmitRequest{StudentID: "s1", ExerciseID: "a-1", Answer: "2", TimeSpent: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 21, slow.XPEarned)
	assert.Zero(t, slow.CoinsEarned)
}

func TestSubmit_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)

	tests := []struct {
		name string
		req  SubmitRequest
		want error
	}{
		{"missing student id", SubmitRequest{ExerciseID: "a-1"}, ErrInvalidInput},
		{"negative time", SubmitRequest{StudentID: "s1", ExerciseID: "a-1", TimeSpent: -time.Second}, ErrInvalidInput},
		{"unknown student", SubmitRequest{StudentID: "ghost", ExerciseID: "a-1", Answer: "2"}, ErrNotFound},
		{"unknown exercise", SubmitRequest{StudentID: "s1", ExerciseID: "zz", Answer: "2"}, ErrNotFound},
		{"locked topic", SubmitRequest{StudentID: "s1", ExerciseID: "b-1", Answer: "6"}, ErrTopicLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Submit(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	attempts, err := env.store.Attempts.ListForStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, attempts, "rejected submissions leave no attempts")
}

func TestExercise(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)

	v, err := env.svc.Exercise(ctx, "s1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "1+1", v.Question)
	assert.Equal(t, mastery.StatusAvailable, v.Status)
	assert.False(t, v.Completed)

	env.submit(t, "s1", "a-1", "2")
	v, err = env.svc.Exercise(ctx, "s1", "a-1")
	require.NoError(t, err)
	assert.True(t, v.Completed)

	_, err = env.svc.Exercise(ctx, "s1", "c-1")
	assert.ErrorIs(t, err, ErrTopicLocked)
	assert.ErrorContains(t, err, "requires Beta")
}

func TestDailyQueue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)

	q, err := env.svc.DailyQueue(ctx, "s1")
	require.NoError(t, err)
	ids := make([]string, 0, len(q.Items))
	for _, it := range q.Items {
		ids = append(ids, it.ID)
		assert.False(t, it.IsReview)
	}
	assert.Equal(t, []string{"a-2", "a-1"}, ids, "easiest first; d has no exercises and b is locked")

	env.submit(t, "s1", "a-1", "2")
	env.submit(t, "s1", "a-2", "4")

	// Mastered a is due for review a day later; b is new.
	env.clock = env.clock.Add(25 * time.Hour)
	q, err = env.svc.DailyQueue(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, q.Summary.NewCount)
	assert.Equal(t, 2, q.Summary.ReviewCount)
	var review int
	for _, it := range q.Items {
		if it.IsReview {
			review++
			assert.Equal(t, "a", it.KnowledgePointID)
			assert.True(t, it.Completed)
		}
	}
	assert.Equal(t, 2, review)
}

func TestGraphViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)

	view, err := env.svc.GraphView(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, view.Nodes, 4)
	assert.Len(t, view.Edges, 2)
	statuses := map[string]mastery.Status{}
	for _, n := range view.Nodes {
		statuses[n.ID] = n.Status
	}
	assert.Equal(t, mastery.StatusAvailable, statuses["a"])
	assert.Equal(t, mastery.StatusLocked, statuses["b"], "absent records show as locked")

	roots, err := env.svc.ProgressiveView(ctx, "s1", "")
	require.NoError(t, err)
	require.Len(t, roots, 2)
	for _, n := range roots {
		assert.Equal(t, n.ID == "a", n.HasChildren)
	}

	children, err := env.svc.ProgressiveView(ctx, "s1", "b")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "c", children[0].ID)
	assert.False(t, children[0].HasChildren)

	_, err = env.svc.ProgressiveView(ctx, "s1", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAudit_RepairsLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)
	env.submit(t, "s1", "a-1", "2")
	env.submit(t, "s1", "a-2", "4")

	// Simulate an interrupted cascade: b was never unlocked.
	_, err = env.store.DB().Exec(`DELETE FROM mastery_records WHERE student_id = ? AND knowledge_point_id = ?`, "s1", "b")
	require.NoError(t, err)

	report, err := env.svc.Audit(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, report.Unlocked)

	report, err = env.svc.Audit(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, report.Unlocked)
	assert.Empty(t, report.Repaired)
}

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, id := range []string{"s1", "s2"} {
		_, err := env.svc.Onboard(ctx, id, "")
		require.NoError(t, err)
	}
	env.submit(t, "s1", "a-2", "4")
	env.submit(t, "s2", "a-1", "2")

	top, err := env.svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "s2", top[0].StudentID)
	assert.Equal(t, 36, top[0].XP)

	_, err = env.svc.Leaderboard(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWarmLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)
	env.submit(t, "s1", "a-1", "2")

	// A fresh service over the same store starts with an empty board.
	engine := mastery.NewEngine(env.svc.Graph(), mastery.DefaultConfig(), logger.Nop())
	fresh := New(env.store, env.svc.Graph(), engine, logger.Nop(), Options{})
	top, err := fresh.Leaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, top)

	require.NoError(t, fresh.WarmLeaderboard(ctx))
	top, err = fresh.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 36, top[0].XP)
}

func TestSeedExercises_RejectsUnknownTopic(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.SeedExercises(context.Background(), []exercise.Exercise{
		{ID: "x-1", KnowledgePointID: "x", Question: "q", Answer: "a", Difficulty: 1},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	err = env.svc.SeedExercises(context.Background(), []exercise.Exercise{
		{ID: "a-9", KnowledgePointID: "a", Question: "q", Answer: "a", Difficulty: 9},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)
	env.submit(t, "s1", "a-1", "2")
	env.submit(t, "s1", "a-2", "4")

	events, err := env.svc.History(ctx, "s1")
	require.NoError(t, err)

	var got []string
	for _, e := range events {
		got = append(got, e.KnowledgePointID+":"+e.From+">"+e.To+":"+e.Reason)
	}
	assert.Equal(t, []string{
		"a:absent>available:onboard",
		"d:absent>available:onboard",
		"a:available>in_progress:attempt",
		"a:in_progress>mastered:attempt",
		"b:absent>available:unlock",
	}, got)
	assert.InDelta(t, 100, events[3].MasteryLevel, 1e-9)

	_, err = env.svc.History(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmit_ConcurrentSiblingTopics(t *testing.T) {
	g, err := graph.New([]graph.KnowledgePoint{
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B", Layer: 1, Prerequisites: []string{"a"}},
		{ID: "c", Title: "C", Layer: 1, Prerequisites: []string{"a"}},
		{ID: "d", Title: "D", Layer: 2, Prerequisites: []string{"b", "c"}},
	})
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "mathlab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	engine := mastery.NewEngine(g, mastery.DefaultConfig(), logger.Nop(), mastery.WithClock(func() time.Time { return t0 }))
	svc := New(st, g, engine, logger.Nop(), Options{Clock: func() time.Time { return t0 }})

	ctx := context.Background()
	exs := []exercise.Exercise{{ID: "a-1", KnowledgePointID: "a", Question: "q", Answer: "1", Difficulty: 1}}
	for _, kp := range []string{"b", "c"} {
		for i := 1; i <= 3; i++ {
			exs = append(exs, exercise.Exercise{
				ID: fmt.Sprintf("%s-%d", kp, i), KnowledgePointID: kp, Question: "q", Answer: "1", Difficulty: 2,
			})
		}
	}
	exs = append(exs, exercise.Exercise{ID: "d-1", KnowledgePointID: "d", Question: "q", Answer: "1", Difficulty: 3})
	require.NoError(t, svc.SeedExercises(ctx, exs))

	_, err = svc.Onboard(ctx, "s1", "")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, SubmitRequest{StudentID: "s1", ExerciseID: "a-1", Answer: "1"})
	require.NoError(t, err)

	// Every b and c exercise is answered twice, all at once.
	var eg errgroup.Group
	for _, ex := range exs[1:7] {
		for range 2 {
			eg.Go(func() error {
				_, err := svc.Submit(ctx, SubmitRequest{StudentID: "s1", ExerciseID: ex.ID, Answer: "1"})
				return err
			})
		}
	}
	require.NoError(t, eg.Wait())

	recs, err := st.Mastery.List(ctx, "s1")
	require.NoError(t, err)
	var ids []string
	for _, rec := range recs {
		ids = append(ids, rec.KnowledgePointID)
		correct, err := st.Attempts.DistinctCorrect(ctx, "s1", rec.KnowledgePointID)
		require.NoError(t, err)
		total, err := st.Exercises.CountByKnowledgePoint(ctx, rec.KnowledgePointID)
		require.NoError(t, err)
		assert.InDelta(t, float64(correct)/float64(total)*100, rec.MasteryLevel, 1e-9, rec.KnowledgePointID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)

	status, err := svc.statusMap(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, mastery.StatusMastered, status["b"])
	assert.Equal(t, mastery.StatusMastered, status["c"])
	assert.Equal(t, mastery.StatusAvailable, status["d"])

	events, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	unlocksOfD := 0
	for _, e := range events {
		if e.KnowledgePointID == "d" && e.To == "available" {
			unlocksOfD++
		}
	}
	assert.Equal(t, 1, unlocksOfD)

	report, err := svc.Audit(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, report.Repaired)
	assert.Empty(t, report.Unlocked)
}
