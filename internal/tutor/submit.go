package tutor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/mathlab/internal/exercise"
	"github.com/abhisek/mathlab/internal/mastery"
	"github.com/abhisek/mathlab/internal/rewards"
	"github.com/abhisek/mathlab/internal/store"
)

// OnboardResult describes a newly onboarded student.
type OnboardResult struct {
	StudentID string   `json:"student_id"`
	Name      string   `json:"name"`
	Created   bool     `json:"created"`
	Unlocked  []string `json:"unlocked"`
}

// Onboard creates the student and makes every root knowledge point
// available. An empty studentID gets a fresh UUID. Onboarding an existing
// student only re-opens missing roots.
func (s *Service) Onboard(ctx context.Context, studentID, name string) (OnboardResult, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		studentID = uuid.New().String()
	}

	unlock, err := s.lockStudent(ctx, studentID)
	if err != nil {
		return OnboardResult{}, err
	}
	defer unlock()

	res := OnboardResult{StudentID: studentID, Name: name}
	err = s.store.WithinTx(ctx, func(ctx context.Context, r store.Repos) error {
		created, err := r.Students.Create(ctx, store.Student{ID: studentID, Name: name, CreatedAt: s.now()})
		if err != nil {
			return err
		}
		res.Created = created

		repos := mastery.ReposFrom(r)
		for _, root := range s.graph.Roots() {
			changed, err := s.engine.Unlock(ctx, repos, studentID, root.ID, mastery.ReasonOnboard)
			if err != nil {
				return err
			}
			if changed {
				res.Unlocked = append(res.Unlocked, root.ID)
			}
		}
		return nil
	})
	if err != nil {
		return OnboardResult{}, fmt.Errorf("onboard %s: %w", studentID, err)
	}

	s.log.Info("student onboarded", "student_id", studentID, "created", res.Created, "unlocked", len(res.Unlocked))
	return res, nil
}

// SubmitRequest is one answer submission.
type SubmitRequest struct {
	StudentID    string
	ExerciseID   string
	Answer       string
	TimeSpent    time.Duration
	AssignmentID *string
}

// SubmitResult is returned to the student after a submission.
type SubmitResult struct {
	AttemptID     string         `json:"attempt_id"`
	IsCorrect     bool           `json:"is_correct"`
	CorrectAnswer string         `json:"correct_answer,omitempty"`
	Hint          string         `json:"hint,omitempty"`
	XPEarned      int            `json:"xp_earned"`
	CoinsEarned   int            `json:"coins_earned"`
	AttemptNumber int            `json:"attempt_number"`
	MasteryLevel  float64        `json:"mastery_level"`
	Status        mastery.Status `json:"status"`
	Unlocked      []string       `json:"unlocked,omitempty"`
	Badge         *rewards.Badge `json:"badge,omitempty"`
}

// Submit checks an answer, logs the attempt, awards rewards and advances
// mastery. The whole submission runs under the student's lock in a single
// transaction, so a failure leaves no partial state behind.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if req.StudentID == "" || req.ExerciseID == "" {
		return SubmitResult{}, fmt.Errorf("%w: student id and exercise id are required", ErrInvalidInput)
	}
	if req.TimeSpent < 0 {
		return SubmitResult{}, fmt.Errorf("%w: negative time spent", ErrInvalidInput)
	}

	unlock, err := s.lockStudent(ctx, req.StudentID)
	if err != nil {
		return SubmitResult{}, err
	}
	defer unlock()

	log := s.log.With("student_id", req.StudentID, "exercise_id", req.ExerciseID)

	var res SubmitResult
	err = s.store.WithinTx(ctx, func(ctx context.Context, r store.Repos) error {
		if _, err := r.Students.Get(ctx, req.StudentID); err != nil {
			return err
		}
		ex, err := r.Exercises.Get(ctx, req.ExerciseID)
		if err != nil {
			return err
		}
		if err := s.checkAccess(ctx, r, req.StudentID, ex); err != nil {
			return err
		}

		prior, err := r.Attempts.CountForExercise(ctx, req.StudentID, ex.ID)
		if err != nil {
			return err
		}
		attemptNumber := prior + 1
		correct := exercise.CheckAnswer(req.Answer, ex.Answer)
		reward := rewards.ForAttempt(correct, ex.Difficulty, attemptNumber, req.TimeSpent, s.timeBonusUnder)

		attempt, err := r.Attempts.Append(ctx, store.Attempt{
			StudentID:    req.StudentID,
			ExerciseID:   ex.ID,
			Answer:       req.Answer,
			IsCorrect:    correct,
			XPEarned:     reward.XP,
			CoinsEarned:  reward.Coins,
			TimeSpent:    req.TimeSpent,
			AssignmentID: req.AssignmentID,
			CreatedAt:    s.now(),
		})
		if err != nil {
			return err
		}

		out, err := s.engine.RecordAttempt(ctx, mastery.ReposFrom(r), req.StudentID, ex.KnowledgePointID, correct)
		if err != nil {
			return err
		}

		res = SubmitResult{
			AttemptID:     attempt.ID,
			IsCorrect:     correct,
			XPEarned:      reward.XP,
			CoinsEarned:   reward.Coins,
			AttemptNumber: attemptNumber,
			MasteryLevel:  out.Record.Level,
			Status:        out.Record.Status,
			Unlocked:      out.Unlocked,
		}
		if !correct {
			res.CorrectAnswer = ex.Answer
			res.Hint = ex.Hint
		}
		if out.Transition != nil && out.Transition.Mastered {
			res.Badge = s.badges.ForMastery(ex.KnowledgePointID)
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit: %w", mapStoreErr(err))
	}

	log.Info("attempt recorded",
		"correct", res.IsCorrect,
		"attempt", res.AttemptNumber,
		"xp", res.XPEarned,
		"status", res.Status.String(),
		"unlocked", len(res.Unlocked))

	if res.XPEarned > 0 {
		// The submission is committed; the leaderboard is a derived view.
		if err := s.board.Add(ctx, req.StudentID, res.XPEarned); err != nil {
			log.Warn("leaderboard update failed", "error", err)
		}
	}
	return res, nil
}

// checkAccess fails with ErrTopicLocked unless the exercise's knowledge
// point is reachable for the student.
func (s *Service) checkAccess(ctx context.Context, r store.Repos, studentID string, ex *exercise.Exercise) error {
	if !s.graph.Has(ex.KnowledgePointID) {
		return fmt.Errorf("%w: exercise %q belongs to unknown knowledge point %q", ErrNotFound, ex.ID, ex.KnowledgePointID)
	}
	rec, err := r.Mastery.Get(ctx, studentID, ex.KnowledgePointID)
	if err != nil {
		return err
	}
	if rec == nil || rec.Status == store.StatusLocked {
		return fmt.Errorf("%w: %s requires %s", ErrTopicLocked, ex.KnowledgePointID, s.prerequisiteTitles(ex.KnowledgePointID))
	}
	return nil
}

func (s *Service) prerequisiteTitles(kpID string) string {
	var titles []string
	for _, p := range s.graph.Prerequisites(kpID) {
		titles = append(titles, p.Title)
	}
	if len(titles) == 0 {
		return "nothing"
	}
	return strings.Join(titles, ", ")
}
