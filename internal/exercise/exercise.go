package exercise

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty bounds. Rewards scale linearly with difficulty.
const (
	MinDifficulty = 1
	MaxDifficulty = 4
)

// ValidDifficulty reports whether d is a known exercise difficulty.
func ValidDifficulty(d int) bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}

// Exercise is a single question attached to exactly one knowledge point.
type Exercise struct {
	ID               string    `json:"id"`
	KnowledgePointID string    `json:"knowledge_point_id"`
	Question         string    `json:"question"`
	Answer           string    `json:"answer"`
	Hint             string    `json:"hint,omitempty"`
	Difficulty       int       `json:"difficulty"`
	CreatedAt        time.Time `json:"-"`
}

// Validate checks the exercise's own fields. It does not check that the
// knowledge point exists.
func (e *Exercise) Validate() error {
	var problems []string
	if strings.TrimSpace(e.ID) == "" {
		problems = append(problems, "id is empty")
	}
	if strings.TrimSpace(e.KnowledgePointID) == "" {
		problems = append(problems, "knowledge_point_id is empty")
	}
	if strings.TrimSpace(e.Question) == "" {
		problems = append(problems, "question is empty")
	}
	if strings.TrimSpace(e.Answer) == "" {
		problems = append(problems, "answer is empty")
	}
	if !ValidDifficulty(e.Difficulty) {
		problems = append(problems, fmt.Sprintf("difficulty %d outside [%d, %d]", e.Difficulty, MinDifficulty, MaxDifficulty))
	}
	if len(problems) > 0 {
		return fmt.Errorf("exercise %q: %s", e.ID, strings.Join(problems, "; "))
	}
	return nil
}

// CheckAnswer compares the learner's input against the canonical answer.
//
// Normalization rules:
// - Whitespace is trimmed on both sides
// - Comparison is case-insensitive
// - An empty submission is never correct
func CheckAnswer(submitted, canonical string) bool {
	submitted = strings.TrimSpace(submitted)
	if submitted == "" {
		return false
	}
	return strings.EqualFold(submitted, strings.TrimSpace(canonical))
}
