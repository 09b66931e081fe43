// Package rewards computes the XP and coins earned by an attempt and the
// badge awarded when a topic is mastered.
package rewards

import (
	"math"
	"time"
)

// DefaultTimeBonusUnder is the answer time below which the time bonus applies.
const DefaultTimeBonusUnder = 60 * time.Second

const (
	xpPerDifficulty = 10
	timeMultiplier  = 1.2
)

// Reward is what one attempt earns.
type Reward struct {
	XP    int `json:"xp"`
	Coins int `json:"coins"`
}

// attemptMultiplier scales XP down for every retry.
func attemptMultiplier(attemptNumber int) float64 {
	switch {
	case attemptNumber <= 1:
		return 1.0
	case attemptNumber == 2:
		return 0.7
	case attemptNumber == 3:
		return 0.4
	default:
		return 0.2
	}
}

// Calculate returns the reward for a correct answer. Attempt numbers below 1
// are treated as a first attempt. Coins are only paid on the first attempt.
func Calculate(difficulty, attemptNumber int, timeBonus bool) Reward {
	mult := attemptMultiplier(attemptNumber)
	if timeBonus {
		mult *= timeMultiplier
	}
	r := Reward{XP: int(math.Round(float64(difficulty*xpPerDifficulty) * mult))}
	if attemptNumber <= 1 {
		r.Coins = difficulty
	}
	return r
}

// ForAttempt returns the reward for a submitted answer. Incorrect answers
// earn nothing. The time bonus applies when timeSpent is strictly below
// bonusUnder.
func ForAttempt(correct bool, difficulty, attemptNumber int, timeSpent, bonusUnder time.Duration) Reward {
	if !correct {
		return Reward{}
	}
	return Calculate(difficulty, attemptNumber, timeSpent < bonusUnder)
}
