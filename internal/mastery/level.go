package mastery

import "fmt"

// ZeroExercisePolicy decides the mastery level of a topic that currently has
// no exercises.
type ZeroExercisePolicy string

const (
	// ZeroExerciseStuck keeps the level at 0, so the topic can never be
	// mastered until content is authored.
	ZeroExerciseStuck ZeroExercisePolicy = "stuck"
	// ZeroExerciseTrivial treats the topic as fully mastered once it has
	// been practiced.
	ZeroExerciseTrivial ZeroExercisePolicy = "trivial"
)

// ParseZeroExercisePolicy validates a configured policy name.
func ParseZeroExercisePolicy(s string) (ZeroExercisePolicy, error) {
	switch p := ZeroExercisePolicy(s); p {
	case ZeroExerciseStuck, ZeroExerciseTrivial:
		return p, nil
	case "":
		return ZeroExerciseStuck, nil
	default:
		return "", fmt.Errorf("unknown zero-exercise policy %q (want %q or %q)", s, ZeroExerciseStuck, ZeroExerciseTrivial)
	}
}

// Config holds the progression parameters.
type Config struct {
	// MasteryThreshold is the level in [0, 100] at which a topic is mastered.
	MasteryThreshold   float64
	ZeroExercisePolicy ZeroExercisePolicy
}

// DefaultConfig returns the standard progression parameters.
func DefaultConfig() Config {
	return Config{
		MasteryThreshold:   80,
		ZeroExercisePolicy: ZeroExerciseStuck,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MasteryThreshold <= 0 || c.MasteryThreshold > 100 {
		return fmt.Errorf("mastery threshold %v outside (0, 100]", c.MasteryThreshold)
	}
	if _, err := ParseZeroExercisePolicy(string(c.ZeroExercisePolicy)); err != nil {
		return err
	}
	return nil
}

// Level derives the mastery level from the number of distinct exercises
// answered correctly and the number of exercises currently defined.
func (c Config) Level(uniqueCorrect, totalExercises int) float64 {
	if totalExercises <= 0 {
		if c.ZeroExercisePolicy == ZeroExerciseTrivial {
			return 100
		}
		return 0
	}
	return min(100, 100*float64(uniqueCorrect)/float64(totalExercises))
}

// StatusFor returns the status a level earns on its own.
func (c Config) StatusFor(level float64) Status {
	if level >= c.MasteryThreshold {
		return StatusMastered
	}
	return StatusInProgress
}
