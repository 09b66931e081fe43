package mastery

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a status change is not in the
// transition table.
var ErrIllegalTransition = errors.New("illegal mastery transition")

// Status is a topic's position in the per-student progression lifecycle.
// The numeric order is the progression order; statuses never move backward.
type Status int

const (
	StatusLocked     Status = iota // Prerequisites not all mastered
	StatusAvailable                // Reachable, nothing solved yet
	StatusInProgress               // At least one correct answer, below threshold
	StatusMastered                 // Mastery level reached the threshold
)

// transitions lists every allowed target per source status. Self-loops are
// allowed so that re-evaluating a record is never an error.
var transitions = map[Status][]Status{
	StatusLocked:     {StatusLocked, StatusAvailable},
	StatusAvailable:  {StatusAvailable, StatusInProgress, StatusMastered},
	StatusInProgress: {StatusInProgress, StatusMastered},
	StatusMastered:   {StatusMastered},
}

// CanTransition reports whether from → to is an allowed move.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// checkTransition returns ErrIllegalTransition for disallowed moves.
func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s >= StatusLocked && s <= StatusMastered
}

// Rank returns the position of s in the progression order.
func (s Status) Rank() int {
	return int(s)
}

// String returns the persisted and wire form of the status.
func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusAvailable:
		return "available"
	case StatusInProgress:
		return "in_progress"
	case StatusMastered:
		return "mastered"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus parses the persisted form produced by String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "locked":
		return StatusLocked, nil
	case "available":
		return StatusAvailable, nil
	case "in_progress":
		return StatusInProgress, nil
	case "mastered":
		return StatusMastered, nil
	default:
		return StatusLocked, fmt.Errorf("unknown mastery status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid mastery status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Icon returns the display icon for a status.
func (s Status) Icon() string {
	switch s {
	case StatusLocked:
		return "🔒"
	case StatusAvailable:
		return "🔓"
	case StatusInProgress:
		return "📖"
	case StatusMastered:
		return "✅"
	default:
		return "?"
	}
}

// Label returns the display label for a status.
func (s Status) Label() string {
	switch s {
	case StatusLocked:
		return "Locked"
	case StatusAvailable:
		return "Available"
	case StatusInProgress:
		return "In Progress"
	case StatusMastered:
		return "Mastered"
	default:
		return "Unknown"
	}
}
