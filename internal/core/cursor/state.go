package cursor

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when an invalid status transition is attempted.
var ErrInvalidTransition = errors.New("invalid status transition")

// ValidTransitions defines allowed status transitions.
// Key is the current status, value is the list of valid next statuses.
var ValidTransitions = map[Status][]Status{
	StatusConnecting: {StatusInProgress, StatusConnecting},
	StatusInProgress: {
		StatusComplete,
		StatusConnecting,
		StatusInProgress, // retry after a failed cycle
	},
	StatusComplete: {StatusConnecting, StatusInProgress},
}

// CanTransition checks if a transition from one status to another is valid.
func CanTransition(from, to Status) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a status change with metadata.
type Transition struct {
	From      Status
	To        Status
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to Status, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// Validate returns ErrInvalidTransition if the state machine does not allow
// this transition.
func (t Transition) Validate() error {
	if !CanTransition(t.From, t.To) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.From, t.To)
	}
	return nil
}

// StatusDescription returns a human-readable description of a status.
func StatusDescription(s Status) string {
	switch s {
	case StatusConnecting:
		return "Connecting - waiting for the node transport"
	case StatusInProgress:
		return "In progress - catching up with the chain tip"
	case StatusComplete:
		return "Complete - applying live blocks as they arrive"
	default:
		return "Unknown status"
	}
}
