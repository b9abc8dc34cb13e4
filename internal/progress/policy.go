package progress

import (
	"fmt"
	"math"
	"strings"
)

// ResetPosition is where a coupled task goes back to when reopened.
const ResetPosition = 25.0

// CompletionPolicy decides how a task's completed flag and position
// influence each other on update.
type CompletionPolicy int

const (
	// Independent never derives one field from the other.
	Independent CompletionPolicy = iota

	// Coupled marks a task completed when it reaches 100 and moves a
	// reopened task back to ResetPosition.
	Coupled
)

func (p CompletionPolicy) String() string {
	if p == Coupled {
		return "coupled"
	}
	return "independent"
}

// ParsePolicy parses "independent" or "coupled".
func ParsePolicy(s string) (CompletionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "independent":
		return Independent, nil
	case "coupled":
		return Coupled, nil
	default:
		return Independent, fmt.Errorf("unknown completion policy: %s", s)
	}
}

// TaskState is the mutable progress of a task.
type TaskState struct {
	Completed bool
	Position  float64
}

// Update is a partial change; nil fields are left alone.
type Update struct {
	Completed *bool
	Position  *float64
}

// Apply returns the state after u. Positions are clamped into [0, 100].
//
// Under Coupled an explicit Completed in u always wins over the value
// derived from the position, and a reopened task is only reset when u does
// not move it as well.
func (p CompletionPolicy) Apply(cur TaskState, u Update) TaskState {
	next := cur
	if u.Position != nil {
		next.Position = ClampPosition(*u.Position)
	}
	if u.Completed != nil {
		next.Completed = *u.Completed
	}
	if p != Coupled {
		return next
	}

	if u.Position != nil && next.Position == 100 && u.Completed == nil {
		next.Completed = true
	}
	if u.Completed != nil && !*u.Completed && cur.Completed && u.Position == nil {
		next.Position = ResetPosition
	}
	return next
}

// ClampPosition limits a position to [0, 100].
func ClampPosition(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
