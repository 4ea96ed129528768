package bulk

import (
	"errors"
	"fmt"
)

// State is the lifecycle of one executor pass.
type State string

const (
	StateIdle        State = "idle"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateAborted     State = "aborted"     // declined at the gate
	StateInterrupted State = "interrupted" // stopped between items
)

// ErrInvalidState is returned for a state change the pass lifecycle does
// not allow.
var ErrInvalidState = errors.New("invalid pass state transition")

// transition validates from -> to.
func transition(from, to State) (State, error) {
	ok := false
	switch from {
	case StateIdle:
		ok = to == StateRunning || to == StateAborted
	case StateRunning:
		ok = to == StateCompleted || to == StateInterrupted
	}
	if !ok {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
	}
	return to, nil
}
