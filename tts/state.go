package tts

// InitState is the initialization state of a backend instance.
type InitState int

const (
	// StateUninitialized indicates Initialize has not been called.
	StateUninitialized InitState = iota
	// StateInitializing indicates Initialize is waiting for the mechanism.
	StateInitializing
	// StateReady indicates the backend accepts speech calls.
	StateReady
	// StateFailed indicates the last Initialize failed.
	StateFailed
)

// String returns the string representation of the state.
func (s InitState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateMachine enforces the one-directional initialization transitions.
// It is not safe for concurrent use; owners guard it themselves.
type StateMachine struct {
	current     InitState
	transitions map[InitState][]InitState
}

// NewStateMachine creates a state machine in StateUninitialized.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateUninitialized,
		transitions: map[InitState][]InitState{
			StateUninitialized: {StateInitializing},
			StateInitializing:  {StateReady, StateFailed},
			StateFailed:        {StateInitializing},
		},
	}
}

// Transition attempts to move to the given state and reports whether the
// transition was allowed.
func (sm *StateMachine) Transition(to InitState) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() InitState {
	return sm.current
}

