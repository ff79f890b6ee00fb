package journey

// State is a position in the interview progression.
type State string

const (
	StateAwaitingClarification State = "AWAITING_CLARIFICATION"
	StateCoreAnswer            State = "CORE_ANSWER"
	StateFollowUp              State = "FOLLOW_UP"
	StateCurveball             State = "CURVEBALL"
	StateReflection            State = "REFLECTION"
	StateComplete              State = "COMPLETE"
)

// States lists every state in progression order.
var States = [...]State{
	StateAwaitingClarification,
	StateCoreAnswer,
	StateFollowUp,
	StateCurveball,
	StateReflection,
	StateComplete,
}

// Index returns the 0-based progress position, or -1 for unknown states.
func (s State) Index() int {
	for i, candidate := range States {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s.Index() >= 0
}

// Terminal reports whether no further transitions are allowed.
func (s State) Terminal() bool {
	return s == StateComplete
}
