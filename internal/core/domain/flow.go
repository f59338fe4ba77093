package domain

// FlowState represents the lifecycle state of a tailoring flow.
type FlowState string

const (
	FlowIdle       FlowState = "idle"
	FlowTailoring  FlowState = "tailoring"
	FlowGenerating FlowState = "generating"
	FlowComplete   FlowState = "complete"
	FlowError      FlowState = "error"
)

// validTransitions defines the allowed state machine transitions.
var validTransitions = map[FlowState][]FlowState{
	FlowIdle:       {FlowTailoring},
	FlowTailoring:  {FlowGenerating, FlowError},
	FlowGenerating: {FlowComplete, FlowError},
	FlowComplete:   {FlowTailoring, FlowIdle},
	FlowError:      {FlowTailoring, FlowIdle},
}

// CanTransitionTo reports whether a transition from current state to next is valid.
func (s FlowState) CanTransitionTo(next FlowState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsAction reports whether a new tailor action may start from s.
// The action control is disabled in every other state.
func (s FlowState) AcceptsAction() bool {
	return s.CanTransitionTo(FlowTailoring)
}

// InProgress reports whether a network operation belonging to the flow is pending.
func (s FlowState) InProgress() bool {
	return s == FlowTailoring || s == FlowGenerating
}
