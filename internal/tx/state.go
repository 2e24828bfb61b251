package tx

// State is the position of a signing attempt.
type State int

const (
	StateBuilt State = iota
	StateGasResolved
	StateAwaitingConfirmation
	StateSigned
	StateRejected
	// StateFailed marks an attempt aborted by an error. It is recorded in the
	// journal but never returned to callers as a state.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateGasResolved:
		return "gas_resolved"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateSigned:
		return "signed"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSigned || s == StateRejected || s == StateFailed
}
