package generator

import "fmt"

// State is a step of one report generation.
type State int

const (
	StateValidating State = iota
	StateAggregating
	StateComposing
	StateStreaming
	StateDone
	// StateFailed ends a run before anything was written.
	StateFailed
	// StateAborted ends a run after the commit point; the output is truncated.
	StateAborted
)

var stateNames = [...]string{
	StateValidating:  "validating",
	StateAggregating: "aggregating",
	StateComposing:   "composing",
	StateStreaming:   "streaming",
	StateDone:        "done",
	StateFailed:      "failed",
	StateAborted:     "aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateAborted
}

// Committed reports whether output may already have been emitted in s.
func (s State) Committed() bool {
	switch s {
	case StateComposing, StateStreaming, StateDone, StateAborted:
		return true
	}
	return false
}

// CanTransition reports whether a run may move from s to next.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateValidating:
		return next == StateAggregating || next == StateFailed
	case StateAggregating:
		return next == StateComposing || next == StateFailed
	case StateComposing:
		return next == StateStreaming || next == StateAborted
	case StateStreaming:
		return next == StateDone || next == StateAborted
	}
	return false
}
