package domain

// State is one of the canonical workflow stages a work item moves through
// while its pull request is open, reviewed and merged.
type State string

const (
	StateDoing      State = "Doing"
	StateCodeReview State = "CodeReview"
	StateDone       State = "Done"
)

// Tracker state names accepted in place of Done by process templates that
// have no Done state (Agile uses Closed, CMMI uses Resolved/Closed).
const (
	StateClosed   = "Closed"
	StateResolved = "Resolved"
)

// PullRequestStatus is the status field of an Azure Repos pull request.
type PullRequestStatus string

const (
	PullRequestActive    PullRequestStatus = "active"
	PullRequestCompleted PullRequestStatus = "completed"
	PullRequestAbandoned PullRequestStatus = "abandoned"
)

var transitions = map[State]map[State]bool{
	StateDoing:      {StateCodeReview: true},
	StateCodeReview: {StateDoing: true, StateDone: true},
	StateDone:       {},
}

// Decide maps a pull request status to the state its linked work items
// should be in. ok is false for empty or unrecognised statuses.
func Decide(status PullRequestStatus) (state State, ok bool) {
	switch status {
	case PullRequestAbandoned:
		return StateDoing, true
	case PullRequestCompleted:
		return StateDone, true
	case PullRequestActive:
		return StateCodeReview, true
	}
	return "", false
}

// ParseState returns the canonical state named by a tracker state string.
func ParseState(s string) (State, bool) {
	switch State(s) {
	case StateDoing, StateCodeReview, StateDone:
		return State(s), true
	}
	return "", false
}

// CanTransition reports whether the legality table permits moving a work
// item whose tracker state is current to the state to. Names outside the
// canonical set, on either side, have no transitions.
func CanTransition(current string, to State) bool {
	from, ok := ParseState(current)
	if !ok {
		return false
	}
	return transitions[from][to]
}

// Successors returns the states reachable from s in one hop.
func Successors(s State) []State {
	next := make([]State, 0, len(transitions[s]))
	for _, candidate := range []State{StateDoing, StateCodeReview, StateDone} {
		if transitions[s][candidate] {
			next = append(next, candidate)
		}
	}
	return next
}

func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}
