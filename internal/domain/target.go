package domain

import "slices"

// Target is the tracker state chosen for a work item together with the
// canonical state it stands in for. The two differ when a fallback was used
// (e.g. "Closed" standing in for Done).
type Target struct {
	State     string
	Canonical State
}

// Candidate is one entry of a fallback list.
type Candidate struct {
	Name      string
	Canonical State
}

// candidates lists, in priority order, the tracker states that may represent
// each desired state. The order is part of the contract.
var candidates = map[State][]Candidate{
	StateDoing: {
		{Name: string(StateDoing), Canonical: StateDoing},
	},
	StateCodeReview: {
		{Name: string(StateCodeReview), Canonical: StateCodeReview},
		{Name: string(StateDoing), Canonical: StateDoing},
	},
	StateDone: {
		{Name: string(StateDone), Canonical: StateDone},
		{Name: StateClosed, Canonical: StateDone},
		{Name: StateResolved, Canonical: StateDone},
	},
}

// Candidates returns the fallback list for desired, most preferred first.
func Candidates(desired State) []Candidate {
	return slices.Clone(candidates[desired])
}

// ResolveTarget picks the tracker state to apply for desired given the
// states the work item's type allows. ok is false when none of the
// candidates is allowed.
func ResolveTarget(desired State, allowed []string) (Target, bool) {
	if slices.Contains(allowed, string(desired)) {
		return Target{State: string(desired), Canonical: desired}, true
	}
	for _, c := range Candidates(desired) {
		if slices.Contains(allowed, c.Name) {
			return Target{State: c.Name, Canonical: c.Canonical}, true
		}
	}
	return Target{}, false
}
