package example

type State string

const (
	StateDoing      State = "Doing"
	StateCodeReview State = "CodeReview"
)

type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
)

type WorkItem struct {
	ID    int
	State State
	Name  string
}

type Result struct {
	Outcome Outcome
	State   State
}

func bad() {
	w := &WorkItem{}
	w.State = "Doing" // want "enum field State assigned string literal"

	_ = Result{Outcome: "updated"} // want "enum field Outcome assigned string literal"
}

func good() {
	w := &WorkItem{}
	w.State = StateCodeReview // OK: using constant
	w.Name = "task"           // OK: plain string field

	_ = Result{Outcome: OutcomeUpdated, State: StateDoing}
}

func alsoGood() {
	// OK: Variable, not literal
	state := StateDoing
	w := &WorkItem{State: state}
	_ = w
}
