package pipeline

// State is a job's position in the conversion state machine. Transitions are
// monotonic; no state is re-entered.
type State string

const (
	StateIngested      State = "ingested"
	StateFused         State = "fused"
	StatePolicyDerived State = "policy_derived"
	StateLaidOut       State = "laid_out"
	StateComposed      State = "composed"
	StateRendered      State = "rendered"
	StateFailed        State = "failed"
)

var stateOrder = map[State]int{
	StateIngested:      0,
	StateFused:         1,
	StatePolicyDerived: 2,
	StateLaidOut:       3,
	StateComposed:      4,
	StateRendered:      5,
}

// Terminal reports whether the state ends the job.
func (s State) Terminal() bool {
	return s == StateRendered || s == StateFailed
}
