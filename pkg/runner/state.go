package runner

// State is the coarse lifecycle of a run.
type State string

const (
	StateIdle              State = "IDLE"
	StateRunning           State = "RUNNING"
	StateAwaitingUserInput State = "AWAITING_USER_INPUT"
	StateTerminated        State = "TERMINATED"
	StateFailed            State = "FAILED"
)

// Final reports whether no further transition can happen.
func (s State) Final() bool {
	return s == StateTerminated || s == StateFailed
}
