package core

// RunState tracks a subagent run through its lifecycle. States are owned by
// the manager; the runtime it supervises reports the terminal outcome.
type RunState int

const (
	// StateCreated means the config is registered but has never run.
	StateCreated RunState = iota
	// StateRunning means an agent runtime currently holds a capacity slot.
	StateRunning
	// StateCompleted means the run ended with a plain final response.
	StateCompleted
	// StateTerminated means the run ended by invoking a termination tool.
	StateTerminated
	// StateFailed means the run exhausted its iteration bound, violated its
	// termination policy, or hit an unrecoverable model error.
	StateFailed
	// StateDeleted means the run's bookkeeping has been released.
	StateDeleted
)

// String returns the canonical upper-case state name.
func (s RunState) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateTerminated:
		return "TERMINATED"
	case StateFailed:
		return "FAILED"
	case StateDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state is an end state of a run (a deleted
// entry is past terminal and no longer runnable).
func (s RunState) Terminal() bool {
	return s == StateCompleted || s == StateTerminated || s == StateFailed
}

// Runnable reports whether a run in this state may be (re)launched.
func (s RunState) Runnable() bool {
	return s == StateCreated || s == StateCompleted
}
