package core

import "errors"

var (
	// ErrNameConflict is returned by Create when the name is already
	// registered and not deleted. No state is mutated.
	ErrNameConflict = errors.New("subagent name already registered")

	// ErrCapacityExceeded is returned synchronously when launching one or
	// more runs would exceed the concurrency ceiling. No state is mutated.
	ErrCapacityExceeded = errors.New("concurrency ceiling exceeded")

	// ErrUnknownSubagent is returned when no live config has the given name.
	ErrUnknownSubagent = errors.New("unknown subagent")

	// ErrNotRunnable is returned when Run is called on a config whose state
	// does not allow launching (e.g. RUNNING, FAILED, DELETED).
	ErrNotRunnable = errors.New("subagent is not in a runnable state")

	// ErrTerminationRequired marks a run that reached its iteration bound
	// (or produced a final answer) without invoking a required termination
	// tool. The observable signal is the FAILED terminal state.
	ErrTerminationRequired = errors.New("required termination tool was never invoked")

	// ErrMaxIterations marks a run that exceeded its iteration bound.
	ErrMaxIterations = errors.New("maximum iterations exceeded")

	// ErrTokenBudget marks a run that exceeded its cumulative token budget.
	ErrTokenBudget = errors.New("token budget exceeded")
)
