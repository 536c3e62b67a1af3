package harness

import (
	"fmt"

	"github.com/launchdarkly/sample-site-tests/framework"
)

// State is a step of a run. A run moves forward through Resolving, Deploying, Probing,
// and Verifying, and ends in Passed or Failed.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateDeploying
	StateProbing
	StateVerifying
	StatePassed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateDeploying:
		return "deploying"
	case StateProbing:
		return "probing"
	case StateVerifying:
		return "verifying"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) Terminal() bool {
	return s == StatePassed || s == StateFailed
}

type runState struct {
	current  State
	logger   framework.Logger
	observer func(from, to State)
}

func (r *runState) to(next State) {
	if r.current.Terminal() {
		panic(fmt.Sprintf("run already %s, cannot move to %s", r.current, next))
	}
	prev := r.current
	r.current = next
	r.logger.Printf("%s -> %s", prev, next)
	if r.observer != nil {
		r.observer(prev, next)
	}
}
