package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SystemActor is recorded when a status change carries no actor
const SystemActor = "system"

// Transition is the outcome of a status change decision
type Transition struct {
	From      Status
	To        Status
	ChangedAt time.Time
	ChangedBy string
	// Changed is false when the target equals the current status
	Changed bool
}

// Engine decides status changes against a policy. It holds no per-request state.
type Engine struct {
	policy Policy
}

// NewEngine creates an engine. A nil policy means Permissive.
func NewEngine(policy Policy) *Engine {
	if policy == nil {
		policy = Permissive()
	}
	return &Engine{policy: policy}
}

// Policy returns the engine's transition policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// Decide validates moving from current to the target status.
// lastChangedAt is the timestamp of the newest history entry; the returned
// ChangedAt is never earlier than it.
func (e *Engine) Decide(ctx context.Context, current, to Status, actor string, at, lastChangedAt time.Time) (Transition, error) {
	if !to.IsValid() {
		return Transition{}, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	if to == current {
		return Transition{From: current, To: to, Changed: false}, nil
	}

	if err := e.policy.Check(ctx, current, to); err != nil {
		return Transition{}, err
	}

	if at.Before(lastChangedAt) {
		at = lastChangedAt
	}

	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = SystemActor
	}

	return Transition{
		From:      current,
		To:        to,
		ChangedAt: at,
		ChangedBy: actor,
		Changed:   true,
	}, nil
}
