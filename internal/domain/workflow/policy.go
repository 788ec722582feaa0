package workflow

import (
	"context"
	"fmt"
	"sort"
)

// Policy decides which status transitions are legal
type Policy interface {
	// Check evaluates the rule and its guards for the transition
	Check(ctx context.Context, from, to Status) error

	// Targets returns every status reachable from the given one, in lifecycle order
	Targets(from Status) []Status
}

type policy struct {
	rules map[Status]map[Status][]GuardFunc
}

func (p *policy) allows(from, to Status) bool {
	guards, exists := p.rules[from][to]
	return exists && len(guards) > 0
}

// Check evaluates the rule for the transition. Any passing guard admits it.
func (p *policy) Check(ctx context.Context, from, to Status) error {
	if !p.allows(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}

	for _, guard := range p.rules[from][to] {
		if guard == nil || guard(ctx) {
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrGuardFailed, from, to)
}

// Targets returns every status with a rule from the given one
func (p *policy) Targets(from Status) []Status {
	order := make(map[Status]int)
	for i, s := range Statuses() {
		order[s] = i
	}

	targets := make([]Status, 0, len(p.rules[from]))
	for to := range p.rules[from] {
		if p.allows(from, to) {
			targets = append(targets, to)
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		return order[targets[i]] < order[targets[j]]
	})

	return targets
}
