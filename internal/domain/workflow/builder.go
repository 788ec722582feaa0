package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// PolicyBuilder builds a transition policy
type PolicyBuilder interface {
	// Configure returns the rule set for transitions leaving the given status
	Configure(from Status) StatusConfiguration

	// Build freezes the configured rules into a Policy
	Build() Policy
}

// StatusConfiguration configures the permitted targets of one status
type StatusConfiguration interface {
	// Permit allows moving to the target status
	Permit(to Status) StatusConfiguration

	// PermitIf allows moving to the target status if the guard passes
	PermitIf(to Status, guard GuardFunc) StatusConfiguration
}

type statusConfig struct {
	from   Status
	guards map[Status][]GuardFunc
}

type policyBuilder struct {
	configurations map[Status]*statusConfig
}

// NewBuilder creates a new policy builder with no permitted transitions
func NewBuilder() PolicyBuilder {
	return &policyBuilder{
		configurations: make(map[Status]*statusConfig),
	}
}

// Permissive returns a policy that allows every move between two distinct
// lifecycle statuses, including leaving Closed
func Permissive() Policy {
	b := NewBuilder()
	for _, from := range Statuses() {
		cfg := b.Configure(from)
		for _, to := range Statuses() {
			if to != from {
				cfg.Permit(to)
			}
		}
	}
	return b.Build()
}

// Configure returns the configuration for the given status
func (b *policyBuilder) Configure(from Status) StatusConfiguration {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid status: %s", from))
	}

	config, exists := b.configurations[from]
	if !exists {
		config = &statusConfig{
			from:   from,
			guards: make(map[Status][]GuardFunc),
		}
		b.configurations[from] = config
	}

	return config
}

// Build copies the configured rules so later builder changes do not leak into the policy
func (b *policyBuilder) Build() Policy {
	rules := make(map[Status]map[Status][]GuardFunc, len(b.configurations))
	for from, config := range b.configurations {
		targets := make(map[Status][]GuardFunc, len(config.guards))
		for to, guards := range config.guards {
			targets[to] = append([]GuardFunc{}, guards...)
		}
		rules[from] = targets
	}

	return &policy{rules: rules}
}

// Permit allows moving to the target status
func (c *statusConfig) Permit(to Status) StatusConfiguration {
	return c.PermitIf(to, nil)
}

// PermitIf allows moving to the target status if the guard passes. A nil guard always passes.
func (c *statusConfig) PermitIf(to Status, guard GuardFunc) StatusConfiguration {
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target status: %s", to))
	}

	c.guards[to] = append(c.guards[to], guard)
	return c
}
