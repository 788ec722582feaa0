package workflow

import "errors"

var (
	// ErrInvalidStatus is returned when a status is not one of the lifecycle statuses
	ErrInvalidStatus = errors.New("invalid status")

	// ErrTransitionNotAllowed is returned when the policy has no rule for a transition
	ErrTransitionNotAllowed = errors.New("status transition not allowed")

	// ErrGuardFailed is returned when every guard for a transition rejects it
	ErrGuardFailed = errors.New("guard condition failed")
)
