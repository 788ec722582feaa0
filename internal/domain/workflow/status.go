package workflow

import (
	"fmt"
	"strings"
)

// Status represents a procurement request's position in its lifecycle
type Status string

const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusClosed     Status = "Closed"

	// StatusNone is the from-status of the creation history entry. It is not a valid target.
	StatusNone Status = "none"
)

// InitialStatus is the status every request is created with
const InitialStatus = StatusOpen

var validStatuses = map[Status]bool{
	StatusOpen:       true,
	StatusInProgress: true,
	StatusClosed:     true,
}

// Statuses returns all valid statuses in lifecycle order
func Statuses() []Status {
	return []Status{StatusOpen, StatusInProgress, StatusClosed}
}

// IsValid returns true if the status is one of the lifecycle statuses
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts the display form ("In Progress") as well as
// identifier forms ("in_progress", "IN-PROGRESS")
func ParseStatus(s string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)

	for _, status := range Statuses() {
		if strings.ToLower(string(status)) == key {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}
