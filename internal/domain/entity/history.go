package entity

import (
	"errors"
	"time"

	"github.com/garyjia/procuro/internal/domain/workflow"
)

// StatusHistory is one immutable entry of a request's status audit trail.
// FromStatus is workflow.StatusNone for the creation entry.
type StatusHistory struct {
	ID         int64           `json:"id"`
	FromStatus workflow.Status `json:"from_status"`
	ToStatus   workflow.Status `json:"to_status"`
	ChangedAt  time.Time       `json:"changed_at"`
	ChangedBy  string          `json:"changed_by"`
}

// ErrHistoryRewritten is returned when an update would change or drop existing history entries
var ErrHistoryRewritten = errors.New("status history is append-only")

// VerifyHistoryAppend checks that after keeps every entry of before unchanged and in order
func VerifyHistoryAppend(before, after []StatusHistory) error {
	if len(after) < len(before) {
		return ErrHistoryRewritten
	}
	for i := range before {
		b, a := before[i], after[i]
		if b.ID != a.ID || b.FromStatus != a.FromStatus || b.ToStatus != a.ToStatus ||
			b.ChangedBy != a.ChangedBy || !b.ChangedAt.Equal(a.ChangedAt) {
			return ErrHistoryRewritten
		}
	}
	return nil
}
