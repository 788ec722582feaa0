package port

import (
	"context"

	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

// RequestFilter narrows ListRequests. Empty fields do not filter.
type RequestFilter struct {
	Status workflow.Status
	// Search matches title, vendor name and requestor name, case-insensitively
	Search string
}

// RequestRepository persists ProcurementRequest aggregates. Order lines and status
// history are loaded and saved together with their request.
type RequestRepository interface {
	// Create stores a new aggregate and assigns its ID and history IDs
	Create(ctx context.Context, req *entity.ProcurementRequest) error

	// GetByID returns nil, nil when the request does not exist
	GetByID(ctx context.Context, id int64) (*entity.ProcurementRequest, error)

	// List returns matching requests, newest first
	List(ctx context.Context, filter RequestFilter) ([]*entity.ProcurementRequest, error)

	// Update loads the aggregate, calls fn and saves the result atomically.
	// If fn returns an error nothing is written. Returns entity.ErrNotFound for unknown ids.
	Update(ctx context.Context, id int64, fn func(req *entity.ProcurementRequest) error) (*entity.ProcurementRequest, error)

	// Delete removes the request with its lines and history. Returns false if it did not exist.
	Delete(ctx context.Context, id int64) (bool, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
