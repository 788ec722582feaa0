// Package memory keeps procurement requests in process memory. It backs tests
// and single-process demo deployments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
)

// RequestRepository implements port.RequestRepository with a mutex-guarded map.
// Every read and write goes through a deep copy.
type RequestRepository struct {
	mu            sync.RWMutex
	requests      map[int64]*entity.ProcurementRequest
	nextID        int64
	nextHistoryID int64
}

// NewRequestRepository creates an empty store
func NewRequestRepository() *RequestRepository {
	return &RequestRepository{
		requests: make(map[int64]*entity.ProcurementRequest),
	}
}

func (r *RequestRepository) Create(ctx context.Context, req *entity.ProcurementRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	req.ID = r.nextID
	r.assignHistoryIDs(req.StatusHistory)

	r.requests[req.ID] = req.Clone()
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.ProcurementRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.ProcurementRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	result := []*entity.ProcurementRequest{}
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if search != "" && !matches(req, search) {
			continue
		}
		result = append(result, req.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *RequestRepository) Update(ctx context.Context, id int64, fn func(req *entity.ProcurementRequest) error) (*entity.ProcurementRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.requests[id]
	if !ok {
		return nil, entity.ErrNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = id

	if err := entity.VerifyHistoryAppend(current.StatusHistory, working.StatusHistory); err != nil {
		return nil, err
	}
	r.assignHistoryIDs(working.StatusHistory[len(current.StatusHistory):])

	r.requests[id] = working.Clone()
	return working, nil
}

func (r *RequestRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.requests[id]; !ok {
		return false, nil
	}
	delete(r.requests, id)
	return true, nil
}

func (r *RequestRepository) assignHistoryIDs(entries []entity.StatusHistory) {
	for i := range entries {
		r.nextHistoryID++
		entries[i].ID = r.nextHistoryID
	}
}

func matches(req *entity.ProcurementRequest, search string) bool {
	for _, field := range []string{req.Title, req.VendorName, req.RequestorName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

var _ port.RequestRepository = (*RequestRepository)(nil)
