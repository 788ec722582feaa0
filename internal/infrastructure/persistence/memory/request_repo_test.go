package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procuro/internal/application/port"
	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/money"
	"github.com/garyjia/procuro/internal/domain/workflow"
)

func newRequest(title, vendor string, at time.Time) *entity.ProcurementRequest {
	return entity.NewProcurementRequest(entity.RequestDraft{
		RequestorName:    entity.StringPtr("Jane Doe"),
		Title:            entity.StringPtr(title),
		VendorName:       entity.StringPtr(vendor),
		Department:       entity.StringPtr("IT"),
		CommodityGroupID: entity.StringPtr("031"),
		OrderLines: []entity.OrderLine{
			{Description: "Cable", UnitPrice: money.MustParse("3.50"), Quantity: 4, Unit: entity.UnitPieces},
		},
	}, at)
}

func TestRequestRepository_SnapshotsAreIsolated(t *testing.T) {
	repo := NewRequestRepository()
	ctx := context.Background()

	req := newRequest("Cables", "Acme", time.Now())
	require.NoError(t, repo.Create(ctx, req))
	assert.Equal(t, int64(1), req.ID)
	assert.Equal(t, int64(1), req.StatusHistory[0].ID)

	req.Title = "mutated after create"
	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cables", got.Title)

	got.OrderLines[0].Quantity = 99
	again, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, again.OrderLines[0].Quantity)
}

func TestRequestRepository_ListFiltersAndOrder(t *testing.T) {
	repo := NewRequestRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	a := newRequest("Cables", "Acme", base)
	b := newRequest("Desk chairs", "Sitwell", base.Add(time.Hour))
	c := newRequest("Monitors", "ACME Displays", base.Add(time.Hour))
	for _, r := range []*entity.ProcurementRequest{a, b, c} {
		require.NoError(t, repo.Create(ctx, r))
	}

	all, err := repo.List(ctx, port.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{c.ID, b.ID, a.ID}, []int64{all[0].ID, all[1].ID, all[2].ID})

	acme, err := repo.List(ctx, port.RequestFilter{Search: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	open, err := repo.List(ctx, port.RequestFilter{Status: workflow.StatusOpen, Search: "chair"})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, b.ID, open[0].ID)

	closed, err := repo.List(ctx, port.RequestFilter{Status: workflow.StatusClosed})
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestRequestRepository_Update(t *testing.T) {
	repo := NewRequestRepository()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	req := newRequest("Cables", "Acme", at)
	require.NoError(t, repo.Create(ctx, req))

	updated, err := repo.Update(ctx, req.ID, func(r *entity.ProcurementRequest) error {
		_, err := r.ChangeStatus(ctx, workflow.NewEngine(nil), workflow.StatusInProgress, "alice", at.Add(time.Minute))
		return err
	})
	require.NoError(t, err)
	require.Len(t, updated.StatusHistory, 2)
	assert.Equal(t, int64(2), updated.StatusHistory[1].ID)

	_, err = repo.Update(ctx, req.ID, func(r *entity.ProcurementRequest) error {
		r.StatusHistory = r.StatusHistory[:1]
		return nil
	})
	assert.ErrorIs(t, err, entity.ErrHistoryRewritten)

	_, err = repo.Update(ctx, 404, func(r *entity.ProcurementRequest) error { return nil })
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestRequestRepository_Delete(t *testing.T) {
	repo := NewRequestRepository()
	ctx := context.Background()

	req := newRequest("Cables", "Acme", time.Now())
	require.NoError(t, repo.Create(ctx, req))

	deleted, err := repo.Delete(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRequestRepository_ConcurrentUpdatesAreSerialized(t *testing.T) {
	repo := NewRequestRepository()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	req := newRequest("Cables", "Acme", at)
	require.NoError(t, repo.Create(ctx, req))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Update(ctx, req.ID, func(r *entity.ProcurementRequest) error {
				r.OrderLines = append(r.OrderLines, entity.OrderLine{
					Description: fmt.Sprintf("line %d", i),
					UnitPrice:   money.MustParse("1.00"),
					Quantity:    1,
					Unit:        entity.UnitPieces,
				})
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, got.OrderLines, writers+1)
}
