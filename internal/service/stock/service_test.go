package stock

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type stubStockRepo struct {
	items map[uuid.UUID]*model.StockItem
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{items: make(map[uuid.UUID]*model.StockItem)}
}

func (r *stubStockRepo) Create(_ context.Context, item *model.StockItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *stubStockRepo) Get(_ context.Context, id uuid.UUID) (*model.StockItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("stock item", nil)
	}
	cp := *item
	return &cp, nil
}

func (r *stubStockRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*model.StockItem, error) {
	var out []*model.StockItem
	for _, id := range ids {
		if item, ok := r.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *stubStockRepo) Update(_ context.Context, item *model.StockItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *stubStockRepo) AdjustQuantity(_ context.Context, id uuid.UUID, delta int, updatedBy uuid.UUID, at time.Time) (*model.StockItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("stock item", nil)
	}
	if item.Quantity+delta < 0 {
		return nil, errors.Conflict("insufficient stock for this deduction", nil)
	}
	item.Quantity += delta
	item.LastUpdatedBy = updatedBy
	item.UpdatedAt = at
	cp := *item
	return &cp, nil
}

func (r *stubStockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *stubStockRepo) List(_ context.Context, _ *model.StockFilters) ([]*model.StockItem, error) {
	return nil, nil
}

func (r *stubStockRepo) ListLow(_ context.Context) ([]*model.StockItem, error) {
	var out []*model.StockItem
	for _, item := range r.items {
		if item.IsLow() {
			out = append(out, item)
		}
	}
	return out, nil
}

type stubOutboxRepo struct {
	events []*model.OutboxEvent
}

func (r *stubOutboxRepo) Create(_ context.Context, evt *model.OutboxEvent) error {
	r.events = append(r.events, evt)
	return nil
}

func (r *stubOutboxRepo) GetPendingEvents(_ context.Context, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (r *stubOutboxRepo) MarkProcessed(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

func (r *stubOutboxRepo) MarkFailed(_ context.Context, _ uuid.UUID, _ string) error { return nil }

func (r *stubOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newTestService() (*Service, *stubStockRepo, *stubOutboxRepo) {
	logger := zerolog.Nop()
	repo := newStubStockRepo()
	outbox := &stubOutboxRepo{}
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return NewService(repo, outbox, clk, &logger), repo, outbox
}

func seedItem(repo *stubStockRepo, quantity, minQuantity int) *model.StockItem {
	item := &model.StockItem{
		Base:        model.Base{ID: uuid.New()},
		ItemName:    "contrast dye",
		Category:    "consumable",
		Quantity:    quantity,
		MinQuantity: minQuantity,
		Unit:        "vial",
	}
	repo.items[item.ID] = item
	return item
}

func TestAdjustAddsAndDeducts(t *testing.T) {
	svc, repo, _ := newTestService()
	item := seedItem(repo, 20, 5)
	actor := uuid.New()

	updated, err := svc.Adjust(context.Background(), actor, item.ID, &model.AdjustQuantityRequest{Quantity: 5, Operation: "add"})
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Quantity)

	updated, err = svc.Adjust(context.Background(), actor, item.ID, &model.AdjustQuantityRequest{Quantity: 10, Operation: "deduct"})
	require.NoError(t, err)
	assert.Equal(t, 15, updated.Quantity)
	assert.Equal(t, actor, updated.LastUpdatedBy)
}

func TestAdjustRejectsUnknownOperation(t *testing.T) {
	svc, repo, _ := newTestService()
	item := seedItem(repo, 20, 5)

	_, err := svc.Adjust(context.Background(), uuid.New(), item.ID, &model.AdjustQuantityRequest{Quantity: 5, Operation: "set"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestDeductBelowZeroIsConflictAndChangesNothing(t *testing.T) {
	svc, repo, outbox := newTestService()
	item := seedItem(repo, 3, 1)

	_, err := svc.Adjust(context.Background(), uuid.New(), item.ID, &model.AdjustQuantityRequest{Quantity: 4, Operation: "deduct"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Equal(t, 3, repo.items[item.ID].Quantity)
	assert.Empty(t, outbox.events)
}

func TestDeductToThresholdEmitsLowStockEvent(t *testing.T) {
	svc, repo, outbox := newTestService()
	item := seedItem(repo, 12, 10)

	_, err := svc.Adjust(context.Background(), uuid.New(), item.ID, &model.AdjustQuantityRequest{Quantity: 2, Operation: "deduct"})
	require.NoError(t, err)

	require.Len(t, outbox.events, 1)
	assert.Equal(t, model.EventLowStock, outbox.events[0].EventType)
}

func TestAdjustAboveThresholdStaysSilent(t *testing.T) {
	svc, repo, outbox := newTestService()
	item := seedItem(repo, 12, 10)

	_, err := svc.Adjust(context.Background(), uuid.New(), item.ID, &model.AdjustQuantityRequest{Quantity: 1, Operation: "deduct"})
	require.NoError(t, err)
	assert.Empty(t, outbox.events)
}

func TestListLowReturnsItemsAtOrBelowThreshold(t *testing.T) {
	svc, repo, _ := newTestService()
	seedItem(repo, 10, 10)
	seedItem(repo, 3, 10)
	seedItem(repo, 50, 10)

	low, err := svc.ListLow(context.Background())
	require.NoError(t, err)
	assert.Len(t, low, 2)
}
