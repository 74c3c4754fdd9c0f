package coordinator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/notifier"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/metrics"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

type stubUserRepo struct {
	holders []*model.User
}

func (r *stubUserRepo) Create(_ context.Context, _ *model.User) error { return nil }
func (r *stubUserRepo) Get(_ context.Context, _ uuid.UUID) (*model.User, error) {
	return nil, errors.NotFound("user", nil)
}
func (r *stubUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, errors.NotFound("user", nil)
}
func (r *stubUserRepo) Update(_ context.Context, _ *model.User) error { return nil }
func (r *stubUserRepo) UpdatePassword(_ context.Context, _ uuid.UUID, _ string, _ time.Time) error {
	return nil
}
func (r *stubUserRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }
func (r *stubUserRepo) List(_ context.Context, _ *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}
func (r *stubUserRepo) ReplaceGrants(_ context.Context, _ uuid.UUID, _ []privilege.Grant) error {
	return nil
}
func (r *stubUserRepo) ListWithPrivilege(_ context.Context, module privilege.Module, op privilege.Operation) ([]*model.User, error) {
	if module != privilege.ModuleStock || op != privilege.OpUpdate {
		return nil, nil
	}
	return r.holders, nil
}

type stubStockRepo struct {
	low []*model.StockItem
}

func (r *stubStockRepo) Create(_ context.Context, _ *model.StockItem) error { return nil }
func (r *stubStockRepo) Get(_ context.Context, _ uuid.UUID) (*model.StockItem, error) {
	return nil, errors.NotFound("stock item", nil)
}
func (r *stubStockRepo) GetByIDs(_ context.Context, _ []uuid.UUID) ([]*model.StockItem, error) {
	return nil, nil
}
func (r *stubStockRepo) Update(_ context.Context, _ *model.StockItem) error { return nil }
func (r *stubStockRepo) AdjustQuantity(_ context.Context, _ uuid.UUID, _ int, _ uuid.UUID, _ time.Time) (*model.StockItem, error) {
	return nil, errors.NotFound("stock item", nil)
}
func (r *stubStockRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }
func (r *stubStockRepo) List(_ context.Context, _ *model.StockFilters) ([]*model.StockItem, error) {
	return nil, nil
}
func (r *stubStockRepo) ListLow(_ context.Context) ([]*model.StockItem, error) {
	return r.low, nil
}

func holder() *model.User {
	return &model.User{Base: model.Base{ID: uuid.New()}, IsActive: true}
}

func newTestService(users *stubUserRepo, stock *stubStockRepo) (*Service, *notifier.Recorder) {
	logger := zerolog.Nop()
	rec := notifier.NewRecorder()
	m := metrics.New("test", prometheus.NewRegistry())
	return NewService(users, stock, rec, m, &logger), rec
}

func TestHandleNewAppointmentNotifiesDoctor(t *testing.T) {
	svc, rec := newTestService(&stubUserRepo{}, &stubStockRepo{})

	doctorID := uuid.New()
	payload, err := json.Marshal(map[string]interface{}{
		"appointment_id": uuid.New(),
		"doctor_id":      doctorID,
		"patient_id":     uuid.New(),
	})
	require.NoError(t, err)

	evt := &model.OutboxEvent{ID: uuid.New(), EventType: model.EventNewAppointment, Payload: payload}
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	pushed := rec.Pushed()
	require.Len(t, pushed, 1)
	assert.Equal(t, model.NotificationNewAppointment, pushed[0].Type)
	assert.Equal(t, doctorID, pushed[0].Recipient)
}

func TestHandleLowStockNotifiesEveryHolder(t *testing.T) {
	users := &stubUserRepo{holders: []*model.User{holder(), holder(), holder()}}
	svc, rec := newTestService(users, &stubStockRepo{})

	payload, err := json.Marshal(map[string]interface{}{"item_name": "contrast dye", "quantity": 2})
	require.NoError(t, err)

	evt := &model.OutboxEvent{ID: uuid.New(), EventType: model.EventLowStock, Payload: payload}
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	pushed := rec.Pushed()
	require.Len(t, pushed, 3)
	recipients := make(map[uuid.UUID]bool)
	for _, n := range pushed {
		assert.Equal(t, model.NotificationLowStockAlert, n.Type)
		recipients[n.Recipient] = true
	}
	assert.Len(t, recipients, 3)
}

func TestHandleMalformedPayloadFails(t *testing.T) {
	svc, rec := newTestService(&stubUserRepo{}, &stubStockRepo{})

	evt := &model.OutboxEvent{ID: uuid.New(), EventType: model.EventNewAppointment, Payload: []byte("{")}
	require.Error(t, svc.HandleEvent(context.Background(), evt))
	assert.Empty(t, rec.Pushed())
}

func TestHandleTerminalTransitionEventsAreSilent(t *testing.T) {
	svc, rec := newTestService(&stubUserRepo{holders: []*model.User{holder()}}, &stubStockRepo{})

	for _, typ := range []string{model.EventAppointmentCompleted, model.EventAppointmentCancelled} {
		evt := &model.OutboxEvent{ID: uuid.New(), EventType: typ, Payload: []byte(`{}`)}
		require.NoError(t, svc.HandleEvent(context.Background(), evt))
	}
	assert.Empty(t, rec.Pushed())
}

func TestSweepLowStockConsolidatesPerHolder(t *testing.T) {
	users := &stubUserRepo{holders: []*model.User{holder(), holder()}}
	stock := &stubStockRepo{low: []*model.StockItem{
		{Base: model.Base{ID: uuid.New()}, ItemName: "film", Quantity: 1, MinQuantity: 10},
		{Base: model.Base{ID: uuid.New()}, ItemName: "gel", Quantity: 0, MinQuantity: 5},
	}}
	svc, rec := newTestService(users, stock)

	notified, err := svc.SweepLowStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, notified)

	// One consolidated alert per holder, each listing both items.
	pushed := rec.Pushed()
	require.Len(t, pushed, 2)
	for _, n := range pushed {
		items, ok := n.Data["items"].([]map[string]interface{})
		require.True(t, ok)
		assert.Len(t, items, 2)
	}
}

func TestSweepLowStockWithNothingLow(t *testing.T) {
	svc, rec := newTestService(&stubUserRepo{holders: []*model.User{holder()}}, &stubStockRepo{})

	notified, err := svc.SweepLowStock(context.Background())
	require.NoError(t, err)
	assert.Zero(t, notified)
	assert.Empty(t, rec.Pushed())
}
