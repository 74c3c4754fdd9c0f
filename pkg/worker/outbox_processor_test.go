package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/notifier"
	"github.com/jwalitptl/radiology-api/internal/service/coordinator"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/logger"
	"github.com/jwalitptl/radiology-api/pkg/messaging"
	"github.com/jwalitptl/radiology-api/pkg/metrics"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

type stubOutboxRepo struct {
	pending   []*model.OutboxEvent
	processed []uuid.UUID
	failed    map[uuid.UUID]string
}

func newStubOutboxRepo(events ...*model.OutboxEvent) *stubOutboxRepo {
	return &stubOutboxRepo{pending: events, failed: make(map[uuid.UUID]string)}
}

func (r *stubOutboxRepo) Create(_ context.Context, evt *model.OutboxEvent) error {
	r.pending = append(r.pending, evt)
	return nil
}

func (r *stubOutboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *stubOutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID, _ time.Time) error {
	r.processed = append(r.processed, id)
	return nil
}

func (r *stubOutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	r.failed[id] = errMsg
	return nil
}

func (r *stubOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type stubBroker struct {
	published map[string]int
	fail      bool
}

func newStubBroker() *stubBroker {
	return &stubBroker{published: make(map[string]int)}
}

func (b *stubBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	if b.fail {
		return fmt.Errorf("broker unavailable")
	}
	b.published[channel]++
	return nil
}

func (b *stubBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *stubBroker) Close() error { return nil }

type emptyUserRepo struct{}

func (emptyUserRepo) Create(_ context.Context, _ *model.User) error { return nil }
func (emptyUserRepo) Get(_ context.Context, _ uuid.UUID) (*model.User, error) {
	return nil, errors.NotFound("user", nil)
}
func (emptyUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, errors.NotFound("user", nil)
}
func (emptyUserRepo) Update(_ context.Context, _ *model.User) error { return nil }
func (emptyUserRepo) UpdatePassword(_ context.Context, _ uuid.UUID, _ string, _ time.Time) error {
	return nil
}
func (emptyUserRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }
func (emptyUserRepo) List(_ context.Context, _ *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}
func (emptyUserRepo) ReplaceGrants(_ context.Context, _ uuid.UUID, _ []privilege.Grant) error {
	return nil
}
func (emptyUserRepo) ListWithPrivilege(_ context.Context, _ privilege.Module, _ privilege.Operation) ([]*model.User, error) {
	return nil, nil
}

type emptyStockRepo struct{}

func (emptyStockRepo) Create(_ context.Context, _ *model.StockItem) error { return nil }
func (emptyStockRepo) Get(_ context.Context, _ uuid.UUID) (*model.StockItem, error) {
	return nil, errors.NotFound("stock item", nil)
}
func (emptyStockRepo) GetByIDs(_ context.Context, _ []uuid.UUID) ([]*model.StockItem, error) {
	return nil, nil
}
func (emptyStockRepo) Update(_ context.Context, _ *model.StockItem) error { return nil }
func (emptyStockRepo) AdjustQuantity(_ context.Context, _ uuid.UUID, _ int, _ uuid.UUID, _ time.Time) (*model.StockItem, error) {
	return nil, errors.NotFound("stock item", nil)
}
func (emptyStockRepo) Delete(_ context.Context, _ uuid.UUID) error { return nil }
func (emptyStockRepo) List(_ context.Context, _ *model.StockFilters) ([]*model.StockItem, error) {
	return nil, nil
}
func (emptyStockRepo) ListLow(_ context.Context) ([]*model.StockItem, error) { return nil, nil }

func appointmentEvent(t *testing.T) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"appointment_id": uuid.New(),
		"doctor_id":      uuid.New(),
		"patient_id":     uuid.New(),
	})
	require.NoError(t, err)
	return &model.OutboxEvent{ID: uuid.New(), EventType: model.EventNewAppointment, Payload: payload}
}

func newProcessor(repo *stubOutboxRepo, broker messaging.Broker) (*OutboxProcessor, *notifier.Recorder) {
	zl := zerolog.Nop()
	rec := notifier.NewRecorder()
	m := metrics.New("test", prometheus.NewRegistry())
	coord := coordinator.NewService(emptyUserRepo{}, emptyStockRepo{}, rec, m, &zl)
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	lg := logger.FromZerolog(zl)

	return NewOutboxProcessor(repo, broker, coord, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Millisecond,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, clk, lg, m), rec
}

func TestProcessEventsMarksProcessedAndRepublishes(t *testing.T) {
	repo := newStubOutboxRepo(appointmentEvent(t), appointmentEvent(t))
	broker := newStubBroker()
	p, rec := newProcessor(repo, broker)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Len(t, repo.processed, 2)
	assert.Empty(t, repo.failed)
	assert.Equal(t, 2, broker.published[messaging.ChannelEvents])
	// Each appointment event pushed one doctor notification.
	assert.Len(t, rec.Pushed(), 2)
}

func TestProcessEventsMarksFailedWhenPublishFails(t *testing.T) {
	evt := appointmentEvent(t)
	repo := newStubOutboxRepo(evt)
	broker := newStubBroker()
	broker.fail = true
	p, _ := newProcessor(repo, broker)

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, repo.processed)
	require.Contains(t, repo.failed, evt.ID)
	assert.Contains(t, repo.failed[evt.ID], "broker unavailable")
}

func TestProcessEventsMarksMalformedEventFailed(t *testing.T) {
	evt := &model.OutboxEvent{ID: uuid.New(), EventType: model.EventNewAppointment, Payload: []byte("{")}
	repo := newStubOutboxRepo(evt)
	p, _ := newProcessor(repo, newStubBroker())

	require.NoError(t, p.processEvents(context.Background()))

	assert.Empty(t, repo.processed)
	assert.Contains(t, repo.failed, evt.ID)
}

func TestProcessEventsHonorsBatchSize(t *testing.T) {
	repo := newStubOutboxRepo()
	for i := 0; i < 15; i++ {
		repo.pending = append(repo.pending, appointmentEvent(t))
	}
	p, _ := newProcessor(repo, newStubBroker())

	require.NoError(t, p.processEvents(context.Background()))
	assert.Len(t, repo.processed, 10)
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		newBadProcessor(t, OutboxProcessorConfig{BatchSize: 0, PollInterval: time.Second, RetryAttempts: 1, RetryDelay: time.Second})
	})
	assert.Panics(t, func() {
		newBadProcessor(t, OutboxProcessorConfig{BatchSize: 1, PollInterval: 0, RetryAttempts: 1, RetryDelay: time.Second})
	})
}

func newBadProcessor(t *testing.T, cfg OutboxProcessorConfig) {
	t.Helper()
	zl := zerolog.Nop()
	m := metrics.New("test", prometheus.NewRegistry())
	coord := coordinator.NewService(emptyUserRepo{}, emptyStockRepo{}, notifier.NewRecorder(), m, &zl)
	NewOutboxProcessor(newStubOutboxRepo(), newStubBroker(), coord, cfg, clock.NewFake(time.Now()), logger.FromZerolog(zl), m)
}
