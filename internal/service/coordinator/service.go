package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/notifier"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/metrics"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

// Service reacts to committed scheduling and stock events. The durable side
// effects (referral counters, history records) are already part of the
// transactions that produced the events; what remains here is best-effort
// fan-out: pushing notifications to the principals who care. A failed push is
// logged and dropped, never retried against committed state.
type Service struct {
	userRepo  repository.UserRepository
	stockRepo repository.StockRepository
	notifier  notifier.Notifier
	metrics   *metrics.Metrics
	logger    *zerolog.Logger
}

func NewService(
	userRepo repository.UserRepository,
	stockRepo repository.StockRepository,
	n notifier.Notifier,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		userRepo:  userRepo,
		stockRepo: stockRepo,
		notifier:  n,
		metrics:   m,
		logger:    logger,
	}
}

// HandleEvent dispatches one drained outbox event.
func (s *Service) HandleEvent(ctx context.Context, evt *model.OutboxEvent) error {
	switch evt.EventType {
	case model.EventNewAppointment:
		return s.handleNewAppointment(ctx, evt)
	case model.EventLowStock:
		return s.handleLowStock(ctx, evt)
	case model.EventAppointmentCompleted, model.EventAppointmentCancelled:
		// Durable effects already committed with the transition; nothing to
		// fan out.
		return nil
	default:
		s.logger.Warn().Str("event_type", evt.EventType).Msg("ignoring unknown outbox event")
		return nil
	}
}

func (s *Service) handleNewAppointment(ctx context.Context, evt *model.OutboxEvent) error {
	var payload struct {
		AppointmentID uuid.UUID `json:"appointment_id"`
		DoctorID      uuid.UUID `json:"doctor_id"`
		PatientID     uuid.UUID `json:"patient_id"`
		ScheduledAt   string    `json:"scheduled_at"`
		Type          string    `json:"type"`
	}
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return fmt.Errorf("malformed appointment event payload: %w", err)
	}

	s.push(ctx, &model.Notification{
		Type:      model.NotificationNewAppointment,
		Recipient: payload.DoctorID,
		Data: map[string]interface{}{
			"appointment_id": payload.AppointmentID,
			"patient_id":     payload.PatientID,
			"scheduled_at":   payload.ScheduledAt,
			"type":           payload.Type,
		},
	})
	return nil
}

func (s *Service) handleLowStock(ctx context.Context, evt *model.OutboxEvent) error {
	var payload map[string]interface{}
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		return fmt.Errorf("malformed low stock event payload: %w", err)
	}
	return s.notifyStockHolders(ctx, payload)
}

// SweepLowStock finds every item at or below its threshold and sends one
// consolidated alert per principal holding the stock update capability.
// It returns the number of notifications pushed.
func (s *Service) SweepLowStock(ctx context.Context) (int, error) {
	items, err := s.stockRepo.ListLow(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	lines := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		lines = append(lines, map[string]interface{}{
			"stock_item_id": item.ID,
			"item_name":     item.ItemName,
			"quantity":      item.Quantity,
			"min_quantity":  item.MinQuantity,
		})
	}

	recipients, err := s.userRepo.ListWithPrivilege(ctx, privilege.ModuleStock, privilege.OpUpdate)
	if err != nil {
		return 0, err
	}

	for _, user := range recipients {
		s.push(ctx, &model.Notification{
			Type:      model.NotificationLowStockAlert,
			Recipient: user.ID,
			Data:      map[string]interface{}{"items": lines},
		})
	}
	return len(recipients), nil
}

func (s *Service) notifyStockHolders(ctx context.Context, data map[string]interface{}) error {
	recipients, err := s.userRepo.ListWithPrivilege(ctx, privilege.ModuleStock, privilege.OpUpdate)
	if err != nil {
		return err
	}

	for _, user := range recipients {
		s.push(ctx, &model.Notification{
			Type:      model.NotificationLowStockAlert,
			Recipient: user.ID,
			Data:      data,
		})
	}
	return nil
}

func (s *Service) push(ctx context.Context, n *model.Notification) {
	if err := s.notifier.Push(ctx, n); err != nil {
		s.metrics.NotificationsFailed.Inc()
		s.logger.Error().Err(err).
			Str("type", string(n.Type)).
			Str("recipient", n.Recipient.String()).
			Msg("failed to push notification")
		return
	}
	s.metrics.NotificationsPushed.Inc()
}
