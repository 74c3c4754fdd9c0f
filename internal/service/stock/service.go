package stock

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type Service struct {
	repo       repository.StockRepository
	outboxRepo repository.OutboxRepository
	clock      clock.Clock
	logger     *zerolog.Logger
}

func NewService(repo repository.StockRepository, outboxRepo repository.OutboxRepository, clk clock.Clock, logger *zerolog.Logger) *Service {
	return &Service{repo: repo, outboxRepo: outboxRepo, clock: clk, logger: logger}
}

func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req *model.CreateStockItemRequest) (*model.StockItem, error) {
	now := s.clock.Now()
	item := &model.StockItem{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ItemName:      req.ItemName,
		Category:      req.Category,
		Quantity:      req.Quantity,
		MinQuantity:   req.MinQuantity,
		Unit:          req.Unit,
		Location:      req.Location,
		ExpiryDate:    req.ExpiryDate,
		LastUpdatedBy: actorID,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.UpdateStockItemRequest) (*model.StockItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ItemName != nil {
		item.ItemName = *req.ItemName
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.MinQuantity != nil {
		item.MinQuantity = *req.MinQuantity
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.Location != nil {
		item.Location = req.Location
	}
	if req.ExpiryDate != nil {
		item.ExpiryDate = req.ExpiryDate
	}
	item.LastUpdatedBy = actorID
	item.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Adjust applies an add or deduct operation to the quantity. Deductions that
// would take the level below zero fail with a conflict and change nothing.
func (s *Service) Adjust(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.AdjustQuantityRequest) (*model.StockItem, error) {
	delta := req.Quantity
	switch req.Operation {
	case "add":
	case "deduct":
		delta = -delta
	default:
		return nil, errors.BadRequest("operation must be add or deduct", nil)
	}

	item, err := s.repo.AdjustQuantity(ctx, id, delta, actorID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if item.IsLow() {
		s.emitLowStockEvent(ctx, item)
	}
	return item, nil
}

// emitLowStockEvent records that the item dropped to or below its threshold.
// The worker drains the event and alerts the principals who manage stock.
func (s *Service) emitLowStockEvent(ctx context.Context, item *model.StockItem) {
	payload, err := json.Marshal(map[string]interface{}{
		"stock_item_id": item.ID,
		"item_name":     item.ItemName,
		"quantity":      item.Quantity,
		"min_quantity":  item.MinQuantity,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode low stock event")
		return
	}

	evt := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.EventLowStock,
		Payload:   payload,
		CreatedAt: s.clock.Now(),
	}
	if err := s.outboxRepo.Create(ctx, evt); err != nil {
		s.logger.Error().Err(err).Str("stock_item_id", item.ID.String()).Msg("failed to record low stock event")
	}
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.StockFilters) ([]*model.StockItem, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) ListLow(ctx context.Context) ([]*model.StockItem, error) {
	return s.repo.ListLow(ctx)
}
