package scan

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

// Service manages scan offerings. Writes are gated twice: the price must sit
// inside the scan's [min, max] band, and current stock must cover every
// consumable requirement. The gate only checks availability; nothing is
// reserved or decremented here.
type Service struct {
	repo      repository.ScanRepository
	catRepo   repository.ScanCategoryRepository
	stockRepo repository.StockRepository
	clock     clock.Clock
}

func NewService(
	repo repository.ScanRepository,
	catRepo repository.ScanCategoryRepository,
	stockRepo repository.StockRepository,
	clk clock.Clock,
) *Service {
	return &Service{repo: repo, catRepo: catRepo, stockRepo: stockRepo, clock: clk}
}

func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req *model.CreateScanRequest) (*model.Scan, error) {
	if err := validatePriceBand(req.Price, req.MinPrice, req.MaxPrice); err != nil {
		return nil, err
	}
	if _, err := s.catRepo.Get(ctx, req.CategoryID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.BadRequest("scan category does not exist", err)
		}
		return nil, err
	}
	if err := s.requireSufficientStock(ctx, req.Items); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	scan := &model.Scan{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
		Items:       req.Items,
		Duration:    req.Duration,
		IsActive:    true,
		CreatedBy:   actorID,
		UpdatedBy:   actorID,
	}

	if err := s.repo.Create(ctx, scan); err != nil {
		return nil, err
	}
	return scan, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Scan, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.UpdateScanRequest) (*model.Scan, error) {
	scan, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		scan.Name = *req.Name
	}
	if req.Description != nil {
		scan.Description = *req.Description
	}
	if req.Price != nil {
		scan.Price = *req.Price
	}
	if req.MinPrice != nil {
		scan.MinPrice = *req.MinPrice
	}
	if req.MaxPrice != nil {
		scan.MaxPrice = *req.MaxPrice
	}
	if req.Items != nil {
		scan.Items = req.Items
	}
	if req.Duration != nil {
		scan.Duration = *req.Duration
	}
	if req.IsActive != nil {
		scan.IsActive = *req.IsActive
	}

	if err := validatePriceBand(scan.Price, scan.MinPrice, scan.MaxPrice); err != nil {
		return nil, err
	}
	if err := s.requireSufficientStock(ctx, scan.Items); err != nil {
		return nil, err
	}

	scan.UpdatedBy = actorID
	scan.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, scan); err != nil {
		return nil, err
	}
	return scan, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.ScanFilters) ([]*model.Scan, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

// Availability reports, per consumable of the scan, whether current stock
// covers the requirement.
func (s *Service) Availability(ctx context.Context, id uuid.UUID) ([]model.StockStatus, error) {
	scan, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.stockByID(ctx, scan.Items)
	if err != nil {
		return nil, err
	}

	report := make([]model.StockStatus, 0, len(scan.Items))
	for _, required := range scan.Items {
		status := model.StockStatus{
			StockItemID: required.StockItemID,
			Required:    required.Quantity,
		}
		if item, ok := items[required.StockItemID]; ok {
			status.ItemName = item.ItemName
			status.Available = item.Quantity
			status.Sufficient = item.Quantity >= required.Quantity
		}
		report = append(report, status)
	}
	return report, nil
}

func (s *Service) requireSufficientStock(ctx context.Context, required []model.ScanItem) error {
	items, err := s.stockByID(ctx, required)
	if err != nil {
		return err
	}

	for _, req := range required {
		item, ok := items[req.StockItemID]
		if !ok {
			return errors.NotFound(fmt.Sprintf("stock item %s", req.StockItemID), nil)
		}
		if item.Quantity < req.Quantity {
			return errors.Conflict(
				fmt.Sprintf("insufficient stock of %s: need %d, have %d", item.ItemName, req.Quantity, item.Quantity), nil)
		}
	}
	return nil
}

func (s *Service) stockByID(ctx context.Context, required []model.ScanItem) (map[uuid.UUID]*model.StockItem, error) {
	ids := make([]uuid.UUID, 0, len(required))
	for _, item := range required {
		ids = append(ids, item.StockItemID)
	}

	items, err := s.stockRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*model.StockItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return byID, nil
}

func validatePriceBand(price, min, max float64) error {
	if min > max {
		return errors.BadRequest("min price cannot exceed max price", nil)
	}
	if price < min || price > max {
		return errors.BadRequest(
			fmt.Sprintf("price %.2f is outside the allowed band [%.2f, %.2f]", price, min, max), nil)
	}
	return nil
}
