package scancategory

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/clock"
)

type Service struct {
	repo  repository.ScanCategoryRepository
	clock clock.Clock
}

func NewService(repo repository.ScanCategoryRepository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

func (s *Service) Create(ctx context.Context, req *model.CreateScanCategoryRequest) (*model.ScanCategory, error) {
	now := s.clock.Now()
	category := &model.ScanCategory{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsActive:    true,
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.ScanCategory, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateScanCategoryRequest) (*model.ScanCategory, error) {
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Description != nil {
		category.Description = *req.Description
	}
	if req.Price != nil {
		category.Price = *req.Price
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	category.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, params *model.ListParams) ([]*model.ScanCategory, error) {
	params.Normalize()
	return s.repo.List(ctx, params)
}
