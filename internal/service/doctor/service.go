package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/clock"
)

type Service struct {
	repo  repository.DoctorRepository
	clock clock.Clock
}

func NewService(repo repository.DoctorRepository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

func (s *Service) Create(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	now := s.clock.Now()
	doctor := &model.Doctor{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:           req.Name,
		Specialization: req.Specialization,
		PhoneNumber:    req.PhoneNumber,
		Email:          req.Email,
		IsActive:       true,
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.Specialization != nil {
		doctor.Specialization = *req.Specialization
	}
	if req.PhoneNumber != nil {
		doctor.PhoneNumber = req.PhoneNumber
	}
	if req.Email != nil {
		doctor.Email = req.Email
	}
	if req.IsActive != nil {
		doctor.IsActive = *req.IsActive
	}
	doctor.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

// TopReferrers lists doctors with at least one referral, most referrals first.
func (s *Service) TopReferrers(ctx context.Context, limit int) ([]*model.Doctor, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.TopReferrers(ctx, limit)
}
