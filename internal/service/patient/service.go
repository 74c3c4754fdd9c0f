package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type Service struct {
	repo       repository.PatientRepository
	doctorRepo repository.DoctorRepository
	clock      clock.Clock
}

func NewService(repo repository.PatientRepository, doctorRepo repository.DoctorRepository, clk clock.Clock) *Service {
	return &Service{repo: repo, doctorRepo: doctorRepo, clock: clk}
}

func (s *Service) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if req.ReferredBy != nil {
		if _, err := s.doctorRepo.Get(ctx, *req.ReferredBy); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.BadRequest("referring doctor does not exist", err)
			}
			return nil, err
		}
	}

	now := s.clock.Now()
	patient := &model.Patient{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Gender:      req.Gender,
		DateOfBirth: req.DateOfBirth,
		ReferredBy:  req.ReferredBy,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ReferredBy != nil {
		if _, err := s.doctorRepo.Get(ctx, *req.ReferredBy); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.BadRequest("referring doctor does not exist", err)
			}
			return nil, err
		}
		patient.ReferredBy = req.ReferredBy
	}
	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.PhoneNumber != nil {
		patient.PhoneNumber = *req.PhoneNumber
	}
	if req.Email != nil {
		patient.Email = req.Email
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	patient.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}
