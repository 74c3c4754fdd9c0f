package history

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/clock"
)

// Service reads and amends clinical history records. Records are only ever
// created by the scheduling engine when an appointment completes.
type Service struct {
	repo  repository.PatientHistoryRepository
	clock clock.Clock
}

func NewService(repo repository.PatientHistoryRepository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.PatientHistory, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.PatientHistoryFilters) ([]*model.PatientHistory, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

// Amend updates the free-text clinical fields of an existing record.
func (s *Service) Amend(ctx context.Context, id uuid.UUID, diagnosis, treatment, notes string) (*model.PatientHistory, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if diagnosis != "" {
		record.Diagnosis = diagnosis
	}
	if treatment != "" {
		record.Treatment = treatment
	}
	if notes != "" {
		record.Notes = notes
	}
	record.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
