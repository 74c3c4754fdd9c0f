package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/metrics"
)

// Service is the scheduling engine. Every state change flows through the
// legal-transition table; every multi-effect change (conflict check, referral
// counter, clinical history, outbox event) commits in one transaction via the
// repository.
type Service struct {
	repo        repository.AppointmentRepository
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	scanRepo    repository.ScanRepository
	catRepo     repository.ScanCategoryRepository
	clock       clock.Clock
	metrics     *metrics.Metrics
	logger      *zerolog.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	scanRepo repository.ScanRepository,
	catRepo repository.ScanCategoryRepository,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		scanRepo:    scanRepo,
		catRepo:     catRepo,
		clock:       clk,
		metrics:     m,
		logger:      logger,
	}
}

// Create schedules a new appointment. The slot must be free for the doctor
// over active appointments; the check and the insert run in one serializable
// transaction, so concurrent requests for overlapping slots cannot both
// succeed. When the patient was referred, the referring doctor's counter is
// incremented in the same transaction, unless the referrer is the appointment
// doctor.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	doctor, err := s.doctorRepo.Get(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive {
		return nil, errors.BadRequest("doctor is not active", nil)
	}

	patient, err := s.patientRepo.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if req.ScheduledAt.Before(now) {
		return nil, errors.BadRequest("appointment cannot be scheduled in the past", nil)
	}

	totalAmount, err := s.priceFor(ctx, req.ScanID)
	if err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ScanID:      req.ScanID,
		ScheduledAt: req.ScheduledAt,
		Duration:    time.Duration(req.DurationMinutes) * time.Minute,
		Status:      model.AppointmentStatusScheduled,
		Type:        req.Type,
		Notes:       req.Notes,
		TotalAmount: totalAmount,
		CreatedBy:   actorID,
	}

	var referralDoctorID *uuid.UUID
	if patient.ReferredBy != nil && *patient.ReferredBy != appt.DoctorID {
		referralDoctorID = patient.ReferredBy
	}

	evt, err := outboxEvent(model.EventNewAppointment, appt, nil)
	if err != nil {
		return nil, errors.Internal(err)
	}

	if err := s.repo.CreateScheduled(ctx, appt, referralDoctorID, evt); err != nil {
		if errors.Is(err, errors.ErrConflict) {
			s.metrics.AppointmentConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.AppointmentsCreated.Inc()
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

// Transition moves an appointment along the state machine. Illegal moves are
// rejected, never silently ignored. Completing requires diagnosis and
// treatment and produces the patient history record in the same transaction;
// it can therefore happen at most once per appointment, since completed is
// terminal.
func (s *Service) Transition(ctx context.Context, actorID uuid.UUID, id uuid.UUID, req *model.TransitionRequest) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := appt.Status
	if !from.CanTransitionTo(req.Status) {
		return nil, errors.BadRequest(
			fmt.Sprintf("illegal transition from %s to %s", from, req.Status), nil)
	}

	now := s.clock.Now()
	appt.Status = req.Status
	appt.UpdatedAt = now
	appt.UpdatedBy = &actorID
	if req.Notes != "" {
		appt.Notes = req.Notes
	}

	switch req.Status {
	case model.AppointmentStatusCompleted:
		if req.Diagnosis == "" || req.Treatment == "" {
			return nil, errors.BadRequest("diagnosis and treatment are required to complete an appointment", nil)
		}
		history := s.buildHistory(appt, req, now)
		evt, err := outboxEvent(model.EventAppointmentCompleted, appt, map[string]interface{}{
			"diagnosis": history.Diagnosis,
			"treatment": history.Treatment,
			"notes":     history.Notes,
		})
		if err != nil {
			return nil, errors.Internal(err)
		}
		if err := s.repo.CompleteWithHistory(ctx, appt, history, evt); err != nil {
			return nil, err
		}

	case model.AppointmentStatusCancelled:
		appt.CancelledAt = &now
		appt.CancelledBy = &actorID
		appt.CancellationReason = appendReason(appt.CancellationReason, req.Reason)
		evt, err := outboxEvent(model.EventAppointmentCancelled, appt, nil)
		if err != nil {
			return nil, errors.Internal(err)
		}
		if err := s.repo.UpdateWithEvent(ctx, appt, evt); err != nil {
			return nil, err
		}

	default:
		if err := s.repo.UpdateWithEvent(ctx, appt, nil); err != nil {
			return nil, err
		}
	}

	s.metrics.StatusTransitions.WithLabelValues(string(from), string(req.Status)).Inc()
	return appt, nil
}

// Delete removes an appointment that has not progressed beyond scheduled.
// Anything later is part of the clinical trail and must be cancelled instead.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if appt.Status != model.AppointmentStatusScheduled {
		return errors.BadRequest("only scheduled appointments can be deleted", nil)
	}
	return s.repo.Delete(ctx, id)
}

// Schedule returns the doctor's active appointments in [from, to).
func (s *Service) Schedule(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	if !from.Before(to) {
		return nil, errors.BadRequest("start of range must precede end", nil)
	}
	return s.repo.ListActiveForDoctor(ctx, doctorID, from, to)
}

// priceFor derives the appointment total from the scan's category price.
func (s *Service) priceFor(ctx context.Context, scanID *uuid.UUID) (float64, error) {
	if scanID == nil {
		return 0, nil
	}
	scan, err := s.scanRepo.Get(ctx, *scanID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return 0, errors.BadRequest("scan does not exist", err)
		}
		return 0, err
	}
	if !scan.IsActive {
		return 0, errors.BadRequest("scan is not active", nil)
	}
	category, err := s.catRepo.Get(ctx, scan.CategoryID)
	if err != nil {
		return 0, err
	}
	return category.Price, nil
}

func (s *Service) buildHistory(appt *model.Appointment, req *model.TransitionRequest, now time.Time) *model.PatientHistory {
	notes := req.Notes
	if notes == "" {
		notes = fmt.Sprintf("Completed %s appointment", appt.Type)
	}
	return &model.PatientHistory{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PatientID: appt.PatientID,
		DoctorID:  appt.DoctorID,
		Date:      appt.ScheduledAt,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		Notes:     notes,
	}
}

// appendReason keeps every cancellation reason ever supplied; earlier entries
// are never overwritten.
func appendReason(trail, reason string) string {
	if reason == "" {
		return trail
	}
	if trail == "" {
		return reason
	}
	return trail + "; " + reason
}

// outboxEvent builds the durable event row; extra fields (for example the
// clinical outcome on completion) are merged into the payload for consumers
// on the events channel.
func outboxEvent(eventType string, appt *model.Appointment, extra map[string]interface{}) (*model.OutboxEvent, error) {
	fields := map[string]interface{}{
		"appointment_id": appt.ID,
		"patient_id":     appt.PatientID,
		"doctor_id":      appt.DoctorID,
		"scheduled_at":   appt.ScheduledAt,
		"status":         appt.Status,
		"type":           appt.Type,
	}
	for k, v := range extra {
		fields[k] = v
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
	}, nil
}
