package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

const slotConflictMessage = "the doctor already has an appointment in this time slot"

const appointmentColumns = `
	id, patient_id, doctor_id, scan_id, scheduled_at, duration, status, type,
	notes, total_amount, created_by, updated_by, cancelled_at, cancelled_by,
	cancellation_reason, created_at, updated_at
`

// CreateScheduled inserts a new appointment inside a serializable transaction.
// The conflict re-check runs inside the same transaction as the insert, so two
// concurrent requests for overlapping slots cannot both commit: one of them
// either sees the other's row or fails with a serialization error, which is
// surfaced as a slot conflict.
func (r *appointmentRepository) CreateScheduled(ctx context.Context, appt *model.Appointment, referralDoctorID *uuid.UUID, evt *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// duration is stored as nanoseconds; the interval product recovers the
	// exclusive end of each existing window.
	conflictQuery := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND status IN ('scheduled', 'confirmed')
			AND scheduled_at < $3
			AND scheduled_at + interval '1 nanosecond' * duration > $2
		)
	`
	var hasConflict bool
	if err := tx.GetContext(ctx, &hasConflict, conflictQuery, appt.DoctorID, appt.ScheduledAt, appt.End()); err != nil {
		if isSerializationFailure(err) {
			return errors.Conflict(slotConflictMessage, err)
		}
		return fmt.Errorf("failed to check conflicts: %w", err)
	}
	if hasConflict {
		return errors.Conflict(slotConflictMessage, nil)
	}

	insertQuery := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, scan_id, scheduled_at, duration, status,
			type, notes, total_amount, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.ExecContext(ctx, insertQuery,
		appt.ID,
		appt.PatientID,
		appt.DoctorID,
		appt.ScanID,
		appt.ScheduledAt,
		appt.Duration,
		appt.Status,
		appt.Type,
		appt.Notes,
		appt.TotalAmount,
		appt.CreatedBy,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		if isSerializationFailure(err) {
			return errors.Conflict(slotConflictMessage, err)
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if referralDoctorID != nil {
		incrementQuery := `
			UPDATE doctors
			SET referral_count = referral_count + 1, updated_at = $1
			WHERE id = $2
		`
		if _, err := tx.ExecContext(ctx, incrementQuery, appt.CreatedAt, *referralDoctorID); err != nil {
			if isSerializationFailure(err) {
				return errors.Conflict(slotConflictMessage, err)
			}
			return fmt.Errorf("failed to increment referral count: %w", err)
		}
	}

	if err := insertOutboxTx(ctx, tx, evt, appt.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			return errors.Conflict(slotConflictMessage, err)
		}
		return fmt.Errorf("failed to commit appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appt model.Appointment
	err := r.db.GetContext(ctx, &appt, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	result, err := r.db.ExecContext(ctx, updateAppointmentQuery, updateAppointmentArgs(appt)...)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return requireRowsAffected(result, "appointment")
}

func (r *appointmentRepository) UpdateWithEvent(ctx context.Context, appt *model.Appointment, evt *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateAppointmentTx(ctx, tx, appt); err != nil {
		return err
	}
	if err := insertOutboxTx(ctx, tx, evt, appt.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// CompleteWithHistory commits the completed transition and the clinical
// record it produces as one unit: either both rows land or neither does.
func (r *appointmentRepository) CompleteWithHistory(ctx context.Context, appt *model.Appointment, history *model.PatientHistory, evt *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateAppointmentTx(ctx, tx, appt); err != nil {
		return err
	}

	historyQuery := `
		INSERT INTO patient_history (
			id, patient_id, doctor_id, date, diagnosis, treatment, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, historyQuery,
		history.ID,
		history.PatientID,
		history.DoctorID,
		history.Date,
		history.Diagnosis,
		history.Treatment,
		history.Notes,
		history.CreatedAt,
		history.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient history: %w", err)
	}

	if err := insertOutboxTx(ctx, tx, evt, appt.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return requireRowsAffected(result, "appointment")
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.PatientID != nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, *filters.PatientID)
		argCount++
	}
	if filters.DoctorID != nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", argCount)
		args = append(args, *filters.DoctorID)
		argCount++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.StartDate != nil {
		query += fmt.Sprintf(" AND scheduled_at >= $%d", argCount)
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		query += fmt.Sprintf(" AND scheduled_at < $%d", argCount)
		args = append(args, *filters.EndDate)
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY scheduled_at ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Limit, filters.Offset)

	var appts []*model.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

// ListActiveForDoctor returns calendar-occupying appointments overlapping the
// half-open window [from, to).
func (r *appointmentRepository) ListActiveForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1
		AND status IN ('scheduled', 'confirmed')
		AND scheduled_at < $3
		AND scheduled_at + interval '1 nanosecond' * duration > $2
		ORDER BY scheduled_at ASC
	`
	var appts []*model.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, doctorID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appts, nil
}

const updateAppointmentQuery = `
	UPDATE appointments
	SET status = $1, notes = $2, updated_by = $3, cancelled_at = $4,
		cancelled_by = $5, cancellation_reason = $6, updated_at = $7
	WHERE id = $8
`

func updateAppointmentArgs(appt *model.Appointment) []interface{} {
	return []interface{}{
		appt.Status,
		appt.Notes,
		appt.UpdatedBy,
		appt.CancelledAt,
		appt.CancelledBy,
		appt.CancellationReason,
		appt.UpdatedAt,
		appt.ID,
	}
}

func updateAppointmentTx(ctx context.Context, tx *sqlx.Tx, appt *model.Appointment) error {
	result, err := tx.ExecContext(ctx, updateAppointmentQuery, updateAppointmentArgs(appt)...)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return requireRowsAffected(result, "appointment")
}
