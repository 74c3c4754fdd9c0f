package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type patientHistoryRepository struct {
	BaseRepository
}

func NewPatientHistoryRepository(base BaseRepository) repository.PatientHistoryRepository {
	return &patientHistoryRepository{base}
}

func (r *patientHistoryRepository) Create(ctx context.Context, history *model.PatientHistory) error {
	query := `
		INSERT INTO patient_history (
			id, patient_id, doctor_id, date, diagnosis, treatment, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
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
	return nil
}

func (r *patientHistoryRepository) Get(ctx context.Context, id uuid.UUID) (*model.PatientHistory, error) {
	query := `
		SELECT id, patient_id, doctor_id, date, diagnosis, treatment, notes,
			   created_at, updated_at
		FROM patient_history
		WHERE id = $1
	`
	var history model.PatientHistory
	err := r.db.GetContext(ctx, &history, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("patient history record", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient history: %w", err)
	}
	return &history, nil
}

func (r *patientHistoryRepository) Update(ctx context.Context, history *model.PatientHistory) error {
	query := `
		UPDATE patient_history
		SET diagnosis = $1, treatment = $2, notes = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		history.Diagnosis,
		history.Treatment,
		history.Notes,
		history.UpdatedAt,
		history.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient history: %w", err)
	}
	return requireRowsAffected(result, "patient history record")
}

func (r *patientHistoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patient_history WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient history: %w", err)
	}
	return requireRowsAffected(result, "patient history record")
}

func (r *patientHistoryRepository) List(ctx context.Context, filters *model.PatientHistoryFilters) ([]*model.PatientHistory, error) {
	query := `
		SELECT id, patient_id, doctor_id, date, diagnosis, treatment, notes,
			   created_at, updated_at
		FROM patient_history
		WHERE 1=1
	`
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
	if filters.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argCount)
		args = append(args, *filters.StartDate)
		argCount++
	}
	if filters.EndDate != nil {
		query += fmt.Sprintf(" AND date < $%d", argCount)
		args = append(args, *filters.EndDate)
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY date DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Limit, filters.Offset)

	var records []*model.PatientHistory
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patient history: %w", err)
	}
	return records, nil
}
