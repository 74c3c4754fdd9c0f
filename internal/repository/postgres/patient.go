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

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, name, phone_number, email, gender, date_of_birth, referred_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.PhoneNumber,
		patient.Email,
		patient.Gender,
		patient.DateOfBirth,
		patient.ReferredBy,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT id, name, phone_number, email, gender, date_of_birth,
			   referred_by, created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, phone_number = $2, email = $3, gender = $4,
			date_of_birth = $5, referred_by = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		patient.Name,
		patient.PhoneNumber,
		patient.Email,
		patient.Gender,
		patient.DateOfBirth,
		patient.ReferredBy,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return requireRowsAffected(result, "patient")
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return requireRowsAffected(result, "patient")
}

func (r *patientRepository) List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	query := `
		SELECT id, name, phone_number, email, gender, date_of_birth,
			   referred_by, created_at, updated_at
		FROM patients
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.ReferredBy != nil {
		query += fmt.Sprintf(" AND referred_by = $%d", argCount)
		args = append(args, *filters.ReferredBy)
		argCount++
	}
	if filters.Search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR phone_number ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+filters.Search+"%")
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY name ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Limit, filters.Offset)

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
