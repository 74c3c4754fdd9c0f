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

type doctorRepository struct {
	BaseRepository
}

func NewDoctorRepository(base BaseRepository) repository.DoctorRepository {
	return &doctorRepository{base}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, name, specialization, phone_number, email, is_active,
			referral_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Specialization,
		doctor.PhoneNumber,
		doctor.Email,
		doctor.IsActive,
		doctor.ReferralCount,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, name, specialization, phone_number, email, is_active,
			   referral_count, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	// referral_count is deliberately absent: it only moves through the
	// atomic increment inside appointment creation.
	query := `
		UPDATE doctors
		SET name = $1, specialization = $2, phone_number = $3, email = $4,
			is_active = $5, updated_at = $6
		WHERE id = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		doctor.Name,
		doctor.Specialization,
		doctor.PhoneNumber,
		doctor.Email,
		doctor.IsActive,
		doctor.UpdatedAt,
		doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	return requireRowsAffected(result, "doctor")
}

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	return requireRowsAffected(result, "doctor")
}

func (r *doctorRepository) List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error) {
	query := `
		SELECT id, name, specialization, phone_number, email, is_active,
			   referral_count, created_at, updated_at
		FROM doctors
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.IsActive != nil {
		query += fmt.Sprintf(" AND is_active = $%d", argCount)
		args = append(args, *filters.IsActive)
		argCount++
	}
	if filters.Search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR specialization ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+filters.Search+"%")
		argCount++
	}

	query += fmt.Sprintf(" ORDER BY name ASC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.Limit, filters.Offset)

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (r *doctorRepository) TopReferrers(ctx context.Context, limit int) ([]*model.Doctor, error) {
	query := `
		SELECT id, name, specialization, phone_number, email, is_active,
			   referral_count, created_at, updated_at
		FROM doctors
		WHERE referral_count > 0
		ORDER BY referral_count DESC, name ASC
		LIMIT $1
	`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list top referrers: %w", err)
	}
	return doctors, nil
}
