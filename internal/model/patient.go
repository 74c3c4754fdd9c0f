package model

import (
	"time"

	"github.com/google/uuid"
)

// Patient represents a clinic patient
type Patient struct {
	Base
	Name        string     `json:"name" db:"name"`
	PhoneNumber string     `json:"phone_number" db:"phone_number"`
	Email       *string    `json:"email,omitempty" db:"email"`
	Gender      string     `json:"gender" db:"gender"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`

	// ReferredBy is the referring doctor, when the patient arrived through
	// a referral.
	ReferredBy *uuid.UUID `json:"referred_by,omitempty" db:"referred_by"`
}

type CreatePatientRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=100"`
	PhoneNumber string     `json:"phone_number" binding:"required,phone"`
	Email       *string    `json:"email" binding:"omitempty,email"`
	Gender      string     `json:"gender" binding:"required,oneof=male female other"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	ReferredBy  *uuid.UUID `json:"referred_by"`
}

type UpdatePatientRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=2,max=100"`
	PhoneNumber *string    `json:"phone_number" binding:"omitempty,phone"`
	Email       *string    `json:"email" binding:"omitempty,email"`
	Gender      *string    `json:"gender" binding:"omitempty,oneof=male female other"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	ReferredBy  *uuid.UUID `json:"referred_by"`
}

type PatientFilters struct {
	ListParams
	ReferredBy *uuid.UUID `form:"referred_by"`
	Search     string     `form:"search"`
}
