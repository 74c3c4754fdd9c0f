package model

// Doctor represents a referring doctor
type Doctor struct {
	Base
	Name           string  `json:"name" db:"name"`
	Specialization string  `json:"specialization" db:"specialization"`
	PhoneNumber    *string `json:"phone_number,omitempty" db:"phone_number"`
	Email          *string `json:"email,omitempty" db:"email"`
	IsActive       bool    `json:"is_active" db:"is_active"`

	// ReferralCount is incremented by the coordinator when an appointment is
	// created for a patient this doctor referred. It is never decremented.
	ReferralCount int `json:"referral_count" db:"referral_count"`
}

type CreateDoctorRequest struct {
	Name           string  `json:"name" binding:"required,min=2,max=100"`
	Specialization string  `json:"specialization" binding:"required,min=2,max=100"`
	PhoneNumber    *string `json:"phone_number" binding:"omitempty,phone"`
	Email          *string `json:"email" binding:"omitempty,email"`
}

type UpdateDoctorRequest struct {
	Name           *string `json:"name" binding:"omitempty,min=2,max=100"`
	Specialization *string `json:"specialization" binding:"omitempty,min=2,max=100"`
	PhoneNumber    *string `json:"phone_number" binding:"omitempty,phone"`
	Email          *string `json:"email" binding:"omitempty,email"`
	IsActive       *bool   `json:"is_active"`
}

type DoctorFilters struct {
	ListParams
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"`
}
