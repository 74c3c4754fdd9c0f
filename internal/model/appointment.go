package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled  AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed  AppointmentStatus = "confirmed"
	AppointmentStatusInProgress AppointmentStatus = "in_progress"
	AppointmentStatusCompleted  AppointmentStatus = "completed"
	AppointmentStatusCancelled  AppointmentStatus = "cancelled"
	AppointmentStatusNoShow     AppointmentStatus = "no_show"
)

type AppointmentType string

const (
	AppointmentTypeRegular   AppointmentType = "regular"
	AppointmentTypeUrgent    AppointmentType = "urgent"
	AppointmentTypeEmergency AppointmentType = "emergency"
)

// appointmentTransitions is the closed legal-transition table. Cancelled and
// no_show are reachable from every non-terminal state and are listed
// explicitly so the table alone answers every transition question.
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusScheduled:  {AppointmentStatusConfirmed, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusConfirmed:  {AppointmentStatusInProgress, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusInProgress: {AppointmentStatusCompleted, AppointmentStatusCancelled, AppointmentStatusNoShow},
	AppointmentStatusCompleted:  {},
	AppointmentStatusCancelled:  {},
	AppointmentStatusNoShow:     {},
}

// IsTerminal reports whether no further transition is legal out of s.
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled || s == AppointmentStatusNoShow
}

// IsActive reports whether the status occupies the doctor's calendar for
// conflict purposes.
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusScheduled || s == AppointmentStatusConfirmed
}

// CanTransitionTo consults the legal-transition table.
func (s AppointmentStatus) CanTransitionTo(target AppointmentStatus) bool {
	for _, next := range appointmentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Appointment represents a scheduled diagnostic visit
type Appointment struct {
	Base
	PatientID   uuid.UUID         `json:"patient_id" db:"patient_id"`
	DoctorID    uuid.UUID         `json:"doctor_id" db:"doctor_id"`
	ScanID      *uuid.UUID        `json:"scan_id,omitempty" db:"scan_id"`
	ScheduledAt time.Time         `json:"scheduled_at" db:"scheduled_at"`
	Duration    time.Duration     `json:"duration" db:"duration"`
	Status      AppointmentStatus `json:"status" db:"status"`
	Type        AppointmentType   `json:"type" db:"type"`
	Notes       string            `json:"notes,omitempty" db:"notes"`
	TotalAmount float64           `json:"total_amount" db:"total_amount"`

	CreatedBy          uuid.UUID  `json:"created_by" db:"created_by"`
	UpdatedBy          *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancellationReason string     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
}

// End returns the exclusive end of the appointment window.
func (a *Appointment) End() time.Time {
	return a.ScheduledAt.Add(a.Duration)
}

// Overlaps reports whether two half-open windows [start, end) intersect.
// Back-to-back appointments (one ends exactly when the next starts) do not
// overlap.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.ScheduledAt.Before(end) && start.Before(a.End())
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID       `json:"patient_id" binding:"required"`
	DoctorID        uuid.UUID       `json:"doctor_id" binding:"required"`
	ScanID          *uuid.UUID      `json:"scan_id"`
	ScheduledAt     time.Time       `json:"scheduled_at" binding:"required"`
	DurationMinutes int             `json:"duration_minutes" binding:"required,min=15,max=240"`
	Type            AppointmentType `json:"type" binding:"required,oneof=regular urgent emergency"`
	Notes           string          `json:"notes" binding:"max=1000"`
}

// TransitionRequest carries a status-transition payload. Diagnosis and
// treatment are required when the target status is completed; Reason feeds
// the cancellation trail.
type TransitionRequest struct {
	Status    AppointmentStatus `json:"status" binding:"required,oneof=scheduled confirmed in_progress completed cancelled no_show"`
	Diagnosis string            `json:"diagnosis" binding:"max=2000"`
	Treatment string            `json:"treatment" binding:"max=2000"`
	Notes     string            `json:"notes" binding:"max=1000"`
	Reason    string            `json:"reason" binding:"max=500"`
}

type AppointmentFilters struct {
	ListParams
	PatientID *uuid.UUID         `form:"patient_id"`
	DoctorID  *uuid.UUID         `form:"doctor_id"`
	Status    *AppointmentStatus `form:"status"`
	StartDate *time.Time         `form:"start_date"`
	EndDate   *time.Time         `form:"end_date"`
}
