package model

import (
	"time"

	"github.com/google/uuid"
)

// PatientHistory is the clinical record created when an appointment reaches
// completed. It is owned by the clinical record, not the appointment: the
// appointment may be archived independently once terminal.
type PatientHistory struct {
	Base
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id" db:"doctor_id"`
	Date      time.Time `json:"date" db:"date"`
	Diagnosis string    `json:"diagnosis" db:"diagnosis"`
	Treatment string    `json:"treatment" db:"treatment"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
}

type PatientHistoryFilters struct {
	ListParams
	PatientID *uuid.UUID `form:"patient_id"`
	DoctorID  *uuid.UUID `form:"doctor_id"`
	StartDate *time.Time `form:"start_date"`
	EndDate   *time.Time `form:"end_date"`
}
