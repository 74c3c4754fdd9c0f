package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

// All repository interfaces in one file
type (
	// UserRepository persists users and their privilege grants.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
		ReplaceGrants(ctx context.Context, userID uuid.UUID, grants []privilege.Grant) error
		// ListWithPrivilege returns the active users holding the given
		// operation on the module, super-admins included.
		ListWithPrivilege(ctx context.Context, module privilege.Module, op privilege.Operation) ([]*model.User, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.DoctorFilters) ([]*model.Doctor, error)
		TopReferrers(ctx context.Context, limit int) ([]*model.Doctor, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
	}

	// AppointmentRepository persists appointments. The multi-effect methods
	// run every listed write in a single transaction so observers never see a
	// partial outcome.
	AppointmentRepository interface {
		// CreateScheduled inserts the appointment after re-checking for slot
		// conflicts inside a serializable transaction. When referralDoctorID
		// is set the referring doctor's counter is incremented in the same
		// transaction, and evt is written to the outbox alongside.
		CreateScheduled(ctx context.Context, appt *model.Appointment, referralDoctorID *uuid.UUID, evt *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appt *model.Appointment) error
		// UpdateWithEvent applies a status transition and writes evt to the
		// outbox in one transaction. evt may be nil for silent transitions.
		UpdateWithEvent(ctx context.Context, appt *model.Appointment, evt *model.OutboxEvent) error
		// CompleteWithHistory applies the completed transition, inserts the
		// clinical history record, and writes evt, all in one transaction.
		CompleteWithHistory(ctx context.Context, appt *model.Appointment, history *model.PatientHistory, evt *model.OutboxEvent) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		ListActiveForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
	}

	PatientHistoryRepository interface {
		Create(ctx context.Context, history *model.PatientHistory) error
		Get(ctx context.Context, id uuid.UUID) (*model.PatientHistory, error)
		Update(ctx context.Context, history *model.PatientHistory) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PatientHistoryFilters) ([]*model.PatientHistory, error)
	}

	ScanCategoryRepository interface {
		Create(ctx context.Context, category *model.ScanCategory) error
		Get(ctx context.Context, id uuid.UUID) (*model.ScanCategory, error)
		Update(ctx context.Context, category *model.ScanCategory) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, params *model.ListParams) ([]*model.ScanCategory, error)
	}

	ScanRepository interface {
		Create(ctx context.Context, scan *model.Scan) error
		Get(ctx context.Context, id uuid.UUID) (*model.Scan, error)
		Update(ctx context.Context, scan *model.Scan) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.ScanFilters) ([]*model.Scan, error)
	}

	StockRepository interface {
		Create(ctx context.Context, item *model.StockItem) error
		Get(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
		GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.StockItem, error)
		Update(ctx context.Context, item *model.StockItem) error
		// AdjustQuantity applies a signed delta atomically. A deduction that
		// would take the quantity below zero fails with a conflict.
		AdjustQuantity(ctx context.Context, id uuid.UUID, delta int, updatedBy uuid.UUID, at time.Time) (*model.StockItem, error)
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.StockFilters) ([]*model.StockItem, error)
		ListLow(ctx context.Context) ([]*model.StockItem, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// TokenRepository stores single-use password reset tokens.
	TokenRepository interface {
		StoreResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
		ValidateResetToken(ctx context.Context, token string) (uuid.UUID, error)
		InvalidateResetToken(ctx context.Context, token string) error
	}
)
