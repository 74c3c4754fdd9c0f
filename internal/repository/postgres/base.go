package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/pkg/errors"
)

type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// insertOutboxTx writes an outbox event inside the caller's transaction so the
// event is committed atomically with the state change it describes.
func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, evt *model.OutboxEvent, now time.Time) error {
	if evt == nil {
		return nil
	}
	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, 0, $5, $5)
	`
	evt.Status = model.OutboxStatusPending
	evt.CreatedAt = now
	evt.UpdatedAt = now

	_, err := tx.ExecContext(ctx, query,
		evt.ID,
		evt.EventType,
		evt.Payload,
		evt.Status,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// requireRowsAffected converts a zero-row write into a NotFound error.
func requireRowsAffected(result sql.Result, resource string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return errors.NotFound(resource, nil)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// isSerializationFailure matches postgres 40001, which a serializable
// transaction can raise on any statement, not only at commit.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "40001"
	}
	return false
}
