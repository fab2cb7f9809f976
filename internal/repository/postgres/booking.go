package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/consult-api/internal/model"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
)

type bookingRow struct {
	ID              uuid.UUID           `db:"id"`
	ProviderID      uuid.UUID           `db:"provider_id"`
	ClientID        uuid.UUID           `db:"client_id"`
	Type            string              `db:"type"`
	ScheduledAt     time.Time           `db:"scheduled_at"`
	DurationMinutes int                 `db:"duration_minutes"`
	Status          model.BookingStatus `db:"status"`
	Price           float64             `db:"price"`
	SessionID       *string             `db:"session_id"`
	JoinURL         *string             `db:"join_url"`
	CancelReason    *string             `db:"cancel_reason"`
	CompletedAt     *time.Time          `db:"completed_at"`
	FeedbackRating  *int                `db:"feedback_rating"`
	FeedbackComment *string             `db:"feedback_comment"`
	FeedbackAt      *time.Time          `db:"feedback_at"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

func (r bookingRow) toModel() *model.Booking {
	b := &model.Booking{
		ID:              r.ID,
		ProviderID:      r.ProviderID,
		ClientID:        r.ClientID,
		Type:            r.Type,
		ScheduledAt:     r.ScheduledAt,
		DurationMinutes: r.DurationMinutes,
		Status:          r.Status,
		Price:           r.Price,
		SessionID:       r.SessionID,
		JoinURL:         r.JoinURL,
		CancelReason:    r.CancelReason,
		CompletedAt:     r.CompletedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.FeedbackRating != nil {
		b.Feedback = &model.Feedback{Rating: *r.FeedbackRating}
		if r.FeedbackComment != nil {
			b.Feedback.Comment = *r.FeedbackComment
		}
		if r.FeedbackAt != nil {
			b.Feedback.CreatedAt = *r.FeedbackAt
		}
	}
	return b
}

const bookingColumns = `id, provider_id, client_id, type, scheduled_at, duration_minutes,
	   status, price, session_id, join_url, cancel_reason, completed_at,
	   feedback_rating, feedback_comment, feedback_at, created_at, updated_at`

// CreateIfFree runs the conflict check and the insert inside one
// transaction holding a provider-keyed advisory lock, which serializes
// racing booking attempts for the same provider.
func (r *bookingRepository) CreateIfFree(ctx context.Context, booking *model.Booking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin booking transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`,
		booking.ProviderID,
	); err != nil {
		return fmt.Errorf("failed to lock provider schedule: %w", err)
	}

	var conflict bool
	err = tx.GetContext(ctx, &conflict, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE provider_id = $1
			  AND status = ANY($2)
			  AND scheduled_at < $4
			  AND scheduled_at + duration_minutes * interval '1 minute' > $3
		)
	`, booking.ProviderID, statusArray(model.BlockingStatuses), booking.Start(), booking.End())
	if err != nil {
		return fmt.Errorf("failed to check booking conflicts: %w", err)
	}
	if conflict {
		return apperrors.SlotUnavailable("requested interval overlaps an existing booking")
	}

	booking.ID = uuid.New()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bookings (
			id, provider_id, client_id, type, scheduled_at, duration_minutes,
			status, price, session_id, join_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		booking.ID,
		booking.ProviderID,
		booking.ClientID,
		booking.Type,
		booking.ScheduledAt,
		booking.DurationMinutes,
		booking.Status,
		booking.Price,
		booking.SessionID,
		booking.JoinURL,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var row bookingRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("booking", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return row.toModel(), nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, session_id = $2, join_url = $3, cancel_reason = $4,
			completed_at = $5, updated_at = $6
		WHERE id = $7
	`
	booking.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		booking.Status,
		booking.SessionID,
		booking.JoinURL,
		booking.CancelReason,
		booking.CompletedAt,
		booking.UpdatedAt,
		booking.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("booking", nil)
	}
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("booking", nil)
	}
	return nil
}

func (r *bookingRepository) ListForProviderBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time, statuses []model.BookingStatus) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE provider_id = $1
		  AND scheduled_at >= $2 AND scheduled_at < $3
		  AND status = ANY($4)
		ORDER BY scheduled_at ASC
	`
	var rows []bookingRow
	err := r.db.SelectContext(ctx, &rows, query, providerID, from, to, statusArray(statuses))
	if err != nil {
		return nil, fmt.Errorf("failed to list provider bookings: %w", err)
	}
	return toModels(rows), nil
}

func (r *bookingRepository) ListForClient(ctx context.Context, clientID uuid.UUID, status *model.BookingStatus) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE client_id = $1`
	args := []interface{}{clientID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY scheduled_at DESC`

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list client bookings: %w", err)
	}
	return toModels(rows), nil
}

// AttachFeedback only touches rows without feedback, so a second
// submission loses the update and is reported as already submitted.
func (r *bookingRepository) AttachFeedback(ctx context.Context, bookingID uuid.UUID, feedback *model.Feedback) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bookings
		SET feedback_rating = $1, feedback_comment = $2, feedback_at = $3, updated_at = $4
		WHERE id = $5 AND feedback_rating IS NULL
	`, feedback.Rating, feedback.Comment, feedback.CreatedAt, time.Now(), bookingID)
	if err != nil {
		return fmt.Errorf("failed to attach feedback: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.FeedbackAlreadySubmitted()
	}
	return nil
}

func statusArray(statuses []model.BookingStatus) pq.StringArray {
	arr := make(pq.StringArray, 0, len(statuses))
	for _, s := range statuses {
		arr = append(arr, string(s))
	}
	return arr
}

func toModels(rows []bookingRow) []*model.Booking {
	bookings := make([]*model.Booking, 0, len(rows))
	for _, row := range rows {
		bookings = append(bookings, row.toModel())
	}
	return bookings
}
