package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
)

type ProviderRepository interface {
	Create(ctx context.Context, provider *model.Provider) error
	Get(ctx context.Context, id uuid.UUID) (*model.Provider, error)
	Update(ctx context.Context, provider *model.Provider) error
	Search(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, error)
	// RecordRating folds a new rating into the provider's running
	// aggregate atomically with respect to concurrent calls.
	RecordRating(ctx context.Context, providerID uuid.UUID, rating int) (*model.RunningRating, error)
}

type ClientRepository interface {
	Create(ctx context.Context, client *model.Client) error
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
}

type BookingRepository interface {
	// CreateIfFree inserts the booking unless a blocking booking for the
	// same provider overlaps its interval. The conflict check and the
	// insert execute as one serialization point per provider; the loser
	// of a race gets a SlotUnavailable error.
	CreateIfFree(ctx context.Context, booking *model.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	Update(ctx context.Context, booking *model.Booking) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListForProviderBetween returns the provider's bookings whose
	// scheduled_at falls in [from, to) with one of the given statuses.
	ListForProviderBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time, statuses []model.BookingStatus) ([]*model.Booking, error)
	ListForClient(ctx context.Context, clientID uuid.UUID, status *model.BookingStatus) ([]*model.Booking, error)
	// AttachFeedback stores feedback on a booking that has none yet.
	// A booking that already carries feedback yields
	// FeedbackAlreadySubmitted.
	AttachFeedback(ctx context.Context, bookingID uuid.UUID, feedback *model.Feedback) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
}
