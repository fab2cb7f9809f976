package model

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// BlockingStatuses are the statuses whose bookings occupy their interval.
// Completed and cancelled bookings free the slot; active ones still hold
// it against new requests.
var BlockingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusActive,
}

// AvailabilityStatuses are the statuses treated as busy by the
// availability calculation. An active consultation has already been
// joined and is excluded from slot derivation.
var AvailabilityStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
}

// Remote consultation types are held over an external meeting session.
const (
	ConsultationTypeVideo = "video"
	ConsultationTypeChat  = "chat"
)

// IsRemoteType reports whether a consultation of this type needs an
// external meeting session.
func IsRemoteType(consultationType string) bool {
	return consultationType == ConsultationTypeVideo || consultationType == ConsultationTypeChat
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type Booking struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	ProviderID      uuid.UUID     `db:"provider_id" json:"provider_id"`
	ClientID        uuid.UUID     `db:"client_id" json:"client_id"`
	Type            string        `db:"type" json:"type"`
	ScheduledAt     time.Time     `db:"scheduled_at" json:"scheduled_at"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	Status          BookingStatus `db:"status" json:"status"`
	Price           float64       `db:"price" json:"price"`
	SessionID       *string       `db:"session_id" json:"session_id,omitempty"`
	JoinURL         *string       `db:"join_url" json:"join_url,omitempty"`
	CancelReason    *string       `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CompletedAt     *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	Feedback        *Feedback     `json:"feedback,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Start returns the beginning of the booked interval.
func (b *Booking) Start() time.Time {
	return b.ScheduledAt
}

// End returns the exclusive end of the booked interval.
func (b *Booking) End() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// OverlapsInterval reports whether the booking intersects [start, end).
func (b *Booking) OverlapsInterval(start, end time.Time) bool {
	return b.Start().Before(end) && start.Before(b.End())
}

// IsParty reports whether the given user is the provider or the client
// on this booking.
func (b *Booking) IsParty(userID uuid.UUID) bool {
	return userID == b.ProviderID || userID == b.ClientID
}

type Feedback struct {
	Rating    int       `db:"feedback_rating" json:"rating"`
	Comment   string    `db:"feedback_comment" json:"comment,omitempty"`
	CreatedAt time.Time `db:"feedback_at" json:"created_at"`
}

type CreateBookingRequest struct {
	ProviderID      uuid.UUID `json:"provider_id" validate:"required"`
	ClientID        uuid.UUID `json:"client_id" validate:"required"`
	Type            string    `json:"type" validate:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type BookingFilters struct {
	ClientID   uuid.UUID
	ProviderID uuid.UUID
	Status     BookingStatus
}
