package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
)

// CreateIfFree holds the provider lock across the conflict scan and the
// insert, so two racing requests for overlapping intervals cannot both
// succeed.
func (r *bookingRepo) CreateIfFree(ctx context.Context, booking *model.Booking) error {
	lock := r.providerLock(booking.ProviderID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.ProviderID != booking.ProviderID {
			continue
		}
		if !blocking(existing.Status) {
			continue
		}
		if existing.OverlapsInterval(booking.Start(), booking.End()) {
			return apperrors.SlotUnavailable("requested interval overlaps an existing booking")
		}
	}

	booking.ID = uuid.New()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = time.Now()
	r.bookings[booking.ID] = copyBooking(booking)
	return nil
}

func (r *bookingRepo) Get(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking", nil)
	}
	return copyBooking(booking), nil
}

func (r *bookingRepo) Update(ctx context.Context, booking *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.bookings[booking.ID]
	if !ok {
		return apperrors.NotFound("booking", nil)
	}
	booking.Feedback = stored.Feedback
	booking.UpdatedAt = time.Now()
	r.bookings[booking.ID] = copyBooking(booking)
	return nil
}

func (r *bookingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return apperrors.NotFound("booking", nil)
	}
	delete(r.bookings, id)
	return nil
}

func (r *bookingRepo) ListForProviderBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time, statuses []model.BookingStatus) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.Booking
	for _, b := range r.bookings {
		if b.ProviderID != providerID {
			continue
		}
		if b.ScheduledAt.Before(from) || !b.ScheduledAt.Before(to) {
			continue
		}
		if !statusIn(b.Status, statuses) {
			continue
		}
		matched = append(matched, copyBooking(b))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ScheduledAt.Before(matched[j].ScheduledAt)
	})
	return matched, nil
}

func (r *bookingRepo) ListForClient(ctx context.Context, clientID uuid.UUID, status *model.BookingStatus) ([]*model.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.Booking
	for _, b := range r.bookings {
		if b.ClientID != clientID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		matched = append(matched, copyBooking(b))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[j].ScheduledAt.Before(matched[i].ScheduledAt)
	})
	return matched, nil
}

func (r *bookingRepo) AttachFeedback(ctx context.Context, bookingID uuid.UUID, feedback *model.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, ok := r.bookings[bookingID]
	if !ok {
		return apperrors.NotFound("booking", nil)
	}
	if booking.Feedback != nil {
		return apperrors.FeedbackAlreadySubmitted()
	}

	fb := *feedback
	booking.Feedback = &fb
	booking.UpdatedAt = time.Now()
	return nil
}

func blocking(status model.BookingStatus) bool {
	return statusIn(status, model.BlockingStatuses)
}

func statusIn(status model.BookingStatus, statuses []model.BookingStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
