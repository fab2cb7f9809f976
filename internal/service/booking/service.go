// Package booking turns a requested interval into a confirmed-conflict-
// free booking. The final availability re-check and the insert run as
// one serialization point per provider inside the repository, so two
// racing requests for overlapping intervals cannot both succeed.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/consult-api/internal/meeting"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/internal/service/availability"
	"github.com/jwalitptl/consult-api/internal/service/notification"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/logger"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

const (
	MinBookingDuration = 15 * time.Minute
	MaxBookingDuration = 4 * time.Hour
)

type Service struct {
	providers    repository.ProviderRepository
	clients      repository.ClientRepository
	bookings     repository.BookingRepository
	availability *availability.Service
	meetings     meeting.Gateway
	notifier     notification.Service
	logger       *logger.Logger
	metrics      *metrics.Metrics
	validate     *validator.Validate
}

func NewService(
	providers repository.ProviderRepository,
	clients repository.ClientRepository,
	bookings repository.BookingRepository,
	availabilitySvc *availability.Service,
	meetings meeting.Gateway,
	notifier notification.Service,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		providers:    providers,
		clients:      clients,
		bookings:     bookings,
		availability: availabilitySvc,
		meetings:     meetings,
		notifier:     notifier,
		logger:       logger,
		metrics:      m,
		validate:     validator.New(),
	}
}

// Book validates the requested interval against current availability,
// derives the price from the provider's pricing table and creates the
// booking in pending state. Remote consultation types get an external
// meeting session; if the meeting gateway fails, the just-created
// booking is rolled back and no partial booking persists.
func (s *Service) Book(ctx context.Context, req *model.CreateBookingRequest) (*model.Booking, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.BookingLatency)
		defer timer.ObserveDuration()
	}

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	provider, err := s.providers.Get(ctx, req.ProviderID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	rate, ok := provider.HourlyRate(req.Type)
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("provider does not offer consultation type %q", req.Type), nil)
	}

	if err := s.checkWithinFreeSlot(ctx, req); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		ProviderID:      req.ProviderID,
		ClientID:        req.ClientID,
		Type:            req.Type,
		ScheduledAt:     req.ScheduledAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          model.BookingStatusPending,
		Price:           rate * float64(req.DurationMinutes) / 60,
	}

	if err := s.bookings.CreateIfFree(ctx, booking); err != nil {
		if apperrors.IsKind(err, apperrors.KindSlotUnavailable) && s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	if model.IsRemoteType(booking.Type) {
		if err := s.attachSession(ctx, booking); err != nil {
			return nil, err
		}
	}

	s.notifier.Notify(ctx, model.EventBookingCreated, model.BookingEventPayload{
		BookingID:   booking.ID,
		ProviderID:  booking.ProviderID,
		ClientID:    booking.ClientID,
		Type:        booking.Type,
		ScheduledAt: booking.ScheduledAt,
		Status:      string(booking.Status),
		Recipient:   client.Email,
		Subject:     "Consultation requested",
		Body:        fmt.Sprintf("Your consultation with %s is requested for %s.", provider.Name, booking.ScheduledAt.Format(time.RFC1123)),
	})

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}
	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"provider_id", booking.ProviderID,
		"scheduled_at", booking.ScheduledAt)

	return booking, nil
}

func (s *Service) validateRequest(req *model.CreateBookingRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return apperrors.Validation("invalid booking request", err)
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	if duration < MinBookingDuration {
		return apperrors.Validation(fmt.Sprintf("duration must be at least %v", MinBookingDuration), nil)
	}
	if duration > MaxBookingDuration {
		return apperrors.Validation(fmt.Sprintf("duration cannot exceed %v", MaxBookingDuration), nil)
	}
	return nil
}

// checkWithinFreeSlot re-queries availability immediately before the
// insert and requires the requested interval to sit fully inside one
// free slot.
func (s *Service) checkWithinFreeSlot(ctx context.Context, req *model.CreateBookingRequest) error {
	slots, err := s.availability.Slots(ctx, req.ProviderID, req.ScheduledAt)
	if err != nil {
		return err
	}

	day := availability.DayStart(req.ScheduledAt)
	requested := model.TimeRange{
		Start: availability.MinutesIntoDay(req.ScheduledAt, day),
	}
	requested.End = requested.Start + req.DurationMinutes

	for _, slot := range slots {
		if slot.Contains(requested) {
			return nil
		}
	}
	return apperrors.SlotUnavailable("requested interval is not within a free slot")
}

// attachSession requests an external meeting for the booking. On
// gateway failure the booking is deleted so the interval is freed
// again.
func (s *Service) attachSession(ctx context.Context, booking *model.Booking) error {
	session, err := s.meetings.CreateSession(ctx, booking.ID)
	if err != nil {
		if delErr := s.bookings.Delete(ctx, booking.ID); delErr != nil {
			s.logger.Error(delErr, "failed to roll back booking after gateway failure",
				"booking_id", booking.ID)
		}
		if s.metrics != nil {
			s.metrics.BookingRollbacks.Inc()
		}
		return apperrors.MeetingGateway(err)
	}

	booking.SessionID = &session.ID
	booking.JoinURL = &session.JoinURL
	if err := s.bookings.Update(ctx, booking); err != nil {
		return fmt.Errorf("failed to store session on booking: %w", err)
	}
	return nil
}
