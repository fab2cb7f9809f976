// Package consultation drives a booking through its lifecycle:
// pending -> confirmed -> active -> completed, with cancellation
// terminal from pending or confirmed. Join is gated by party
// membership and the scheduled-time window; feedback is accepted once
// after completion and feeds the provider's rating aggregate.
package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/meeting"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/internal/service/notification"
	"github.com/jwalitptl/consult-api/internal/service/rating"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/logger"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

// JoinWindow is how far from the scheduled time a party may join, on
// either side. Both boundaries are inclusive.
const JoinWindow = 15 * time.Minute

// JoinResult carries the transitioned booking plus the session
// credentials for remote consultations.
type JoinResult struct {
	Booking     *model.Booking       `json:"booking"`
	Credentials *meeting.Credentials `json:"credentials,omitempty"`
}

type Service struct {
	bookings  repository.BookingRepository
	providers repository.ProviderRepository
	clients   repository.ClientRepository
	meetings  meeting.Gateway
	rating    *rating.Aggregator
	notifier  notification.Service
	logger    *logger.Logger
	metrics   *metrics.Metrics
	validate  *validator.Validate
	now       func() time.Time
}

func NewService(
	bookings repository.BookingRepository,
	providers repository.ProviderRepository,
	clients repository.ClientRepository,
	meetings meeting.Gateway,
	ratingAgg *rating.Aggregator,
	notifier notification.Service,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		bookings:  bookings,
		providers: providers,
		clients:   clients,
		meetings:  meetings,
		rating:    ratingAgg,
		notifier:  notifier,
		logger:    logger,
		metrics:   m,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// WithClock overrides the wall clock. Used by tests to pin the join
// window.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// adminTransitions are the status moves allowed through SetStatus.
// Activation happens only through Join, completion only through End.
var adminTransitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusPending:   {model.BookingStatusConfirmed, model.BookingStatusCancelled},
	model.BookingStatusConfirmed: {model.BookingStatusCancelled},
}

// SetStatus performs an administrative transition (confirmation or
// cancellation). Any other move is rejected with InvalidTransition.
func (s *Service) SetStatus(ctx context.Context, bookingID uuid.UUID, newStatus model.BookingStatus, reason *string) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(booking.Status, newStatus) {
		return nil, apperrors.InvalidTransition(string(booking.Status), string(newStatus))
	}

	booking.Status = newStatus
	if newStatus == model.BookingStatusCancelled {
		booking.CancelReason = reason
	}
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, booking)
	return booking, nil
}

// Join moves a confirmed booking to active. The caller must be a party
// to the booking and the current time must lie within the inclusive
// join window around the scheduled time. For remote consultations the
// caller receives session credentials from the meeting collaborator.
func (s *Service) Join(ctx context.Context, bookingID, userID uuid.UUID) (*JoinResult, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !booking.IsParty(userID) {
		return nil, apperrors.Forbidden("caller is not a party to this consultation")
	}
	if booking.Status != model.BookingStatusConfirmed {
		return nil, apperrors.InvalidTransition(string(booking.Status), string(model.BookingStatusActive))
	}
	if !s.withinJoinWindow(booking.ScheduledAt) {
		return nil, apperrors.NotJoinable(fmt.Sprintf(
			"consultation can only be joined within %v of its scheduled time", JoinWindow))
	}

	var creds *meeting.Credentials
	if booking.SessionID != nil {
		displayName, err := s.displayName(ctx, booking, userID)
		if err != nil {
			return nil, err
		}
		creds, err = s.meetings.JoinSession(ctx, *booking.SessionID, userID, displayName)
		if err != nil {
			return nil, apperrors.MeetingGateway(err)
		}
	}

	booking.Status = model.BookingStatusActive
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(model.BookingStatusActive)).Inc()
	}
	s.logger.Info("consultation joined",
		"booking_id", booking.ID,
		"user_id", userID)

	return &JoinResult{Booking: booking, Credentials: creds}, nil
}

// End completes an active consultation. Only the provider may end it.
func (s *Service) End(ctx context.Context, bookingID, userID uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if userID != booking.ProviderID {
		return nil, apperrors.Forbidden("only the provider can end the consultation")
	}
	if booking.Status != model.BookingStatusActive {
		return nil, apperrors.InvalidTransition(string(booking.Status), string(model.BookingStatusCompleted))
	}

	if booking.SessionID != nil {
		if err := s.meetings.EndSession(ctx, *booking.SessionID); err != nil {
			return nil, apperrors.MeetingGateway(err)
		}
	}

	completedAt := s.now().UTC()
	booking.Status = model.BookingStatusCompleted
	booking.CompletedAt = &completedAt
	if err := s.bookings.Update(ctx, booking); err != nil {
		return nil, err
	}

	s.recordTransition(ctx, booking)
	return booking, nil
}

// SubmitFeedback attaches feedback to a completed booking, once, and
// folds the rating into the provider's aggregate. Only the booking's
// client may submit.
func (s *Service) SubmitFeedback(ctx context.Context, bookingID, clientID uuid.UUID, req *model.FeedbackRequest) (*model.Booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation("invalid feedback", err)
	}

	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if clientID != booking.ClientID {
		return nil, apperrors.Forbidden("only the booking's client can submit feedback")
	}
	if booking.Status != model.BookingStatusCompleted {
		return nil, &apperrors.AppError{
			Kind:    apperrors.KindInvalidTransition,
			Message: "feedback is only permitted on completed consultations",
		}
	}

	feedback := &model.Feedback{
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: s.now().UTC(),
	}
	if err := s.bookings.AttachFeedback(ctx, bookingID, feedback); err != nil {
		if apperrors.IsKind(err, apperrors.KindFeedbackExists) && s.metrics != nil {
			s.metrics.FeedbackRejected.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}

	if _, err := s.rating.Record(ctx, booking.ProviderID, req.Rating); err != nil {
		return nil, fmt.Errorf("failed to update provider rating: %w", err)
	}

	booking.Feedback = feedback
	s.notifier.Notify(ctx, model.EventFeedbackReceived, s.eventPayload(booking))

	return booking, nil
}

// History lists a client's consultations, most recent first.
func (s *Service) History(ctx context.Context, clientID uuid.UUID, status *model.BookingStatus) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListForClient(ctx, clientID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return bookings, nil
}

// Get returns a single booking.
func (s *Service) Get(ctx context.Context, bookingID uuid.UUID) (*model.Booking, error) {
	return s.bookings.Get(ctx, bookingID)
}

func (s *Service) withinJoinWindow(scheduledAt time.Time) bool {
	now := s.now()
	diff := now.Sub(scheduledAt)
	if diff < 0 {
		diff = -diff
	}
	return diff <= JoinWindow
}

func (s *Service) displayName(ctx context.Context, booking *model.Booking, userID uuid.UUID) (string, error) {
	if userID == booking.ClientID {
		client, err := s.clients.Get(ctx, booking.ClientID)
		if err != nil {
			return "", err
		}
		return client.Name, nil
	}
	provider, err := s.providers.Get(ctx, booking.ProviderID)
	if err != nil {
		return "", err
	}
	return provider.Name, nil
}

func transitionAllowed(from, to model.BookingStatus) bool {
	for _, allowed := range adminTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *Service) recordTransition(ctx context.Context, booking *model.Booking) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(string(booking.Status)).Inc()
	}

	eventType := ""
	switch booking.Status {
	case model.BookingStatusConfirmed:
		eventType = model.EventBookingConfirmed
	case model.BookingStatusCancelled:
		eventType = model.EventBookingCancelled
	case model.BookingStatusCompleted:
		eventType = model.EventBookingCompleted
	}
	if eventType != "" {
		s.notifier.Notify(ctx, eventType, s.eventPayload(booking))
	}

	s.logger.Info("consultation status changed",
		"booking_id", booking.ID,
		"status", booking.Status)
}

func (s *Service) eventPayload(booking *model.Booking) model.BookingEventPayload {
	return model.BookingEventPayload{
		BookingID:   booking.ID,
		ProviderID:  booking.ProviderID,
		ClientID:    booking.ClientID,
		Type:        booking.Type,
		ScheduledAt: booking.ScheduledAt,
		Status:      string(booking.Status),
	}
}
