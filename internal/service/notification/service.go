// Package notification records consultation events for asynchronous
// delivery. Events land in the outbox table and are pushed out by the
// worker; a notification failure never fails the operation that raised
// it.
package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/pkg/logger"
)

type Service interface {
	// Notify is fire-and-forget: failures are logged, never returned.
	Notify(ctx context.Context, eventType string, payload model.BookingEventPayload)
}

type service struct {
	outbox repository.OutboxRepository
	logger *logger.Logger
}

func NewService(outbox repository.OutboxRepository, logger *logger.Logger) Service {
	return &service{
		outbox: outbox,
		logger: logger,
	}
}

func (s *service) Notify(ctx context.Context, eventType string, payload model.BookingEventPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(err, "failed to marshal notification payload",
			"event_type", eventType)
		return
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   data,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		s.logger.Error(fmt.Errorf("failed to enqueue notification: %w", err),
			"notification dropped", "event_type", eventType)
	}
}

// NopService discards all notifications. Used where delivery is not
// wired, e.g. tests.
type NopService struct{}

func (NopService) Notify(ctx context.Context, eventType string, payload model.BookingEventPayload) {}
