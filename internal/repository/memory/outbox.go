package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
)

func (r *outboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event and payload cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = uuid.New()
	event.Status = model.OutboxStatusPending
	event.CreatedAt = time.Now()
	event.UpdatedAt = time.Now()

	stored := *event
	r.outbox[event.ID] = &stored
	r.order = append(r.order, event.ID)
	return nil
}

func (r *outboxRepo) GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var pending []*model.OutboxEvent
	for _, id := range r.order {
		event := r.outbox[id]
		if event.Status != model.OutboxStatusPending {
			continue
		}
		if event.RetryAt != nil && event.RetryAt.After(now) {
			continue
		}
		out := *event
		pending = append(pending, &out)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (r *outboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.outbox[id]
	if !ok {
		return fmt.Errorf("outbox event %s not found", id)
	}
	now := time.Now()
	event.Status = model.OutboxStatusProcessed
	event.ProcessedAt = &now
	event.UpdatedAt = now
	return nil
}

func (r *outboxRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.outbox[id]
	if !ok {
		return fmt.Errorf("outbox event %s not found", id)
	}
	event.Status = model.OutboxStatusFailed
	if retryAt != nil {
		event.Status = model.OutboxStatusPending
	}
	event.ErrorMessage = &errMsg
	event.RetryCount++
	event.RetryAt = retryAt
	event.UpdatedAt = time.Now()
	return nil
}
