package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
)

func (r *clientRepo) Create(ctx context.Context, client *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	client.ID = uuid.New()
	client.CreatedAt = time.Now()
	client.UpdatedAt = time.Now()
	stored := *client
	r.clients[client.ID] = &stored
	return nil
}

func (r *clientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[id]
	if !ok {
		return nil, apperrors.NotFound("client", nil)
	}
	out := *client
	return &out, nil
}
