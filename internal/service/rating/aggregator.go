// Package rating maintains each provider's running rating aggregate.
// The (average, count) pair is the only rating state the system keeps;
// it is owned by the provider aggregate and mutated solely through
// Record.
package rating

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	"github.com/jwalitptl/consult-api/pkg/logger"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

type Aggregator struct {
	providers repository.ProviderRepository
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewAggregator(providers repository.ProviderRepository, logger *logger.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{
		providers: providers,
		logger:    logger,
		metrics:   m,
	}
}

// Record folds one rating into the provider's aggregate. The read-
// modify-write happens atomically in the repository, so concurrent
// completions for the same provider cannot lose updates and the stored
// average stays the arithmetic mean of all recorded ratings regardless
// of submission order.
func (a *Aggregator) Record(ctx context.Context, providerID uuid.UUID, rating int) (*model.RunningRating, error) {
	updated, err := a.providers.RecordRating(ctx, providerID, rating)
	if err != nil {
		return nil, err
	}

	if a.metrics != nil {
		a.metrics.RatingsRecorded.Inc()
	}
	a.logger.Debug("rating recorded",
		"provider_id", providerID,
		"average", updated.Average,
		"count", updated.Count)

	return updated, nil
}
