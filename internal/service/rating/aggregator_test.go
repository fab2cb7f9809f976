package rating_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository/memory"
	"github.com/jwalitptl/consult-api/internal/service/rating"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/logger"
)

func newAggregator(t *testing.T) (*rating.Aggregator, *memory.Store, *model.Provider) {
	t.Helper()

	store := memory.NewStore()
	provider := &model.Provider{
		Name:    "Ada Counsel",
		Email:   "ada@example.com",
		Pricing: model.PricingTable{"video": 100},
	}
	require.NoError(t, store.Providers().Create(context.Background(), provider))

	return rating.NewAggregator(store.Providers(), logger.NewLogger(nil), nil), store, provider
}

func TestRecordUpdatesRunningAverage(t *testing.T) {
	agg, _, provider := newAggregator(t)

	updated, err := agg.Record(context.Background(), provider.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, updated.Average)
	assert.Equal(t, 1, updated.Count)

	updated, err = agg.Record(context.Background(), provider.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 4.0, updated.Average)
	assert.Equal(t, 2, updated.Count)

	updated, err = agg.Record(context.Background(), provider.ID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, updated.Average, 1e-9)
	assert.Equal(t, 3, updated.Count)
}

func TestRecordUnknownProvider(t *testing.T) {
	agg, _, _ := newAggregator(t)

	_, err := agg.Record(context.Background(), uuid.New(), 5)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestRecordConcurrentUpdatesLoseNothing(t *testing.T) {
	agg, store, provider := newAggregator(t)

	// 50 fives and 50 ones from concurrent submitters must land on
	// count 100 and mean 3 exactly, whatever the interleaving.
	const perValue = 50

	var wg sync.WaitGroup
	for i := 0; i < perValue; i++ {
		for _, value := range []int{5, 1} {
			wg.Add(1)
			go func(v int) {
				defer wg.Done()
				_, err := agg.Record(context.Background(), provider.ID, v)
				assert.NoError(t, err)
			}(value)
		}
	}
	wg.Wait()

	stored, err := store.Providers().Get(context.Background(), provider.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*perValue, stored.Rating.Count)
	assert.InDelta(t, 3.0, stored.Rating.Average, 1e-9)
}
