package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
)

func (r *providerRepo) Create(ctx context.Context, provider *model.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider.ID = uuid.New()
	provider.CreatedAt = time.Now()
	provider.UpdatedAt = time.Now()
	if provider.Status == "" {
		provider.Status = model.ProviderStatusActive
	}
	r.providers[provider.ID] = copyProvider(provider)
	return nil
}

func (r *providerRepo) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	provider, ok := r.providers[id]
	if !ok {
		return nil, apperrors.NotFound("provider", nil)
	}
	return copyProvider(provider), nil
}

func (r *providerRepo) Update(ctx context.Context, provider *model.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.providers[provider.ID]
	if !ok {
		return apperrors.NotFound("provider", nil)
	}
	provider.Rating = stored.Rating
	provider.UpdatedAt = time.Now()
	r.providers[provider.ID] = copyProvider(provider)
	return nil
}

func (r *providerRepo) Search(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*model.Provider
	for _, p := range r.providers {
		if filters.Jurisdiction != "" && p.Jurisdiction != filters.Jurisdiction {
			continue
		}
		if filters.MinRating > 0 && p.Rating.Average < filters.MinRating {
			continue
		}
		if filters.OnlyActive && p.Status != model.ProviderStatusActive {
			continue
		}
		if filters.Expertise != "" {
			found := false
			for _, e := range p.Expertise {
				if e == filters.Expertise {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		matched = append(matched, copyProvider(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Rating.Average > matched[j].Rating.Average
	})
	return matched, nil
}

func (r *providerRepo) RecordRating(ctx context.Context, providerID uuid.UUID, rating int) (*model.RunningRating, error) {
	lock := r.providerLock(providerID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	provider, ok := r.providers[providerID]
	if !ok {
		return nil, apperrors.NotFound("provider", nil)
	}

	newCount := provider.Rating.Count + 1
	provider.Rating = model.RunningRating{
		Average: (provider.Rating.Average*float64(provider.Rating.Count) + float64(rating)) / float64(newCount),
		Count:   newCount,
	}
	provider.UpdatedAt = time.Now()

	updated := provider.Rating
	return &updated, nil
}
