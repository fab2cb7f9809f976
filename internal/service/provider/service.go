// Package provider manages provider profiles: the weekly availability
// template, the pricing table and profile search. The rating aggregate
// is read here but only ever written through the rating aggregator.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/logger"
)

const (
	cacheTTL     = 30 * time.Second
	cacheCleanup = 5 * time.Minute
)

type Service struct {
	repo     repository.ProviderRepository
	cache    *gocache.Cache
	logger   *logger.Logger
	validate *validator.Validate
}

func NewService(repo repository.ProviderRepository, logger *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    gocache.New(cacheTTL, cacheCleanup),
		logger:   logger,
		validate: validator.New(),
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateProviderRequest) (*model.Provider, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Validation("invalid provider profile", err)
	}
	if err := req.Template.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}
	if err := req.Pricing.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error(), nil)
	}

	provider := &model.Provider{
		Name:         req.Name,
		Email:        req.Email,
		Bio:          req.Bio,
		Jurisdiction: req.Jurisdiction,
		Expertise:    pq.StringArray(req.Expertise),
		Template:     req.Template,
		Pricing:      req.Pricing,
		Status:       model.ProviderStatusActive,
	}
	if err := s.repo.Create(ctx, provider); err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	return provider, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	if cached, ok := s.cache.Get(id.String()); ok {
		return cached.(*model.Provider), nil
	}

	provider, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id.String(), provider, cacheTTL)
	return provider, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateProviderRequest) (*model.Provider, error) {
	provider, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		provider.Name = *req.Name
	}
	if req.Bio != nil {
		provider.Bio = *req.Bio
	}
	if req.Jurisdiction != nil {
		provider.Jurisdiction = *req.Jurisdiction
	}
	if req.Expertise != nil {
		provider.Expertise = pq.StringArray(req.Expertise)
	}
	if req.Template != nil {
		if err := req.Template.Validate(); err != nil {
			return nil, apperrors.Validation(err.Error(), nil)
		}
		provider.Template = *req.Template
	}
	if req.Pricing != nil {
		if err := req.Pricing.Validate(); err != nil {
			return nil, apperrors.Validation(err.Error(), nil)
		}
		provider.Pricing = *req.Pricing
	}
	if req.Status != nil {
		provider.Status = *req.Status
	}

	if err := s.repo.Update(ctx, provider); err != nil {
		return nil, err
	}

	s.cache.Delete(id.String())
	return provider, nil
}

func (s *Service) Search(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, error) {
	providers, err := s.repo.Search(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to search providers: %w", err)
	}
	return providers, nil
}
