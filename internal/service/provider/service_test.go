package provider_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository/memory"
	"github.com/jwalitptl/consult-api/internal/service/provider"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/logger"
)

func newService(t *testing.T) (*provider.Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return provider.NewService(store.Providers(), logger.NewLogger(nil)), store
}

func validRequest() *model.CreateProviderRequest {
	return &model.CreateProviderRequest{
		Name:         "Ada Counsel",
		Email:        "ada@example.com",
		Jurisdiction: "CA",
		Expertise:    []string{"contracts", "immigration"},
		Template: model.AvailabilityTemplate{
			"Monday": {{Start: 540, End: 720}},
		},
		Pricing: model.PricingTable{"video": 120, "chat": 80},
	}
}

func TestCreateProvider(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.NotEqual(t, "", created.ID.String())
	assert.Equal(t, model.ProviderStatusActive, created.Status)
	assert.Equal(t, 0, created.Rating.Count)
}

func TestCreateProviderRejectsBadTemplate(t *testing.T) {
	svc, _ := newService(t)

	req := validRequest()
	req.Template = model.AvailabilityTemplate{
		"Monday": {{Start: 720, End: 540}},
	}
	_, err := svc.Create(context.Background(), req)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestCreateProviderRejectsBadPricing(t *testing.T) {
	svc, _ := newService(t)

	req := validRequest()
	req.Pricing = model.PricingTable{"video": -5}
	_, err := svc.Create(context.Background(), req)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestGetServesFreshDataAfterUpdate(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	// Prime the cache.
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Counsel", got.Name)

	newName := "Ada Q. Counsel"
	_, err = svc.Update(context.Background(), created.ID, &model.UpdateProviderRequest{Name: &newName})
	require.NoError(t, err)

	// Update invalidates the cached profile.
	got, err = svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, newName, got.Name)
}

func TestUpdateRejectsInvalidTemplate(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	bad := model.AvailabilityTemplate{"Monday": {{Start: 540, End: 720}, {Start: 700, End: 800}}}
	_, err = svc.Update(context.Background(), created.ID, &model.UpdateProviderRequest{Template: &bad})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestSearchFilters(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)

	other := validRequest()
	other.Name = "Bo Advisor"
	other.Email = "bo@example.com"
	other.Jurisdiction = "NY"
	other.Expertise = []string{"tax"}
	_, err = svc.Create(context.Background(), other)
	require.NoError(t, err)

	byJurisdiction, err := svc.Search(context.Background(), &model.ProviderFilters{Jurisdiction: "NY"})
	require.NoError(t, err)
	require.Len(t, byJurisdiction, 1)
	assert.Equal(t, "Bo Advisor", byJurisdiction[0].Name)

	byExpertise, err := svc.Search(context.Background(), &model.ProviderFilters{Expertise: "contracts"})
	require.NoError(t, err)
	require.Len(t, byExpertise, 1)
	assert.Equal(t, "Ada Counsel", byExpertise[0].Name)

	all, err := svc.Search(context.Background(), &model.ProviderFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
