package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/consult-api/internal/model"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
)

type providerRow struct {
	ID            uuid.UUID                  `db:"id"`
	Name          string                     `db:"name"`
	Email         string                     `db:"email"`
	Bio           string                     `db:"bio"`
	Jurisdiction  string                     `db:"jurisdiction"`
	Expertise     pq.StringArray             `db:"expertise"`
	Template      model.AvailabilityTemplate `db:"template"`
	Pricing       model.PricingTable         `db:"pricing"`
	RatingAverage float64                    `db:"rating_average"`
	RatingCount   int                        `db:"rating_count"`
	Status        model.ProviderStatus       `db:"status"`
	CreatedAt     time.Time                  `db:"created_at"`
	UpdatedAt     time.Time                  `db:"updated_at"`
}

func (r providerRow) toModel() *model.Provider {
	return &model.Provider{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Bio:          r.Bio,
		Jurisdiction: r.Jurisdiction,
		Expertise:    r.Expertise,
		Template:     r.Template,
		Pricing:      r.Pricing,
		Rating:       model.RunningRating{Average: r.RatingAverage, Count: r.RatingCount},
		Status:       r.Status,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

const providerColumns = `id, name, email, bio, jurisdiction, expertise, template, pricing,
	   rating_average, rating_count, status, created_at, updated_at`

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider) error {
	query := `
		INSERT INTO providers (
			id, name, email, bio, jurisdiction, expertise, template, pricing,
			rating_average, rating_count, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	provider.ID = uuid.New()
	provider.CreatedAt = time.Now()
	provider.UpdatedAt = time.Now()
	if provider.Status == "" {
		provider.Status = model.ProviderStatusActive
	}

	_, err := r.db.ExecContext(ctx, query,
		provider.ID,
		provider.Name,
		provider.Email,
		provider.Bio,
		provider.Jurisdiction,
		provider.Expertise,
		provider.Template,
		provider.Pricing,
		provider.Rating.Average,
		provider.Rating.Count,
		provider.Status,
		provider.CreatedAt,
		provider.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}
	return nil
}

func (r *providerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = $1`

	var row providerRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("provider", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get provider: %w", err)
	}
	return row.toModel(), nil
}

func (r *providerRepository) Update(ctx context.Context, provider *model.Provider) error {
	query := `
		UPDATE providers
		SET name = $1, bio = $2, jurisdiction = $3, expertise = $4,
			template = $5, pricing = $6, status = $7, updated_at = $8
		WHERE id = $9
	`
	provider.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		provider.Name,
		provider.Bio,
		provider.Jurisdiction,
		provider.Expertise,
		provider.Template,
		provider.Pricing,
		provider.Status,
		provider.UpdatedAt,
		provider.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("provider", nil)
	}
	return nil
}

func (r *providerRepository) Search(ctx context.Context, filters *model.ProviderFilters) ([]*model.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.Expertise != "" {
		query += fmt.Sprintf(" AND $%d = ANY(expertise)", argCount)
		args = append(args, filters.Expertise)
		argCount++
	}
	if filters.Jurisdiction != "" {
		query += fmt.Sprintf(" AND jurisdiction = $%d", argCount)
		args = append(args, filters.Jurisdiction)
		argCount++
	}
	if filters.MinRating > 0 {
		query += fmt.Sprintf(" AND rating_average >= $%d", argCount)
		args = append(args, filters.MinRating)
		argCount++
	}
	if filters.OnlyActive {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, model.ProviderStatusActive)
		argCount++
	}

	query += " ORDER BY rating_average DESC"

	var rows []providerRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search providers: %w", err)
	}

	providers := make([]*model.Provider, 0, len(rows))
	for _, row := range rows {
		providers = append(providers, row.toModel())
	}
	return providers, nil
}

// RecordRating applies the read-modify-write of the rating pair in a
// single UPDATE, so concurrent completions for one provider cannot
// interleave and lose updates.
func (r *providerRepository) RecordRating(ctx context.Context, providerID uuid.UUID, rating int) (*model.RunningRating, error) {
	query := `
		UPDATE providers
		SET rating_average = (rating_average * rating_count + $2) / (rating_count + 1),
			rating_count = rating_count + 1,
			updated_at = $3
		WHERE id = $1
		RETURNING rating_average, rating_count
	`
	var updated model.RunningRating
	err := r.db.QueryRowxContext(ctx, query, providerID, rating, time.Now()).
		Scan(&updated.Average, &updated.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("provider", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record rating: %w", err)
	}
	return &updated, nil
}
