package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const MinutesPerDay = 24 * 60

// TimeRange is a half-open interval [Start, End) in minutes since midnight.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

func (r TimeRange) Contains(other TimeRange) bool {
	return other.Start >= r.Start && other.End <= r.End
}

func (r TimeRange) Valid() bool {
	return r.Start >= 0 && r.End <= MinutesPerDay && r.Start < r.End
}

// AvailabilityTemplate maps a weekday name ("Monday".."Sunday") to the
// ordered, non-overlapping time ranges a provider offers on that day.
type AvailabilityTemplate map[string][]TimeRange

func (t AvailabilityTemplate) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *AvailabilityTemplate) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for availability template", src)
	}
	return json.Unmarshal(b, t)
}

// Validate checks every day holds ordered, pairwise non-overlapping ranges.
func (t AvailabilityTemplate) Validate() error {
	for day, ranges := range t {
		if _, ok := weekdayNames[day]; !ok {
			return fmt.Errorf("unknown weekday %q", day)
		}
		prevEnd := -1
		for _, r := range ranges {
			if !r.Valid() {
				return fmt.Errorf("invalid time range [%d, %d) on %s", r.Start, r.End, day)
			}
			if r.Start < prevEnd {
				return fmt.Errorf("overlapping or unordered time ranges on %s", day)
			}
			prevEnd = r.End
		}
	}
	return nil
}

var weekdayNames = map[string]struct{}{
	time.Sunday.String():    {},
	time.Monday.String():    {},
	time.Tuesday.String():   {},
	time.Wednesday.String(): {},
	time.Thursday.String():  {},
	time.Friday.String():    {},
	time.Saturday.String():  {},
}

// PricingTable maps a consultation type to its hourly rate.
type PricingTable map[string]float64

func (p PricingTable) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *PricingTable) Scan(src interface{}) error {
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for pricing table", src)
	}
	return json.Unmarshal(b, p)
}

func (p PricingTable) Validate() error {
	for typ, rate := range p {
		if typ == "" {
			return fmt.Errorf("empty consultation type in pricing table")
		}
		if rate < 0 {
			return fmt.Errorf("negative hourly rate for %q", typ)
		}
	}
	return nil
}

// RunningRating is the provider's rating aggregate. It is mutated only
// through the rating aggregator; average stays within [0, 5].
type RunningRating struct {
	Average float64 `db:"rating_average" json:"average"`
	Count   int     `db:"rating_count" json:"count"`
}

type ProviderStatus string

const (
	ProviderStatusActive    ProviderStatus = "active"
	ProviderStatusInactive  ProviderStatus = "inactive"
	ProviderStatusSuspended ProviderStatus = "suspended"
)

type Provider struct {
	ID           uuid.UUID            `db:"id" json:"id"`
	Name         string               `db:"name" json:"name"`
	Email        string               `db:"email" json:"email"`
	Bio          string               `db:"bio" json:"bio,omitempty"`
	Jurisdiction string               `db:"jurisdiction" json:"jurisdiction,omitempty"`
	Expertise    pq.StringArray       `db:"expertise" json:"expertise,omitempty"`
	Template     AvailabilityTemplate `db:"template" json:"availability_template"`
	Pricing      PricingTable         `db:"pricing" json:"pricing"`
	Rating       RunningRating        `json:"rating"`
	Status       ProviderStatus       `db:"status" json:"status"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at" json:"updated_at"`
}

// HourlyRate returns the rate for a consultation type, if priced.
func (p *Provider) HourlyRate(consultationType string) (float64, bool) {
	rate, ok := p.Pricing[consultationType]
	return rate, ok
}

type CreateProviderRequest struct {
	Name         string               `json:"name" validate:"required"`
	Email        string               `json:"email" validate:"required,email"`
	Bio          string               `json:"bio"`
	Jurisdiction string               `json:"jurisdiction"`
	Expertise    []string             `json:"expertise"`
	Template     AvailabilityTemplate `json:"availability_template" validate:"required"`
	Pricing      PricingTable         `json:"pricing" validate:"required"`
}

type UpdateProviderRequest struct {
	Name         *string               `json:"name"`
	Bio          *string               `json:"bio"`
	Jurisdiction *string               `json:"jurisdiction"`
	Expertise    []string              `json:"expertise"`
	Template     *AvailabilityTemplate `json:"availability_template"`
	Pricing      *PricingTable         `json:"pricing"`
	Status       *ProviderStatus       `json:"status"`
}

type ProviderFilters struct {
	Expertise    string
	Jurisdiction string
	MinRating    float64
	OnlyActive   bool
}
