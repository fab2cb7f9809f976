// Package availability derives a provider's free slots for a calendar
// day from the weekly template minus existing bookings.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
)

type Service struct {
	providers repository.ProviderRepository
	bookings  repository.BookingRepository
}

func NewService(providers repository.ProviderRepository, bookings repository.BookingRepository) *Service {
	return &Service{
		providers: providers,
		bookings:  bookings,
	}
}

// Slots returns the provider's free slots for the given calendar day,
// ordered by start time. All times are interpreted in UTC. A day not
// covered by the template yields an empty result.
//
// A template slot touched by any busy interval is rejected whole;
// partial overlaps are not split into remaining sub-ranges.
func (s *Service) Slots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]model.TimeRange, error) {
	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}

	day := DayStart(date)
	template := provider.Template[day.Weekday().String()]
	if len(template) == 0 {
		return []model.TimeRange{}, nil
	}

	busy, err := s.busyIntervals(ctx, providerID, day)
	if err != nil {
		return nil, err
	}

	free := make([]model.TimeRange, 0, len(template))
	for _, slot := range template {
		if !overlapsAny(slot, busy) {
			free = append(free, slot)
		}
	}

	sort.Slice(free, func(i, j int) bool {
		return free[i].Start < free[j].Start
	})
	return free, nil
}

// busyIntervals converts the day's pending and confirmed bookings into
// minute ranges relative to the day's UTC midnight.
func (s *Service) busyIntervals(ctx context.Context, providerID uuid.UUID, day time.Time) ([]model.TimeRange, error) {
	bookings, err := s.bookings.ListForProviderBetween(ctx, providerID, day, day.Add(24*time.Hour), model.AvailabilityStatuses)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for availability: %w", err)
	}

	busy := make([]model.TimeRange, 0, len(bookings))
	for _, b := range bookings {
		start := MinutesIntoDay(b.Start(), day)
		busy = append(busy, model.TimeRange{
			Start: start,
			End:   start + b.DurationMinutes,
		})
	}
	return busy, nil
}

func overlapsAny(slot model.TimeRange, busy []model.TimeRange) bool {
	for _, interval := range busy {
		if slot.Overlaps(interval) {
			return true
		}
	}
	return false
}

// DayStart returns UTC midnight of the calendar day containing t.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MinutesIntoDay returns how many minutes after the day's midnight t
// falls.
func MinutesIntoDay(t time.Time, day time.Time) int {
	return int(t.UTC().Sub(day).Minutes())
}
