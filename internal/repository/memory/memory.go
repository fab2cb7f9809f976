// Package memory provides in-process implementations of the repository
// interfaces. The booking store keeps the same serialization guarantee
// as the postgres implementation: conflict check and insert run under a
// per-provider lock.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
)

type Store struct {
	mu        sync.Mutex
	providers map[uuid.UUID]*model.Provider
	clients   map[uuid.UUID]*model.Client
	bookings  map[uuid.UUID]*model.Booking
	outbox    map[uuid.UUID]*model.OutboxEvent
	order     []uuid.UUID // outbox insertion order

	providerLocks map[uuid.UUID]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		providers:     make(map[uuid.UUID]*model.Provider),
		clients:       make(map[uuid.UUID]*model.Client),
		bookings:      make(map[uuid.UUID]*model.Booking),
		outbox:        make(map[uuid.UUID]*model.OutboxEvent),
		providerLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Store) Providers() repository.ProviderRepository {
	return &providerRepo{s}
}

func (s *Store) Clients() repository.ClientRepository {
	return &clientRepo{s}
}

func (s *Store) Bookings() repository.BookingRepository {
	return &bookingRepo{s}
}

func (s *Store) Outbox() repository.OutboxRepository {
	return &outboxRepo{s}
}

type providerRepo struct{ *Store }

type clientRepo struct{ *Store }

type bookingRepo struct{ *Store }

type outboxRepo struct{ *Store }

// providerLock returns the mutex serializing schedule mutations for a
// single provider.
func (s *Store) providerLock(providerID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.providerLocks[providerID]
	if !ok {
		lock = &sync.Mutex{}
		s.providerLocks[providerID] = lock
	}
	return lock
}

func copyBooking(b *model.Booking) *model.Booking {
	out := *b
	if b.Feedback != nil {
		fb := *b.Feedback
		out.Feedback = &fb
	}
	return &out
}

func copyProvider(p *model.Provider) *model.Provider {
	out := *p
	out.Expertise = append(out.Expertise[:0:0], p.Expertise...)
	out.Template = make(model.AvailabilityTemplate, len(p.Template))
	for day, ranges := range p.Template {
		out.Template[day] = append([]model.TimeRange(nil), ranges...)
	}
	out.Pricing = make(model.PricingTable, len(p.Pricing))
	for typ, rate := range p.Pricing {
		out.Pricing[typ] = rate
	}
	return &out
}
