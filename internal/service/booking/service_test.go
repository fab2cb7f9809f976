package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/internal/meeting"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository/memory"
	"github.com/jwalitptl/consult-api/internal/service/availability"
	"github.com/jwalitptl/consult-api/internal/service/booking"
	"github.com/jwalitptl/consult-api/internal/service/notification"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/logger"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// fakeGateway counts calls and can be told to fail session creation.
type fakeGateway struct {
	mu          sync.Mutex
	failCreate  bool
	created     int
	endedIDs    []string
	joinedUsers []uuid.UUID
}

func (g *fakeGateway) CreateSession(ctx context.Context, bookingID uuid.UUID) (*meeting.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return nil, errors.New("meeting backend unavailable")
	}
	g.created++
	return &meeting.Session{
		ID:      fmt.Sprintf("session-%s", bookingID),
		JoinURL: fmt.Sprintf("https://meet.example.com/%s", bookingID),
	}, nil
}

func (g *fakeGateway) JoinSession(ctx context.Context, sessionID string, userID uuid.UUID, displayName string) (*meeting.Credentials, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.joinedUsers = append(g.joinedUsers, userID)
	return &meeting.Credentials{SessionID: sessionID, Token: "tok-" + displayName, JoinURL: "https://meet.example.com/join"}, nil
}

func (g *fakeGateway) EndSession(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.endedIDs = append(g.endedIDs, sessionID)
	return nil
}

type fixture struct {
	store    *memory.Store
	gateway  *fakeGateway
	svc      *booking.Service
	provider *model.Provider
	client   *model.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	gateway := &fakeGateway{}

	provider := &model.Provider{
		Name:  "Ada Counsel",
		Email: "ada@example.com",
		Template: model.AvailabilityTemplate{
			"Monday": {{Start: 540, End: 720}}, // 09:00-12:00
		},
		Pricing: model.PricingTable{"video": 100, "in_person": 150},
	}
	require.NoError(t, store.Providers().Create(context.Background(), provider))

	client := &model.Client{Name: "Grace", Email: "grace@example.com"}
	require.NoError(t, store.Clients().Create(context.Background(), client))

	availabilitySvc := availability.NewService(store.Providers(), store.Bookings())
	svc := booking.NewService(
		store.Providers(), store.Clients(), store.Bookings(),
		availabilitySvc, gateway, notification.NopService{},
		logger.NewLogger(nil), nil,
	)

	return &fixture{store: store, gateway: gateway, svc: svc, provider: provider, client: client}
}

func (f *fixture) request(startMinute, duration int, consultationType string) *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		ProviderID:      f.provider.ID,
		ClientID:        f.client.ID,
		Type:            consultationType,
		ScheduledAt:     monday.Add(time.Duration(startMinute) * time.Minute),
		DurationMinutes: duration,
	}
}

func TestBookDerivesExactPrice(t *testing.T) {
	f := newFixture(t)

	// 100/hour for 30 minutes must come out at exactly 50.
	booked, err := f.svc.Book(context.Background(), f.request(540, 30, "video"))
	require.NoError(t, err)
	assert.Equal(t, 50.0, booked.Price)
	assert.Equal(t, model.BookingStatusPending, booked.Status)
	assert.Equal(t, 1, f.gateway.created)
	require.NotNil(t, booked.SessionID)
	require.NotNil(t, booked.JoinURL)
}

func TestBookNonRemoteTypeSkipsGateway(t *testing.T) {
	f := newFixture(t)

	booked, err := f.svc.Book(context.Background(), f.request(540, 60, "in_person"))
	require.NoError(t, err)
	assert.Equal(t, 150.0, booked.Price)
	assert.Nil(t, booked.SessionID)
	assert.Equal(t, 0, f.gateway.created)
}

func TestBookUnpricedTypeRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.request(540, 30, "telepathy"))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestBookOutsideTemplateRejected(t *testing.T) {
	f := newFixture(t)

	// 08:30 start spills out of the 09:00-12:00 slot.
	_, err := f.svc.Book(context.Background(), f.request(510, 60, "video"))
	assert.Equal(t, apperrors.KindSlotUnavailable, apperrors.KindOf(err))

	// 11:30 start for 60 minutes runs past the slot end.
	_, err = f.svc.Book(context.Background(), f.request(690, 60, "video"))
	assert.Equal(t, apperrors.KindSlotUnavailable, apperrors.KindOf(err))
}

func TestBookDurationBounds(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.request(540, 10, "video"))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = f.svc.Book(context.Background(), f.request(540, 300, "video"))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestBookMissingProvider(t *testing.T) {
	f := newFixture(t)

	req := f.request(540, 30, "video")
	req.ProviderID = uuid.New()
	_, err := f.svc.Book(context.Background(), req)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestBookConflictingIntervalRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.request(540, 60, "video"))
	require.NoError(t, err)

	// Overlapping request loses the whole 09:00-12:00 slot, so even a
	// non-overlapping sub-interval of it now fails.
	_, err = f.svc.Book(context.Background(), f.request(600, 60, "video"))
	assert.Equal(t, apperrors.KindSlotUnavailable, apperrors.KindOf(err))
}

func TestBookConcurrentRequestsOneWinner(t *testing.T) {
	f := newFixture(t)

	const contenders = 16

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), f.request(540, 60, "in_person"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case apperrors.IsKind(err, apperrors.KindSlotUnavailable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, contenders-1, conflicts)
}

func TestBookGatewayFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.gateway.failCreate = true

	_, err := f.svc.Book(context.Background(), f.request(540, 60, "video"))
	assert.Equal(t, apperrors.KindMeetingGateway, apperrors.KindOf(err))

	// The interval is free again: the same request succeeds once the
	// gateway recovers.
	f.gateway.failCreate = false
	booked, err := f.svc.Book(context.Background(), f.request(540, 60, "video"))
	require.NoError(t, err)
	assert.NotNil(t, booked.SessionID)
}
