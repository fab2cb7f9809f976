package consultation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consultationHandler "github.com/jwalitptl/consult-api/internal/handler/consultation"
	"github.com/jwalitptl/consult-api/internal/meeting"
	"github.com/jwalitptl/consult-api/internal/middleware"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository/memory"
	"github.com/jwalitptl/consult-api/internal/service/availability"
	bookingService "github.com/jwalitptl/consult-api/internal/service/booking"
	consultationService "github.com/jwalitptl/consult-api/internal/service/consultation"
	"github.com/jwalitptl/consult-api/internal/service/notification"
	"github.com/jwalitptl/consult-api/internal/service/rating"
	"github.com/jwalitptl/consult-api/pkg/logger"
)

var scheduledAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type stubGateway struct{}

func (stubGateway) CreateSession(ctx context.Context, bookingID uuid.UUID) (*meeting.Session, error) {
	return &meeting.Session{ID: "session-1", JoinURL: "https://meet.example.com/session-1"}, nil
}

func (stubGateway) JoinSession(ctx context.Context, sessionID string, userID uuid.UUID, displayName string) (*meeting.Credentials, error) {
	return &meeting.Credentials{SessionID: sessionID, Token: "tok", JoinURL: "https://meet.example.com/join"}, nil
}

func (stubGateway) EndSession(ctx context.Context, sessionID string) error { return nil }

type testEnv struct {
	engine   *gin.Engine
	store    *memory.Store
	provider *model.Provider
	client   *model.Client
}

func newEnv(t *testing.T, clock func() time.Time) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log := logger.NewLogger(nil)

	provider := &model.Provider{
		Name:  "Ada Counsel",
		Email: "ada@example.com",
		Template: model.AvailabilityTemplate{
			"Monday": {{Start: 540, End: 720}},
		},
		Pricing: model.PricingTable{"video": 100},
	}
	require.NoError(t, store.Providers().Create(context.Background(), provider))

	client := &model.Client{Name: "Grace", Email: "grace@example.com"}
	require.NoError(t, store.Clients().Create(context.Background(), client))

	availabilitySvc := availability.NewService(store.Providers(), store.Bookings())
	bookingSvc := bookingService.NewService(
		store.Providers(), store.Clients(), store.Bookings(),
		availabilitySvc, stubGateway{}, notification.NopService{}, log, nil,
	)
	consultationSvc := consultationService.NewService(
		store.Bookings(), store.Providers(), store.Clients(),
		stubGateway{}, rating.NewAggregator(store.Providers(), log, nil),
		notification.NopService{}, log, nil,
	)
	if clock != nil {
		consultationSvc = consultationSvc.WithClock(clock)
	}

	engine := gin.New()
	api := engine.Group("/api/v1")
	api.Use(middleware.Identity())
	consultationHandler.NewHandler(bookingSvc, consultationSvc).RegisterRoutes(api)

	return &testEnv{engine: engine, store: store, provider: provider, client: client}
}

func (e *testEnv) do(t *testing.T, method, path string, asUser uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asUser != uuid.Nil {
		req.Header.Set("X-User-ID", asUser.String())
	}

	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Status string                 `json:"status"`
		Kind   string                 `json:"kind"`
		Data   map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func TestCreateConsultationEndpoint(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/providers/"+env.provider.ID.String()+"/consultations", env.client.ID, gin.H{
		"type":             "video",
		"scheduled_at":     scheduledAt.Format(time.RFC3339),
		"duration_minutes": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	data := decodeData(t, rec)
	assert.Equal(t, "pending", data["status"])
	assert.Equal(t, 50.0, data["price"])
	assert.Equal(t, env.client.ID.String(), data["client_id"])
	assert.NotEmpty(t, data["session_id"])
}

func TestCreateConsultationRequiresIdentity(t *testing.T) {
	env := newEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/providers/"+env.provider.ID.String()+"/consultations", uuid.Nil, gin.H{
		"type":             "video",
		"scheduled_at":     scheduledAt.Format(time.RFC3339),
		"duration_minutes": 30,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateConsultationConflictStatus(t *testing.T) {
	env := newEnv(t, nil)

	body := gin.H{
		"type":             "video",
		"scheduled_at":     scheduledAt.Format(time.RFC3339),
		"duration_minutes": 30,
	}
	path := "/api/v1/providers/" + env.provider.ID.String() + "/consultations"

	rec := env.do(t, http.MethodPost, path, env.client.ID, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, path, env.client.ID, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SLOT_UNAVAILABLE", resp.Kind)
}

func TestConsultationLifecycleOverHTTP(t *testing.T) {
	env := newEnv(t, func() time.Time { return scheduledAt.Add(2 * time.Minute) })

	// Book.
	rec := env.do(t, http.MethodPost, "/api/v1/providers/"+env.provider.ID.String()+"/consultations", env.client.ID, gin.H{
		"type":             "video",
		"scheduled_at":     scheduledAt.Format(time.RFC3339),
		"duration_minutes": 60,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeData(t, rec)["id"].(string)

	// Confirm.
	rec = env.do(t, http.MethodPatch, "/api/v1/consultations/"+id, env.provider.ID, gin.H{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Join as client, within the window.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/consultations/%s/join", id), env.client.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	joinData := decodeData(t, rec)
	assert.NotNil(t, joinData["credentials"])

	// End as provider.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/consultations/%s/end", id), env.provider.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decodeData(t, rec)["status"])

	// Feedback from the client.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/consultations/%s/feedback", id), env.client.ID, gin.H{
		"rating":  5,
		"comment": "excellent",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Duplicate feedback conflicts.
	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/consultations/%s/feedback", id), env.client.ID, gin.H{
		"rating": 1,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// History for the client shows the completed consultation.
	rec = env.do(t, http.MethodGet, "/api/v1/consultations?status=completed", env.client.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Data, 1)
	assert.Equal(t, id, listResp.Data[0]["id"])
}

func TestJoinOutsideWindowOverHTTP(t *testing.T) {
	env := newEnv(t, func() time.Time { return scheduledAt.Add(-time.Hour) })

	booking := &model.Booking{
		ProviderID:      env.provider.ID,
		ClientID:        env.client.ID,
		Type:            "video",
		ScheduledAt:     scheduledAt,
		DurationMinutes: 60,
		Status:          model.BookingStatusConfirmed,
	}
	require.NoError(t, env.store.Bookings().CreateIfFree(context.Background(), booking))

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/consultations/%s/join", booking.ID), env.client.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "NOT_JOINABLE", resp.Kind)
}

func TestEndByStrangerForbiddenOverHTTP(t *testing.T) {
	env := newEnv(t, nil)

	booking := &model.Booking{
		ProviderID:      env.provider.ID,
		ClientID:        env.client.ID,
		Type:            "video",
		ScheduledAt:     scheduledAt,
		DurationMinutes: 60,
		Status:          model.BookingStatusActive,
	}
	require.NoError(t, env.store.Bookings().CreateIfFree(context.Background(), booking))

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/consultations/%s/end", booking.ID), uuid.New(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
