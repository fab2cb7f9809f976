package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/pkg/circuitbreaker"
	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
	"github.com/jwalitptl/consult-api/pkg/metrics"
)

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient talks to the meeting provider's REST API. Calls go through
// a circuit breaker so a flapping meeting backend fails fast instead of
// holding booking requests open.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cb      *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
}

func NewHTTPClient(cfg ClientConfig, m *metrics.Metrics) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "meeting-gateway",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
		}),
		metrics: m,
	}
}

func (c *HTTPClient) CreateSession(ctx context.Context, bookingID uuid.UUID) (*Session, error) {
	var session Session
	err := c.call(ctx, "create", http.MethodPost, "/v1/sessions", map[string]interface{}{
		"booking_id": bookingID,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *HTTPClient) JoinSession(ctx context.Context, sessionID string, userID uuid.UUID, displayName string) (*Credentials, error) {
	var creds Credentials
	path := fmt.Sprintf("/v1/sessions/%s/join", sessionID)
	err := c.call(ctx, "join", http.MethodPost, path, map[string]interface{}{
		"user_id":      userID,
		"display_name": displayName,
	}, &creds)
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

func (c *HTTPClient) EndSession(ctx context.Context, sessionID string) error {
	path := fmt.Sprintf("/v1/sessions/%s/end", sessionID)
	return c.call(ctx, "end", http.MethodPost, path, nil, nil)
}

func (c *HTTPClient) call(ctx context.Context, operation, method, path string, body, out interface{}) error {
	start := time.Now()

	err := c.cb.Execute(func() error {
		return c.do(ctx, method, path, body, out)
	})

	if c.metrics != nil {
		c.metrics.GatewayLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		result := "ok"
		if err != nil {
			result = "error"
		}
		c.metrics.GatewayCalls.WithLabelValues(operation, result).Inc()
	}

	if err != nil {
		return apperrors.MeetingGateway(err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("meeting API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("meeting API returned %d: %s", resp.StatusCode, data)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode meeting API response: %w", err)
		}
	}
	return nil
}
