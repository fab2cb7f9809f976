// Package meeting defines the contract with the external meeting
// collaborator that hosts live consultation sessions.
package meeting

import (
	"context"

	"github.com/google/uuid"
)

// Session is a meeting created for a remote consultation.
type Session struct {
	ID      string `json:"session_id"`
	JoinURL string `json:"join_url"`
}

// Credentials let one participant enter a running session.
type Credentials struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	JoinURL   string `json:"join_url"`
}

// Gateway is the remote meeting collaborator. Every method is a
// fallible remote call; failures surface as MeetingGatewayError.
type Gateway interface {
	CreateSession(ctx context.Context, bookingID uuid.UUID) (*Session, error)
	JoinSession(ctx context.Context, sessionID string, userID uuid.UUID, displayName string) (*Credentials, error)
	EndSession(ctx context.Context, sessionID string) error
}
