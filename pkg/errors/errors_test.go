package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("provider", nil)))
	assert.Equal(t, KindSlotUnavailable, KindOf(SlotUnavailable("taken")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain error")))
	assert.Equal(t, KindInternal, KindOf(nil))

	// Classification survives wrapping.
	wrapped := fmt.Errorf("handling request: %w", Forbidden("not yours"))
	assert.Equal(t, KindForbidden, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindForbidden))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := MeetingGateway(cause)

	assert.Contains(t, err.Error(), "meeting gateway request failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, errors.Unwrap(err))

	bare := SlotUnavailable("taken")
	assert.Equal(t, "taken", bare.Error())
	assert.Nil(t, errors.Unwrap(bare))
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := InvalidTransition("completed", "confirmed")
	assert.Equal(t, "cannot transition consultation from completed to confirmed", err.Message)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{NotFound("booking", nil), http.StatusNotFound},
		{Validation("bad input", nil), http.StatusBadRequest},
		{NotJoinable("too early"), http.StatusBadRequest},
		{SlotUnavailable("taken"), http.StatusConflict},
		{InvalidTransition("pending", "completed"), http.StatusConflict},
		{FeedbackAlreadySubmitted(), http.StatusConflict},
		{Forbidden("not yours"), http.StatusForbidden},
		{MeetingGateway(errors.New("down")), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.status, HTTPStatus(tc.err), "unexpected status for %v", tc.err)
	}
}
