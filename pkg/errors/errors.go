package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, machine-readable error classification.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindSlotUnavailable   Kind = "SLOT_UNAVAILABLE"
	KindInvalidTransition Kind = "INVALID_TRANSITION"
	KindNotJoinable       Kind = "NOT_JOINABLE"
	KindForbidden         Kind = "FORBIDDEN"
	KindMeetingGateway    Kind = "MEETING_GATEWAY_ERROR"
	KindFeedbackExists    Kind = "FEEDBACK_ALREADY_SUBMITTED"
	KindInternal          Kind = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors
func NotFound(resource string, err error) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Validation(message string, err error) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: message,
		Err:     err,
	}
}

func SlotUnavailable(message string) *AppError {
	return &AppError{
		Kind:    KindSlotUnavailable,
		Message: message,
	}
}

func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot transition consultation from %s to %s", from, to),
	}
}

func NotJoinable(message string) *AppError {
	return &AppError{
		Kind:    KindNotJoinable,
		Message: message,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Kind:    KindForbidden,
		Message: message,
	}
}

func MeetingGateway(err error) *AppError {
	return &AppError{
		Kind:    KindMeetingGateway,
		Message: "meeting gateway request failed",
		Err:     err,
	}
}

func FeedbackAlreadySubmitted() *AppError {
	return &AppError{
		Kind:    KindFeedbackExists,
		Message: "feedback has already been submitted for this consultation",
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Message: "internal error",
		Err:     err,
	}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error kind to its HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindNotJoinable:
		return http.StatusBadRequest
	case KindSlotUnavailable, KindInvalidTransition, KindFeedbackExists:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindMeetingGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
