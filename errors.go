package auth

import (
	"errors"

	"github.com/emberbase/auth/token"
)

var (
	// ErrInvalidState is returned when a continuation token is malformed,
	// expired, presented for the wrong flow, or its recorded step does not
	// match the request.
	ErrInvalidState = token.ErrInvalidState
	// ErrSubmitPromptRejected is returned when a factor rejects the
	// submitted sign-in or setup value.
	ErrSubmitPromptRejected = errors.New("prompt submission rejected")
	// ErrSubmitValidationCodeRejected is returned when a factor rejects the
	// submitted validation code.
	ErrSubmitValidationCodeRejected = errors.New("validation code rejected")
	// ErrSendPrompt is returned when the factor lacks the send capability or
	// delivery failed.
	ErrSendPrompt = errors.New("prompt delivery failed")
	// ErrSendValidationCode is returned when the factor lacks the validation
	// capability or code delivery failed.
	ErrSendValidationCode = errors.New("validation code delivery failed")
	// ErrRefreshToken is returned when a refresh token is invalid, expired,
	// or its session no longer exists.
	ErrRefreshToken = errors.New("refresh token rejected")
	// ErrAccessToken is returned by Introspect when an access token is
	// invalid, expired, or its session was revoked.
	ErrAccessToken = errors.New("access token rejected")
	// ErrRateLimited is returned when the window counter for the operation
	// is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrForbidden is returned when verification resolves to an identity
	// different from the one pinned in state.
	ErrForbidden = errors.New("identity mismatch")
	// ErrUnknownComponent is returned when a ceremony references a component
	// id with no registered provider.
	ErrUnknownComponent = errors.New("unknown ceremony component")
	// ErrBackendUnavailable wraps storage, Redis, or publisher failures that
	// are not part of the taxonomy above.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is returned when an Engine method is called on a nil
	// or incompletely built engine.
	ErrEngineNotReady = errors.New("engine not ready")
)
