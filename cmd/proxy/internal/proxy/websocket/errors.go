package websocket

import (
	"context"
	"errors"

	"github.com/gobwas/ws"
)

// Bridge shutdown error types used to determine appropriate WebSocket close codes
var (
	// ErrClientClosed indicates the client closed its connection or a read from it failed
	ErrClientClosed = errors.New("client connection closed")

	// ErrClientWriteFailed indicates a message could not be written to the client
	ErrClientWriteFailed = errors.New("client write failed")

	// ErrBackendClosed indicates the backend stream ended or could not be decoded.
	// The stream has no resynchronization point, so it is never retried.
	ErrBackendClosed = errors.New("backend connection closed")

	// ErrBackendWriteFailed indicates client bytes could not be written to the backend
	ErrBackendWriteFailed = errors.New("backend write failed")

	// ErrBackendUnavailable indicates the backend could not be resolved or dialed
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrQueueOverflow indicates the outbound queue reached its configured depth
	ErrQueueOverflow = errors.New("outbound queue overflow")
)

// closeStatus returns the close code sent to the client when a bridge ends
// with err. ok is false when no close frame should be sent because the
// client is already gone or has closed first.
func closeStatus(err error) (status ws.StatusCode, ok bool) {
	switch {
	case errors.Is(err, ErrClientClosed), errors.Is(err, ErrClientWriteFailed):
		return 0, false
	case errors.Is(err, ErrBackendClosed), errors.Is(err, ErrBackendWriteFailed):
		return ws.StatusGoingAway, true
	case errors.Is(err, ErrQueueOverflow):
		return ws.StatusPolicyViolation, true
	case errors.Is(err, context.Canceled):
		return ws.StatusGoingAway, true
	default:
		return ws.StatusInternalServerError, true
	}
}

// expectedClosure reports whether err is an ordinary end of session that
// does not deserve a warning.
func expectedClosure(err error) bool {
	return errors.Is(err, ErrClientClosed) || errors.Is(err, ErrBackendClosed) || errors.Is(err, context.Canceled)
}
