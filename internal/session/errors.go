package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotJoined     = errors.New("not in a room")
	ErrAlreadyJoined = errors.New("already joining or in a room")
	ErrEmptyMessage  = errors.New("message is empty")
	ErrClosed        = errors.New("session closed")
	ErrCancelled     = errors.New("cancelled by leave")
	ErrSharePending  = errors.New("screen capture already in progress")
)

// Kind classifies session errors. None of them end the session.
type Kind string

const (
	// KindMediaAccess is a camera or microphone capture failure.
	KindMediaAccess Kind = "MediaAccessError"

	// KindPeerConnection is a relay, broker or negotiation failure.
	KindPeerConnection Kind = "PeerConnectionError"

	// KindScreenCapture is a refused or failed screen capture.
	KindScreenCapture Kind = "ScreenCaptureError"
)

type Error struct {
	Kind    Kind
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func wrapError(kind Kind, op string, err error, details string) *Error {
	return &Error{Kind: kind, Op: op, Err: err, Details: details}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsMediaAccess(err error) bool { return KindOf(err) == KindMediaAccess }

func IsPeerConnection(err error) bool { return KindOf(err) == KindPeerConnection }

func IsScreenCapture(err error) bool { return KindOf(err) == KindScreenCapture }
