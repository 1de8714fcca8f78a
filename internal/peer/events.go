package peer

import (
	"fmt"

	"github.com/BioHazard786/huddle/internal/media"
)

// Handle is one media call with a remote peer.
type Handle interface {
	// RemoteID is the identity of the peer on the other end.
	RemoteID() string

	// Answer accepts an inbound call, sending stream's tracks.
	Answer(stream *media.Stream) error

	// ReplaceVideoTrack swaps the outgoing video track without renegotiating.
	// A nil track sends nothing.
	ReplaceVideoTrack(track media.Track) error

	// Close hangs up. It is safe to call more than once.
	Close() error
}

// Event is something the peer layer reports to its owner.
type Event interface {
	peerEvent()
}

// Open reports the identity the broker assigned to us.
type Open struct {
	ID string
}

// IncomingCall is a call offered by a remote peer, not yet answered.
type IncomingCall struct {
	Call Handle
}

// CallStream reports media received on a call. It may be delivered more than
// once for the same stream as tracks arrive.
type CallStream struct {
	Call   Handle
	Stream *media.Stream
}

// CallClosed reports that a call ended, locally or remotely.
type CallClosed struct {
	Call Handle
}

// ErrorKind classifies peer layer failures.
type ErrorKind string

const (
	ErrorPeerUnavailable ErrorKind = "peer-unavailable"
	ErrorNegotiation     ErrorKind = "negotiation"
	ErrorServer          ErrorKind = "server-error"
	ErrorDisconnected    ErrorKind = "disconnected"
)

// Error reports a failure that does not end the session.
type Error struct {
	Kind   ErrorKind
	PeerID string
	Err    error
}

func (e Error) Error() string {
	if e.PeerID != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.PeerID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

func (Open) peerEvent()         {}
func (IncomingCall) peerEvent() {}
func (CallStream) peerEvent()   {}
func (CallClosed) peerEvent()   {}
func (Error) peerEvent()        {}
