package rtc

import (
	"errors"
	"fmt"
)

// ErrPeerConnectionFailed means the transport reported a failed or
// disconnected state. It ends the session; there is no automatic retry.
var ErrPeerConnectionFailed = errors.New("peer connection failed")

// NegotiationError wraps an offer/answer/candidate application failure.
type NegotiationError struct {
	Op  string
	Err error
}

func (e *NegotiationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("negotiation: %s failed", e.Op)
	}
	return fmt.Sprintf("negotiation: %s: %v", e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }
