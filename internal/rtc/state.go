package rtc

// State is the negotiation lifecycle, owned exclusively by the Negotiator.
// Connected and Failed are terminal; Failed is never retried here, a retry
// is a user-initiated new session.
type State int

const (
	StateIdle State = iota
	StateCreatingLink
	StateWaitingForPeer
	StateJoining
	StateNegotiating
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreatingLink:
		return "creating-link"
	case StateWaitingForPeer:
		return "waiting-for-peer"
	case StateJoining:
		return "joining"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the state machine has stopped.
func (s State) Terminal() bool {
	return s == StateConnected || s == StateFailed
}
