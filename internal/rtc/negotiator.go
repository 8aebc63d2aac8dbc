package rtc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/Shivyyyy-git/volley-peer-app/internal/domain"
	"github.com/Shivyyyy-git/volley-peer-app/internal/signal"
)

const (
	// Relay messages can race local connection construction: a candidate
	// (or answer) may arrive before the peer connection exists. Such
	// messages are re-checked on a fixed timer up to the cap, then the
	// negotiation fails.
	connReadyRetryInterval = 100 * time.Millisecond
	connReadyRetryMax      = 20

	sessionIDLen = 7
)

// SignalSender is what the negotiator needs from the signaling client.
type SignalSender interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, msg signal.Message) error
	OnMessage(fn func(signal.Message))
}

// Negotiator turns relayed signaling messages into an established peer
// connection. Roles are asymmetric: the Initiator mints the session and
// produces the one and only offer; the Joiner answers.
type Negotiator struct {
	client    SignalSender
	webrtcCfg webrtc.Configuration
	linkBase  string

	mu        sync.Mutex
	role      domain.Role
	state     State
	sessionID signal.SessionID
	conn      *Connection
	offerSent bool
	lastErr   error

	onState       func(State)
	onRemoteTrack func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	localTracks   []webrtc.TrackLocal
}

func NewNegotiator(client SignalSender, stunURLs []string, linkBase string) *Negotiator {
	return &Negotiator{
		client:    client,
		webrtcCfg: ConfigFromURLs(stunURLs),
		linkBase:  linkBase,
		state:     StateIdle,
	}
}

// OnStateChange registers the observer. The callback runs outside the
// negotiator lock.
func (n *Negotiator) OnStateChange(fn func(State)) { n.onState = fn }

func (n *Negotiator) OnRemoteTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	n.onRemoteTrack = fn
}

// AddLocalTrack registers a track to attach to every connection this
// negotiator builds. Register before starting a flow.
func (n *Negotiator) AddLocalTrack(track webrtc.TrackLocal) {
	n.localTracks = append(n.localTracks, track)
}

func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Negotiator) SessionID() signal.SessionID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sessionID
}

// Err returns the failure cause once the state is Failed.
func (n *Negotiator) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// StartAsInitiator connects to the relay, mints a session identifier,
// publishes the shareable link and announces the session. The offer is
// created later, when the peer joins.
func (n *Negotiator) StartAsInitiator(ctx context.Context) (string, error) {
	n.setState(StateCreatingLink)

	if err := n.client.Connect(ctx); err != nil {
		n.fail(err)
		return "", err
	}

	sid := mintSessionID()
	n.mu.Lock()
	n.role = domain.RoleInitiator
	n.sessionID = sid
	n.mu.Unlock()

	n.client.OnMessage(func(msg signal.Message) { n.handleMessage(ctx, msg) })

	if err := n.client.Send(ctx, signal.NewCreate(sid)); err != nil {
		n.fail(err)
		return "", err
	}

	n.setState(StateWaitingForPeer)
	return n.linkBase + "#" + string(sid), nil
}

// StartAsJoiner connects to the relay, builds the local connection up
// front (the offer may arrive at any moment after the join goes out) and
// joins the session.
func (n *Negotiator) StartAsJoiner(ctx context.Context, sid signal.SessionID) error {
	n.setState(StateJoining)

	if err := n.client.Connect(ctx); err != nil {
		n.fail(err)
		return err
	}

	n.mu.Lock()
	n.role = domain.RoleJoiner
	n.sessionID = sid
	n.mu.Unlock()

	if _, err := n.buildConnection(ctx); err != nil {
		n.fail(err)
		return err
	}

	n.client.OnMessage(func(msg signal.Message) { n.handleMessage(ctx, msg) })

	if err := n.client.Send(ctx, signal.NewJoin(sid)); err != nil {
		n.fail(err)
		return err
	}
	return nil
}

func (n *Negotiator) handleMessage(ctx context.Context, msg signal.Message) {
	n.mu.Lock()
	sid := n.sessionID
	state := n.state
	n.mu.Unlock()
	if state == StateFailed {
		return
	}
	if msg.SessionID != "" && msg.SessionID != sid {
		return
	}

	switch msg.Type {
	case signal.TypePeerJoined:
		n.handlePeerJoined(ctx)
	case signal.TypeOffer:
		n.handleOffer(ctx, msg)
	case signal.TypeAnswer:
		n.handleAnswer(msg)
	case signal.TypeCandidate:
		n.handleCandidate(msg)
	default:
		log.Debug().Str("module", "rtc").Str("type", string(msg.Type)).Msg("ignoring signal")
	}
}

// handlePeerJoined runs on the Initiator when the Joiner shows up: build
// the connection and send the session's single offer.
func (n *Negotiator) handlePeerJoined(ctx context.Context) {
	n.mu.Lock()
	if n.role != domain.RoleInitiator || n.offerSent {
		n.mu.Unlock()
		return
	}
	n.offerSent = true
	sid := n.sessionID
	n.mu.Unlock()

	conn, err := n.buildConnection(ctx)
	if err != nil {
		n.fail(&NegotiationError{Op: "build connection", Err: err})
		return
	}
	offer, err := conn.CreateOfferAndSet()
	if err != nil {
		n.fail(&NegotiationError{Op: "create offer", Err: err})
		return
	}
	if err := n.client.Send(ctx, signal.NewOffer(sid, offer)); err != nil {
		n.fail(err)
		return
	}
	n.setState(StateNegotiating)
	log.Info().Str("module", "rtc").Str("session", string(sid)).Msg("offer sent")
}

// handleOffer runs on the Joiner. Its connection is normally built at join
// time, but an offer can still win the race, so build on demand.
func (n *Negotiator) handleOffer(ctx context.Context, msg signal.Message) {
	if msg.Offer == nil {
		return
	}
	n.mu.Lock()
	conn := n.conn
	sid := n.sessionID
	n.mu.Unlock()

	if conn == nil {
		var err error
		if conn, err = n.buildConnection(ctx); err != nil {
			n.fail(&NegotiationError{Op: "build connection", Err: err})
			return
		}
	}

	answer, err := conn.ApplyOfferAndCreateAnswer(msg.Offer.Description())
	if err != nil {
		n.fail(&NegotiationError{Op: "apply offer", Err: err})
		return
	}
	if err := n.client.Send(ctx, signal.NewAnswer(sid, answer)); err != nil {
		n.fail(err)
		return
	}
	n.setState(StateConnected)
	log.Info().Str("module", "rtc").Str("session", string(sid)).Msg("answer sent")
}

// handleAnswer runs on the Initiator. The answer is applied strictly after
// the offer was set locally; if the connection somehow is not ready yet the
// message is retried on the shared timer.
func (n *Negotiator) handleAnswer(msg signal.Message) {
	if msg.Answer == nil {
		return
	}
	desc := msg.Answer.Description()
	n.whenConnReady("apply answer", 0, func(conn *Connection) {
		if err := conn.ApplyAnswer(desc); err != nil {
			n.fail(&NegotiationError{Op: "apply answer", Err: err})
			return
		}
		n.setState(StateConnected)
	})
}

// handleCandidate tolerates candidates arriving before the connection
// exists; they are retried, never dropped. An individual candidate that
// fails to apply is logged and skipped, matching browser behavior.
func (n *Negotiator) handleCandidate(msg signal.Message) {
	if msg.Candidate == nil {
		return
	}
	ci := msg.Candidate.Init()
	n.whenConnReady("apply candidate", 0, func(conn *Connection) {
		if err := conn.AddICECandidate(ci); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("add ice candidate")
		}
	})
}

// whenConnReady runs fn once the connection exists, re-checking on a fixed
// timer up to the cap. Exhausting the cap is a NegotiationError.
func (n *Negotiator) whenConnReady(op string, attempt int, fn func(*Connection)) {
	n.mu.Lock()
	conn := n.conn
	state := n.state
	n.mu.Unlock()

	if state == StateFailed {
		return
	}
	if conn != nil {
		fn(conn)
		return
	}
	if attempt >= connReadyRetryMax {
		n.fail(&NegotiationError{Op: op, Err: errors.New("connection not ready after retries")})
		return
	}
	time.AfterFunc(connReadyRetryInterval, func() {
		n.whenConnReady(op, attempt+1, fn)
	})
}

// buildConnection constructs a fresh connection, always discarding any
// previous one first so a retry can never ride a stale handshake.
func (n *Negotiator) buildConnection(ctx context.Context) (*Connection, error) {
	n.mu.Lock()
	prev := n.conn
	n.conn = nil
	sid := n.sessionID
	n.mu.Unlock()

	if prev != nil {
		log.Info().Str("module", "rtc").Str("session", string(sid)).Msg("discarding previous connection")
		prev.Close()
	}

	conn, err := NewConnection(n.webrtcCfg, sid)
	if err != nil {
		return nil, err
	}

	conn.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		if err := n.client.Send(context.Background(), signal.NewCandidate(sid, ci)); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Msg("send candidate")
		}
	})
	conn.OnFailed(func() {
		n.fail(ErrPeerConnectionFailed)
	})
	if n.onRemoteTrack != nil {
		conn.OnTrack(n.onRemoteTrack)
	}
	for _, track := range n.localTracks {
		if _, err := conn.AddLocalTrack(track); err != nil {
			conn.Close()
			return nil, err
		}
	}

	if err := conn.Start(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	n.mu.Lock()
	n.conn = conn
	n.mu.Unlock()
	return conn, nil
}

// Close tears down the current connection. Safe from any state; the
// signaling client is owned by the caller and closed there.
func (n *Negotiator) Close() {
	n.mu.Lock()
	conn := n.conn
	n.conn = nil
	n.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (n *Negotiator) setState(s State) {
	n.mu.Lock()
	if n.state == s || n.state == StateFailed {
		n.mu.Unlock()
		return
	}
	n.state = s
	fn := n.onState
	n.mu.Unlock()

	log.Info().Str("module", "rtc").Str("state", s.String()).Msg("negotiation state")
	if fn != nil {
		fn(s)
	}
}

func (n *Negotiator) fail(err error) {
	n.mu.Lock()
	if n.state == StateFailed {
		n.mu.Unlock()
		return
	}
	n.state = StateFailed
	n.lastErr = err
	fn := n.onState
	n.mu.Unlock()

	log.Error().Err(err).Str("module", "rtc").Msg("negotiation failed")
	if fn != nil {
		fn(StateFailed)
	}
}

func mintSessionID() signal.SessionID {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return signal.SessionID(raw[:sessionIDLen])
}
