// Package app holds the transport-agnostic relay core: an in-memory
// registry of sessions and the fan-out rules for signaling messages.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Shivyyyy-git/volley-peer-app/internal/signal"
	"github.com/Shivyyyy-git/volley-peer-app/internal/telemetry"
)

// Endpoint is one attached transport connection. Implementations must be
// comparable (pointer identity) so the relay can exclude the sender from
// fan-out.
type Endpoint interface {
	TrySend(msg signal.Message) error
}

type sessionEntry struct {
	endpoints map[Endpoint]struct{}
	createdAt time.Time
}

// Relay brokers signaling messages between endpoints attached to the same
// session. A session exists iff it has at least one attached endpoint and
// is deleted the instant its last endpoint detaches. Membership is not
// capped.
type Relay struct {
	mu       sync.Mutex
	sessions map[signal.SessionID]*sessionEntry
	attached map[Endpoint]signal.SessionID

	metrics *telemetry.RelayMetrics
}

func NewRelay(metrics *telemetry.RelayMetrics) *Relay {
	return &Relay{
		sessions: make(map[signal.SessionID]*sessionEntry),
		attached: make(map[Endpoint]signal.SessionID),
		metrics:  metrics,
	}
}

// HandleMessage processes one inbound envelope to completion under the
// registry lock, so no partial state change for a session is ever visible.
func (r *Relay) HandleMessage(ep Endpoint, msg signal.Message) {
	switch msg.Type {
	case signal.TypeCreate:
		r.attach(ep, msg.SessionID)
	case signal.TypeJoin:
		// A join may arrive before any create; the session is created on
		// demand either way.
		r.attach(ep, msg.SessionID)
		r.broadcast(ep, signal.NewPeerJoined(msg.SessionID))
	case signal.TypeOffer, signal.TypeAnswer, signal.TypeCandidate:
		r.forward(ep, msg)
	default:
		log.Warn().Str("module", "app.relay").Str("type", string(msg.Type)).Msg("unknown signal")
	}
}

func (r *Relay) attach(ep Endpoint, sid signal.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.attached[ep]; ok && prev != sid {
		r.detachLocked(ep, prev)
	}

	sess, ok := r.sessions[sid]
	if !ok {
		sess = &sessionEntry{endpoints: make(map[Endpoint]struct{}), createdAt: time.Now()}
		r.sessions[sid] = sess
		r.metrics.SessionOpened(context.Background())
		log.Info().Str("module", "app.relay").Str("session", string(sid)).Msg("session created")
	}
	sess.endpoints[ep] = struct{}{}
	r.attached[ep] = sid
	log.Info().Str("module", "app.relay").Str("session", string(sid)).Int("members", len(sess.endpoints)).Msg("endpoint attached")
}

// forward relays offer/answer/candidate verbatim to every other endpoint in
// the session. Messages for an unknown session are dropped without any
// error back to the sender.
func (r *Relay) forward(ep Endpoint, msg signal.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[msg.SessionID]
	if !ok {
		r.metrics.MessageDropped(context.Background(), string(msg.Type))
		log.Debug().Str("module", "app.relay").Str("session", string(msg.SessionID)).Str("type", string(msg.Type)).Msg("dropped message for unknown session")
		return
	}
	r.fanOutLocked(sess, ep, msg)
}

func (r *Relay) broadcast(ep Endpoint, msg signal.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[msg.SessionID]; ok {
		r.fanOutLocked(sess, ep, msg)
	}
}

func (r *Relay) fanOutLocked(sess *sessionEntry, sender Endpoint, msg signal.Message) {
	for other := range sess.endpoints {
		if other == sender {
			continue
		}
		if err := other.TrySend(msg); err != nil {
			log.Warn().Err(err).Str("module", "app.relay").Str("session", string(msg.SessionID)).Str("type", string(msg.Type)).Msg("fan-out send failed")
			continue
		}
		r.metrics.MessageRelayed(context.Background(), string(msg.Type))
	}
}

// Detach removes the endpoint from whichever session it was attached to,
// deleting the session when its endpoint set empties. Safe to call more
// than once per endpoint.
func (r *Relay) Detach(ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sid, ok := r.attached[ep]
	if !ok {
		return
	}
	r.detachLocked(ep, sid)
}

func (r *Relay) detachLocked(ep Endpoint, sid signal.SessionID) {
	delete(r.attached, ep)
	sess, ok := r.sessions[sid]
	if !ok {
		return
	}
	delete(sess.endpoints, ep)
	if len(sess.endpoints) == 0 {
		delete(r.sessions, sid)
		r.metrics.SessionClosed(context.Background())
		log.Info().Str("module", "app.relay").Str("session", string(sid)).Msg("session deleted (empty)")
		return
	}
	log.Info().Str("module", "app.relay").Str("session", string(sid)).Int("members", len(sess.endpoints)).Msg("endpoint detached")
}

// SessionCount reports how many sessions are live. Used by the health
// endpoint and tests.
func (r *Relay) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// HasSession reports whether sid is present in the registry.
func (r *Relay) HasSession(sid signal.SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sid]
	return ok
}
