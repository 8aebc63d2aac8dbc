// Package signal defines the wire protocol spoken between peers and the
// signaling relay: a JSON envelope tagged by type, carrying a session
// identifier and a type-specific payload.
package signal

import (
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

type SessionID string

type Type string

const (
	TypeCreate     Type = "create"
	TypeJoin       Type = "join"
	TypePeerJoined Type = "peer-joined"
	TypeOffer      Type = "offer"
	TypeAnswer     Type = "answer"
	TypeCandidate  Type = "candidate"
)

// SDP mirrors an RTCSessionDescription on the wire.
type SDP struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Candidate mirrors an RTCIceCandidate on the wire.
type Candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

// Message is the relay envelope. Exactly one payload field is set,
// depending on Type; create/join/peer-joined carry none.
type Message struct {
	Type      Type       `json:"type"`
	SessionID SessionID  `json:"sessionId,omitempty"`
	Offer     *SDP       `json:"offer,omitempty"`
	Answer    *SDP       `json:"answer,omitempty"`
	Candidate *Candidate `json:"candidate,omitempty"`
}

func NewCreate(sid SessionID) Message { return Message{Type: TypeCreate, SessionID: sid} }
func NewJoin(sid SessionID) Message   { return Message{Type: TypeJoin, SessionID: sid} }

func NewPeerJoined(sid SessionID) Message {
	return Message{Type: TypePeerJoined, SessionID: sid}
}

func NewOffer(sid SessionID, desc webrtc.SessionDescription) Message {
	return Message{Type: TypeOffer, SessionID: sid, Offer: fromDescription(desc)}
}

func NewAnswer(sid SessionID, desc webrtc.SessionDescription) Message {
	return Message{Type: TypeAnswer, SessionID: sid, Answer: fromDescription(desc)}
}

func NewCandidate(sid SessionID, ci webrtc.ICECandidateInit) Message {
	return Message{
		Type:      TypeCandidate,
		SessionID: sid,
		Candidate: &Candidate{
			Candidate:     ci.Candidate,
			SDPMid:        ci.SDPMid,
			SDPMLineIndex: ci.SDPMLineIndex,
		},
	}
}

// Decode parses an envelope. Unknown types decode fine; the caller decides
// whether to drop them.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode signal message: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("decode signal message: missing type")
	}
	return m, nil
}

func (m Message) Encode() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode signal message: %w", err)
	}
	return b, nil
}

func fromDescription(desc webrtc.SessionDescription) *SDP {
	return &SDP{Type: desc.Type.String(), SDP: desc.SDP}
}

// Description converts a wire SDP payload back into a pion description.
func (s *SDP) Description() webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: webrtc.NewSDPType(s.Type), SDP: s.SDP}
}

// Init converts a wire candidate payload back into a pion candidate.
func (c *Candidate) Init() webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{
		Candidate:     c.Candidate,
		SDPMid:        c.SDPMid,
		SDPMLineIndex: c.SDPMLineIndex,
	}
}
