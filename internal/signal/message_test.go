package signal

import (
	"testing"

	"github.com/pion/webrtc/v4"
)

func TestDecodeOffer(t *testing.T) {
	raw := `{"type":"offer","sessionId":"abc123","offer":{"type":"offer","sdp":"v=0"}}`
	m, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != TypeOffer {
		t.Fatalf("type=%q, want %q", m.Type, TypeOffer)
	}
	if m.SessionID != "abc123" {
		t.Fatalf("sessionId=%q, want abc123", m.SessionID)
	}
	if m.Offer == nil || m.Offer.SDP != "v=0" {
		t.Fatalf("offer payload=%+v, want sdp v=0", m.Offer)
	}
	desc := m.Offer.Description()
	if desc.Type != webrtc.SDPTypeOffer {
		t.Fatalf("sdp type=%v, want offer", desc.Type)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Fatal("expected error for non-JSON input")
	}
	if _, err := Decode([]byte(`{"sessionId":"x"}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestDecodeUnknownTypeTolerated(t *testing.T) {
	m, err := Decode([]byte(`{"type":"ping","sessionId":"x"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != "ping" {
		t.Fatalf("type=%q, want ping", m.Type)
	}
}

func TestCandidateRoundTrip(t *testing.T) {
	mid := "0"
	idx := uint16(0)
	ci := webrtc.ICECandidateInit{
		Candidate:     "candidate:1 1 udp 2130706431 192.0.2.1 54400 typ host",
		SDPMid:        &mid,
		SDPMLineIndex: &idx,
	}
	msg := NewCandidate("xyz", ci)
	b, err := msg.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Candidate == nil {
		t.Fatal("candidate payload missing")
	}
	back := got.Candidate.Init()
	if back.Candidate != ci.Candidate {
		t.Fatalf("candidate=%q, want %q", back.Candidate, ci.Candidate)
	}
	if back.SDPMid == nil || *back.SDPMid != mid {
		t.Fatalf("sdpMid=%v, want %q", back.SDPMid, mid)
	}
}
