package signal_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	router "github.com/Shivyyyy-git/volley-peer-app/internal/adapters/http"
	"github.com/Shivyyyy-git/volley-peer-app/internal/app"
	"github.com/Shivyyyy-git/volley-peer-app/internal/config"
	wire "github.com/Shivyyyy-git/volley-peer-app/internal/signal"
)

func startRelay(t *testing.T) (*app.Relay, string) {
	t.Helper()
	cfg := &config.Config{
		Mode:       "release",
		StaticPath: t.TempDir(),
		ReadLimit:  32768,
		Secret:     "test-secret",
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	relay := app.NewRelay(nil)
	srv := httptest.NewServer(router.SetupRouter(ctx, cfg, relay))
	t.Cleanup(srv.Close)

	return relay, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg wire.Message) {
	t.Helper()
	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) wire.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := wire.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no message, got %s", data)
	}
}

func waitForSession(t *testing.T, relay *app.Relay, sid wire.SessionID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if relay.HasSession(sid) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("session %s never appeared", sid)
}

func TestSignalingHandshakeOverWebSocket(t *testing.T) {
	relay, url := startRelay(t)
	const sid = wire.SessionID("abc1234")

	initiator := dial(t, url)
	send(t, initiator, wire.NewCreate(sid))
	waitForSession(t, relay, sid)

	joiner := dial(t, url)
	send(t, joiner, wire.NewJoin(sid))

	if msg := recv(t, initiator); msg.Type != wire.TypePeerJoined || msg.SessionID != sid {
		t.Fatalf("initiator got %+v, want peer-joined for %s", msg, sid)
	}

	send(t, initiator, wire.Message{Type: wire.TypeOffer, SessionID: sid, Offer: &wire.SDP{Type: "offer", SDP: "v=0 fake"}})
	if msg := recv(t, joiner); msg.Type != wire.TypeOffer || msg.Offer == nil || msg.Offer.SDP != "v=0 fake" {
		t.Fatalf("joiner got %+v, want relayed offer", msg)
	}

	send(t, joiner, wire.Message{Type: wire.TypeAnswer, SessionID: sid, Answer: &wire.SDP{Type: "answer", SDP: "v=0 reply"}})
	if msg := recv(t, initiator); msg.Type != wire.TypeAnswer || msg.Answer == nil || msg.Answer.SDP != "v=0 reply" {
		t.Fatalf("initiator got %+v, want relayed answer", msg)
	}

	mid := "0"
	send(t, initiator, wire.Message{Type: wire.TypeCandidate, SessionID: sid, Candidate: &wire.Candidate{Candidate: "candidate:1 1 udp 1 10.0.0.1 1234 typ host", SDPMid: &mid}})
	if msg := recv(t, joiner); msg.Type != wire.TypeCandidate || msg.Candidate == nil {
		t.Fatalf("joiner got %+v, want relayed candidate", msg)
	}
}

func TestUnknownSessionMessagesAreDropped(t *testing.T) {
	relay, url := startRelay(t)
	const sid = wire.SessionID("abc1234")

	a := dial(t, url)
	send(t, a, wire.NewCreate(sid))
	waitForSession(t, relay, sid)

	b := dial(t, url)
	send(t, b, wire.NewJoin(sid))
	recv(t, a) // peer-joined

	send(t, b, wire.Message{Type: wire.TypeOffer, SessionID: "zzzzzzz", Offer: &wire.SDP{Type: "offer", SDP: "v=0"}})
	expectSilence(t, a)
	if relay.HasSession("zzzzzzz") {
		t.Fatal("forwarding must not create a session")
	}
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	relay, url := startRelay(t)

	conn := dial(t, url)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	// The connection must survive and keep processing frames.
	send(t, conn, wire.NewCreate("abc1234"))
	waitForSession(t, relay, "abc1234")
}

func TestSessionDeletedWhenLastEndpointLeaves(t *testing.T) {
	relay, url := startRelay(t)
	const sid = wire.SessionID("abc1234")

	conn := dial(t, url)
	send(t, conn, wire.NewCreate(sid))
	waitForSession(t, relay, sid)

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !relay.HasSession(sid) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session should be deleted after its only endpoint disconnects")
}
