package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/Shivyyyy-git/volley-peer-app/internal/ai"
	"github.com/Shivyyyy-git/volley-peer-app/internal/domain"
	"github.com/Shivyyyy-git/volley-peer-app/internal/media"
	"github.com/Shivyyyy-git/volley-peer-app/internal/report"
	"github.com/Shivyyyy-git/volley-peer-app/internal/rtc"
	"github.com/Shivyyyy-git/volley-peer-app/internal/signal"
)

type fakeNegotiation struct {
	mu      sync.Mutex
	stateFn func(rtc.State)
	closes  int
	started bool
}

func (f *fakeNegotiation) StartAsInitiator(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return "https://volley.test/#abc1234", nil
}

func (f *fakeNegotiation) StartAsJoiner(ctx context.Context, sid signal.SessionID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return nil
}

func (f *fakeNegotiation) OnStateChange(fn func(rtc.State)) {
	f.mu.Lock()
	f.stateFn = fn
	f.mu.Unlock()
}

func (f *fakeNegotiation) OnRemoteTrack(fn func(context.Context, *webrtc.TrackRemote, *webrtc.RTPReceiver)) {
}

func (f *fakeNegotiation) AddLocalTrack(track webrtc.TrackLocal) {}

func (f *fakeNegotiation) Close() {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
}

func (f *fakeNegotiation) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeNegotiation) fire(s rtc.State) {
	f.mu.Lock()
	fn := f.stateFn
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

type fakeStream struct {
	mu     sync.Mutex
	cb     ai.Callbacks
	opens  int
	closes int
	chunks int
}

func (f *fakeStream) Open(ctx context.Context, cb ai.Callbacks) error {
	f.mu.Lock()
	f.cb = cb
	f.opens++
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) SendAudioChunk(pcm []byte) error {
	f.mu.Lock()
	f.chunks++
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) counts() (opens, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens, f.closes
}

func (f *fakeStream) transcript(speaker domain.Speaker, text string) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb.OnTranscript != nil {
		cb.OnTranscript(speaker, text)
	}
}

type fakeReporter struct {
	mu         sync.Mutex
	calls      int
	transcript string
	out        *report.SessionReport
}

func (f *fakeReporter) Generate(ctx context.Context, transcript string) (*report.SessionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.transcript = transcript
	if f.out == nil {
		f.out = &report.SessionReport{Summary: "ok"}
	}
	return f.out, nil
}

type closeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *closeCounter) Close() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func newTestController(t *testing.T) (*Controller, *fakeNegotiation, *fakeStream, *fakeReporter, *closeCounter) {
	t.Helper()
	neg := &fakeNegotiation{}
	stream := &fakeStream{}
	rep := &fakeReporter{}
	sig := &closeCounter{}
	ctrl, err := New(Options{
		Negotiation: neg,
		Signaling:   sig,
		Source:      &media.SilenceSource{},
		Stream:      stream,
		Reporter:    rep,
	}, Events{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ctrl, neg, stream, rep, sig
}

func TestStartAsInitiatorReturnsLink(t *testing.T) {
	ctrl, _, _, _, _ := newTestController(t)
	link, err := ctrl.StartAsInitiator(context.Background())
	if err != nil {
		t.Fatalf("StartAsInitiator: %v", err)
	}
	if !strings.Contains(link, "#") {
		t.Fatalf("link %q has no fragment", link)
	}
}

func TestEndSessionIdempotent(t *testing.T) {
	ctrl, neg, stream, rep, sig := newTestController(t)
	if _, err := ctrl.StartAsInitiator(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	neg.fire(rtc.StateConnected)

	first, err := ctrl.EndSession(context.Background())
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	second, err := ctrl.EndSession(context.Background())
	if err != nil {
		t.Fatalf("second EndSession: %v", err)
	}
	if first != second {
		t.Fatal("second call should return the first result")
	}
	if n := neg.closeCount(); n != 1 {
		t.Fatalf("negotiation closed %d times", n)
	}
	if _, closes := stream.counts(); closes != 1 {
		t.Fatalf("stream closed %d times", closes)
	}
	sig.mu.Lock()
	sigCloses := sig.n
	sig.mu.Unlock()
	if sigCloses != 1 {
		t.Fatalf("signaling closed %d times", sigCloses)
	}
	rep.mu.Lock()
	repCalls := rep.calls
	rep.mu.Unlock()
	if repCalls != 1 {
		t.Fatalf("reporter called %d times", repCalls)
	}
}

func TestEndSessionFlattensTranscript(t *testing.T) {
	ctrl, neg, stream, rep, _ := newTestController(t)
	if _, err := ctrl.StartAsInitiator(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	neg.fire(rtc.StateConnected)
	stream.transcript(domain.SpeakerSelf, "I shipped the feature")
	stream.transcript(domain.SpeakerRemoteAgent, "That is great progress")

	if _, err := ctrl.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	want := "You: I shipped the feature\nKelly: That is great progress"
	rep.mu.Lock()
	got := rep.transcript
	rep.mu.Unlock()
	if got != want {
		t.Fatalf("transcript = %q, want %q", got, want)
	}
}

func TestAdvancePromptInitiatorOnly(t *testing.T) {
	ctrl, _, _, _, _ := newTestController(t)
	if err := ctrl.StartAsJoiner(context.Background(), "abc1234"); err != nil {
		t.Fatalf("StartAsJoiner: %v", err)
	}
	if err := ctrl.AdvancePrompt(context.Background()); !errors.Is(err, ErrNotInitiator) {
		t.Fatalf("expected ErrNotInitiator, got %v", err)
	}
}

func TestAdvancePromptExhaustionEndsSession(t *testing.T) {
	ctrl, _, _, rep, _ := newTestController(t)
	if _, err := ctrl.StartAsInitiator(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	total := len(domain.DefaultPrompts())
	for i := 0; i < total; i++ {
		if _, ok := ctrl.CurrentPrompt(); !ok {
			t.Fatalf("prompt %d missing", i)
		}
		if err := ctrl.AdvancePrompt(context.Background()); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}
	rep.mu.Lock()
	repCalls := rep.calls
	rep.mu.Unlock()
	if repCalls != 1 {
		t.Fatalf("expected report after script exhaustion, got %d calls", repCalls)
	}
	if err := ctrl.AdvancePrompt(context.Background()); !errors.Is(err, ErrSessionEnded) {
		t.Fatalf("expected ErrSessionEnded, got %v", err)
	}
}

func TestRiskAlertSuppression(t *testing.T) {
	ctrl, neg, stream, _, _ := newTestController(t)
	if _, err := ctrl.StartAsInitiator(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	neg.fire(rtc.StateConnected)

	stream.transcript(domain.SpeakerSelf, "let me tell you my password")
	alert := ctrl.Alert()
	if alert == nil || alert.Term != "password" {
		t.Fatalf("expected password alert, got %+v", alert)
	}

	stream.transcript(domain.SpeakerSelf, "and my credit card number")
	if got := ctrl.Alert(); got == nil || got.Term != "password" {
		t.Fatalf("new match should be suppressed, got %+v", got)
	}

	ctrl.DismissAlert()
	if ctrl.Alert() != nil {
		t.Fatal("alert should be cleared")
	}

	stream.transcript(domain.SpeakerSelf, "here is my credit card")
	if got := ctrl.Alert(); got == nil || got.Term != "credit card" {
		t.Fatalf("expected credit card alert after dismiss, got %+v", got)
	}
}

func TestRemoteAgentSpeechNeverAlerts(t *testing.T) {
	ctrl, neg, stream, _, _ := newTestController(t)
	if _, err := ctrl.StartAsInitiator(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	neg.fire(rtc.StateConnected)

	stream.transcript(domain.SpeakerRemoteAgent, "never share your password with anyone")
	if got := ctrl.Alert(); got != nil {
		t.Fatalf("coach speech must not alert, got %+v", got)
	}
}

func TestConnectedTwiceOpensStreamOnce(t *testing.T) {
	ctrl, neg, stream, _, _ := newTestController(t)
	if _, err := ctrl.StartAsInitiator(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	neg.fire(rtc.StateConnected)
	neg.fire(rtc.StateConnected)
	if opens, _ := stream.counts(); opens != 1 {
		t.Fatalf("stream opened %d times", opens)
	}
	if _, err := ctrl.EndSession(context.Background()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
}
