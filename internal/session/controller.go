// Package session drives one peer's end of a paired session: connection
// negotiation, the live AI stream, the audio pump, the moderated prompt
// script, transcript collection, and the post-session report.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"

	"github.com/Shivyyyy-git/volley-peer-app/internal/ai"
	"github.com/Shivyyyy-git/volley-peer-app/internal/domain"
	"github.com/Shivyyyy-git/volley-peer-app/internal/media"
	"github.com/Shivyyyy-git/volley-peer-app/internal/monitor"
	"github.com/Shivyyyy-git/volley-peer-app/internal/report"
	"github.com/Shivyyyy-git/volley-peer-app/internal/rtc"
	"github.com/Shivyyyy-git/volley-peer-app/internal/signal"
)

// ErrNotInitiator means a prompt advance was attempted by the joining peer.
var ErrNotInitiator = errors.New("session: only the initiator advances prompts")

// ErrSessionEnded means an operation arrived after teardown started.
var ErrSessionEnded = errors.New("session: already ended")

// Negotiation is the slice of the connection negotiator the controller uses.
type Negotiation interface {
	StartAsInitiator(ctx context.Context) (string, error)
	StartAsJoiner(ctx context.Context, sid signal.SessionID) error
	OnStateChange(fn func(rtc.State))
	OnRemoteTrack(fn func(ctx context.Context, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver))
	AddLocalTrack(track webrtc.TrackLocal)
	Close()
}

// Options wires the controller's collaborators.
type Options struct {
	Negotiation Negotiation
	// Signaling holds the connection to the relay; closed during teardown.
	// Optional when the negotiator owns no shared connection.
	Signaling interface{ Close() }
	Source    media.Source
	Stream    ai.LiveStream
	Reporter  ai.Reporter
	// Prompts defaults to the built-in script when empty.
	Prompts []domain.Prompt
}

// Events are the controller's notifications to the caller. All optional.
type Events struct {
	OnState      func(rtc.State)
	OnTranscript func(domain.TranscriptEntry)
	OnAlert      func(domain.RiskAlert)
	OnPrompt     func(prompt domain.Prompt, index, total int)
}

// Controller owns one session lifecycle. Safe for concurrent use.
type Controller struct {
	neg      Negotiation
	sig      interface{ Close() }
	source   media.Source
	stream   ai.LiveStream
	reporter ai.Reporter
	sink     *rtc.RemoteAudioSink
	track    *webrtc.TrackLocalStaticSample
	prompts  []domain.Prompt
	events   Events

	mu         sync.Mutex
	role       domain.Role
	transcript []domain.TranscriptEntry
	seq        int
	alert      *domain.RiskAlert
	promptIdx  int
	streamOpen bool
	ended      bool
	pumpCancel context.CancelFunc
	result     *report.SessionReport
	resultErr  error
}

// New builds a controller; Start it as initiator or joiner once.
func New(opts Options, events Events) (*Controller, error) {
	if opts.Negotiation == nil || opts.Source == nil || opts.Stream == nil || opts.Reporter == nil {
		return nil, errors.New("session: negotiation, source, stream and reporter are required")
	}
	prompts := opts.Prompts
	if len(prompts) == 0 {
		prompts = domain.DefaultPrompts()
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMU, ClockRate: 8000, Channels: 1},
		"audio", "volley-peer",
	)
	if err != nil {
		return nil, fmt.Errorf("session: local track: %w", err)
	}
	return &Controller{
		neg:      opts.Negotiation,
		sig:      opts.Signaling,
		source:   opts.Source,
		stream:   opts.Stream,
		reporter: opts.Reporter,
		sink:     rtc.NewRemoteAudioSink(),
		track:    track,
		prompts:  prompts,
		events:   events,
	}, nil
}

// StartAsInitiator begins a new session and returns the shareable link.
func (c *Controller) StartAsInitiator(ctx context.Context) (string, error) {
	c.mu.Lock()
	c.role = domain.RoleInitiator
	c.mu.Unlock()
	c.wire(ctx)
	link, err := c.neg.StartAsInitiator(ctx)
	if err != nil {
		return "", err
	}
	c.announcePrompt()
	return link, nil
}

// StartAsJoiner joins an existing session by its identifier.
func (c *Controller) StartAsJoiner(ctx context.Context, sid signal.SessionID) error {
	c.mu.Lock()
	c.role = domain.RoleJoiner
	c.mu.Unlock()
	c.wire(ctx)
	return c.neg.StartAsJoiner(ctx, sid)
}

func (c *Controller) wire(ctx context.Context) {
	c.neg.AddLocalTrack(c.track)
	c.neg.OnRemoteTrack(func(ctx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		go c.sink.Consume(ctx, track)
	})
	c.neg.OnStateChange(func(s rtc.State) {
		if c.events.OnState != nil {
			c.events.OnState(s)
		}
		if s == rtc.StateConnected {
			c.onConnected(ctx)
		}
	})
}

// onConnected opens the live stream and starts the audio pump. Runs once;
// later state transitions back through Connected do not reopen the stream.
func (c *Controller) onConnected(ctx context.Context) {
	c.mu.Lock()
	if c.streamOpen || c.ended {
		c.mu.Unlock()
		return
	}
	c.streamOpen = true
	c.mu.Unlock()

	cb := ai.Callbacks{
		OnOpen: func() {
			log.Info().Str("module", "session").Msg("live stream open")
		},
		OnTranscript: c.handleTranscript,
		OnError: func(err error) {
			log.Warn().Str("module", "session").Err(err).Msg("live stream error")
		},
		OnClose: func() {
			log.Info().Str("module", "session").Msg("live stream closed")
		},
	}
	if err := c.stream.Open(ctx, cb); err != nil {
		log.Error().Str("module", "session").Err(err).Msg("live stream open failed")
		c.mu.Lock()
		c.streamOpen = false
		c.mu.Unlock()
		return
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.pumpCancel = cancel
	c.mu.Unlock()
	go c.pumpAudio(pumpCtx)
}

// pumpAudio reads capture frames on a frame-duration ticker and tees each
// one: raw PCM to the live stream, mu-law to the peer track.
func (c *Controller) pumpAudio(ctx context.Context) {
	interval := time.Duration(media.FrameDuration * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := c.source.ReadFrame()
			if err != nil {
				log.Warn().Str("module", "session").Err(err).Msg("audio source drained")
				return
			}
			if err := c.stream.SendAudioChunk(frame); err != nil {
				log.Warn().Str("module", "session").Err(err).Msg("audio chunk dropped")
			}
			sample := pionmedia.Sample{Data: media.MuLawDownsample(frame), Duration: interval}
			if err := c.track.WriteSample(sample); err != nil {
				log.Warn().Str("module", "session").Err(err).Msg("peer track write failed")
			}
		}
	}
}

// handleTranscript appends one fragment in arrival order and scans the
// speaker's own fragments for sensitive terms. Only one alert can be
// outstanding; further matches are suppressed until it is dismissed.
func (c *Controller) handleTranscript(speaker domain.Speaker, text string) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.seq++
	entry := domain.TranscriptEntry{Speaker: speaker, Text: text, Seq: c.seq}
	c.transcript = append(c.transcript, entry)

	var alert *domain.RiskAlert
	if speaker == domain.SpeakerSelf && c.alert == nil {
		if term, ok := monitor.DetectRiskTerm(text); ok {
			c.alert = &domain.RiskAlert{
				Term:    term,
				Message: fmt.Sprintf("Privacy Alert: Detected potentially sensitive term %q.", term),
			}
			alert = c.alert
		}
	}
	c.mu.Unlock()

	if c.events.OnTranscript != nil {
		c.events.OnTranscript(entry)
	}
	if alert != nil && c.events.OnAlert != nil {
		c.events.OnAlert(*alert)
	}
}

// Alert returns the outstanding risk alert, if any.
func (c *Controller) Alert() *domain.RiskAlert {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alert == nil {
		return nil
	}
	a := *c.alert
	return &a
}

// DismissAlert clears the outstanding alert so new matches can fire again.
func (c *Controller) DismissAlert() {
	c.mu.Lock()
	c.alert = nil
	c.mu.Unlock()
}

// CurrentPrompt returns the active script entry.
func (c *Controller) CurrentPrompt() (domain.Prompt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.promptIdx >= len(c.prompts) {
		return domain.Prompt{}, false
	}
	return c.prompts[c.promptIdx], true
}

// AdvancePrompt moves the script forward. Initiator only. Advancing past
// the last prompt ends the session.
func (c *Controller) AdvancePrompt(ctx context.Context) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	if c.role != domain.RoleInitiator {
		c.mu.Unlock()
		return ErrNotInitiator
	}
	c.promptIdx++
	done := c.promptIdx >= len(c.prompts)
	c.mu.Unlock()

	if done {
		_, err := c.EndSession(ctx)
		return err
	}
	c.announcePrompt()
	return nil
}

func (c *Controller) announcePrompt() {
	c.mu.Lock()
	idx, total := c.promptIdx, len(c.prompts)
	var p domain.Prompt
	if idx < total {
		p = c.prompts[idx]
	}
	c.mu.Unlock()
	if idx < total && c.events.OnPrompt != nil {
		c.events.OnPrompt(p, idx, total)
	}
}

// Transcript returns a copy of the fragments collected so far.
func (c *Controller) Transcript() []domain.TranscriptEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.TranscriptEntry, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// EndSession tears the session down and hands the transcript off for report
// generation. Every teardown step always runs; individual failures are
// logged, not fatal. Later calls return the first call's result.
func (c *Controller) EndSession(ctx context.Context) (*report.SessionReport, error) {
	c.mu.Lock()
	if c.ended {
		res, err := c.result, c.resultErr
		c.mu.Unlock()
		return res, err
	}
	c.ended = true
	cancel := c.pumpCancel
	c.pumpCancel = nil
	entries := make([]domain.TranscriptEntry, len(c.transcript))
	copy(entries, c.transcript)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := c.source.Close(); err != nil {
		log.Warn().Str("module", "session").Err(err).Msg("source close failed")
	}
	if err := c.stream.Close(); err != nil {
		log.Warn().Str("module", "session").Err(err).Msg("live stream close failed")
	}
	c.neg.Close()
	if c.sig != nil {
		c.sig.Close()
	}

	res, err := c.reporter.Generate(ctx, FlattenTranscript(entries))
	c.mu.Lock()
	c.result, c.resultErr = res, err
	c.mu.Unlock()
	return res, err
}

// FlattenTranscript renders fragments as newline-joined labeled lines, the
// form the report generator expects.
func FlattenTranscript(entries []domain.TranscriptEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Speaker.Label())
		b.WriteString(": ")
		b.WriteString(e.Text)
	}
	return b.String()
}

// RemotePackets reports how many RTP packets arrived from the peer.
func (c *Controller) RemotePackets() uint64 { return c.sink.Packets() }
