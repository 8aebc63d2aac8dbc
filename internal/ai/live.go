package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Shivyyyy-git/volley-peer-app/internal/domain"
)

const (
	liveHost      = "generativelanguage.googleapis.com"
	livePath      = "/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	liveMimeType  = "audio/pcm;rate=16000"
	setupWait     = 15 * time.Second
	liveDialWait  = 10 * time.Second
	liveWriteWait = 5 * time.Second
)

const facilitatorInstruction = "You are Kelly, a helpful and insightful peer coach. " +
	"Your goal is to listen, ask clarifying questions, and help the user achieve their goals. " +
	"Keep your responses concise and encouraging."

type setupMessage struct {
	Setup struct {
		Model            string `json:"model"`
		GenerationConfig struct {
			ResponseModalities []string `json:"responseModalities"`
			SpeechConfig       struct {
				VoiceConfig struct {
					PrebuiltVoiceConfig struct {
						VoiceName string `json:"voiceName"`
					} `json:"prebuiltVoiceConfig"`
				} `json:"voiceConfig"`
			} `json:"speechConfig"`
		} `json:"generationConfig"`
		SystemInstruction struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"systemInstruction"`
		InputAudioTranscription  struct{} `json:"inputAudioTranscription"`
		OutputAudioTranscription struct{} `json:"outputAudioTranscription"`
	} `json:"setup"`
}

type realtimeInputMessage struct {
	RealtimeInput struct {
		Audio struct {
			Data     string `json:"data"`
			MimeType string `json:"mimeType"`
		} `json:"audio"`
	} `json:"realtimeInput"`
}

type serverMessage struct {
	SetupComplete *struct{} `json:"setupComplete"`
	ServerContent *struct {
		InputTranscription *struct {
			Text string `json:"text"`
		} `json:"inputTranscription"`
		OutputTranscription *struct {
			Text string `json:"text"`
		} `json:"outputTranscription"`
		TurnComplete bool `json:"turnComplete"`
	} `json:"serverContent"`
}

// transcriptEvent is one speaker-attributed fragment decoded from a server frame.
type transcriptEvent struct {
	speaker domain.Speaker
	text    string
}

// decodeServerFrame extracts transcript fragments from one server message.
// Frames that carry neither input nor output transcription yield nothing.
func decodeServerFrame(data []byte) ([]transcriptEvent, bool, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false, fmt.Errorf("decode live frame: %w", err)
	}
	if msg.SetupComplete != nil {
		return nil, true, nil
	}
	if msg.ServerContent == nil {
		return nil, false, nil
	}
	var events []transcriptEvent
	if in := msg.ServerContent.InputTranscription; in != nil && in.Text != "" {
		events = append(events, transcriptEvent{speaker: domain.SpeakerSelf, text: in.Text})
	}
	if out := msg.ServerContent.OutputTranscription; out != nil && out.Text != "" {
		events = append(events, transcriptEvent{speaker: domain.SpeakerRemoteAgent, text: out.Text})
	}
	return events, false, nil
}

// GeminiLive is a live audio session against the BidiGenerateContent endpoint.
// One Open per instance; SendAudioChunk is safe from a single pump goroutine.
type GeminiLive struct {
	apiKey string
	model  string
	host   string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	cb     Callbacks
}

// NewGeminiLive builds a live stream client for the given model.
func NewGeminiLive(apiKey, model string) *GeminiLive {
	return &GeminiLive{apiKey: apiKey, model: model, host: liveHost}
}

func (g *GeminiLive) endpoint() string {
	u := url.URL{Scheme: "wss", Host: g.host, Path: livePath}
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

// Open dials the live endpoint, sends the session setup, and waits for the
// setup acknowledgement before returning. On success a read loop runs until
// the stream is closed.
func (g *GeminiLive) Open(ctx context.Context, cb Callbacks) error {
	dialCtx, cancel := context.WithTimeout(ctx, liveDialWait)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, g.endpoint(), nil)
	if err != nil {
		return fmt.Errorf("%w: dial: %v", ErrAIStream, err)
	}

	var setup setupMessage
	setup.Setup.Model = "models/" + g.model
	setup.Setup.GenerationConfig.ResponseModalities = []string{"AUDIO"}
	setup.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = "Zephyr"
	setup.Setup.SystemInstruction.Parts = []struct {
		Text string `json:"text"`
	}{{Text: facilitatorInstruction}}

	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(setup); err != nil {
		conn.Close()
		return fmt.Errorf("%w: setup: %v", ErrAIStream, err)
	}

	// The first server frame must be the setup acknowledgement.
	conn.SetReadDeadline(time.Now().Add(setupWait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: setup ack: %v", ErrAIStream, err)
	}
	_, ok, err := decodeServerFrame(data)
	if err != nil || !ok {
		conn.Close()
		return fmt.Errorf("%w: unexpected setup response", ErrAIStream)
	}
	conn.SetReadDeadline(time.Time{})

	g.mu.Lock()
	g.conn = conn
	g.cb = cb
	g.mu.Unlock()

	if cb.OnOpen != nil {
		cb.OnOpen()
	}
	go g.readLoop(conn, cb)
	return nil
}

func (g *GeminiLive) readLoop(conn *websocket.Conn, cb Callbacks) {
	defer func() {
		if cb.OnClose != nil {
			cb.OnClose()
		}
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			g.mu.Lock()
			closed := g.closed
			g.mu.Unlock()
			if !closed && cb.OnError != nil {
				cb.OnError(fmt.Errorf("%w: read: %v", ErrAIStream, err))
			}
			return
		}
		events, _, err := decodeServerFrame(data)
		if err != nil {
			log.Warn().Str("module", "ai").Err(err).Msg("skipping undecodable live frame")
			continue
		}
		if cb.OnTranscript != nil {
			for _, ev := range events {
				cb.OnTranscript(ev.speaker, ev.text)
			}
		}
	}
}

// SendAudioChunk forwards one PCM frame to the live session.
func (g *GeminiLive) SendAudioChunk(pcm []byte) error {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("%w: stream not open", ErrAIStream)
	}

	var msg realtimeInputMessage
	msg.RealtimeInput.Audio.Data = base64.StdEncoding.EncodeToString(pcm)
	msg.RealtimeInput.Audio.MimeType = liveMimeType

	conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("%w: send audio: %v", ErrAIStream, err)
	}
	return nil
}

// Close tears down the stream. Safe to call more than once.
func (g *GeminiLive) Close() error {
	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.closed = true
	g.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
