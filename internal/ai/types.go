// Package ai streams session audio to the Gemini Live API and produces a
// post-session report via the genai SDK.
package ai

import (
	"context"
	"errors"

	"github.com/Shivyyyy-git/volley-peer-app/internal/domain"
	"github.com/Shivyyyy-git/volley-peer-app/internal/report"
)

var (
	// ErrAIStream wraps failures on the live audio stream.
	ErrAIStream = errors.New("ai live stream error")
	// ErrReportGeneration wraps failures while generating the session report.
	ErrReportGeneration = errors.New("report generation failed")
)

// Callbacks receives asynchronous events from a live stream. All fields are
// optional; nil callbacks are skipped.
type Callbacks struct {
	OnOpen       func()
	OnTranscript func(speaker domain.Speaker, text string)
	OnError      func(err error)
	OnClose      func()
}

// LiveStream is a bidirectional audio session with the AI facilitator.
type LiveStream interface {
	Open(ctx context.Context, cb Callbacks) error
	SendAudioChunk(pcm []byte) error
	Close() error
}

// Reporter turns a completed session transcript into a structured report.
type Reporter interface {
	Generate(ctx context.Context, transcript string) (*report.SessionReport, error)
}
