package rtc

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// RemoteAudioSink drains RTP packets from a remote track so the media path
// keeps flowing for a headless peer. Counters are read by the session
// status line.
type RemoteAudioSink struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
}

func NewRemoteAudioSink() *RemoteAudioSink { return &RemoteAudioSink{} }

func (s *RemoteAudioSink) Packets() uint64 { return s.packets.Load() }
func (s *RemoteAudioSink) Bytes() uint64   { return s.bytes.Load() }

// Consume reads the track until the context ends or the track closes.
func (s *RemoteAudioSink) Consume(ctx context.Context, track *webrtc.TrackRemote) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "rtc").Msg("remote sink ctx done")
			return
		default:
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn().Err(err).Str("module", "rtc").Msg("remote sink read RTP")
			}
			return
		}
		s.tally(pkt)
	}
}

func (s *RemoteAudioSink) tally(pkt *rtp.Packet) {
	s.packets.Add(1)
	s.bytes.Add(uint64(len(pkt.Payload)))
}
