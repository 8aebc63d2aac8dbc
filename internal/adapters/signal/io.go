package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	wire "github.com/Shivyyyy-git/volley-peer-app/internal/signal"
)

func (ctl *RelayWSController) writePump(ctx context.Context, e *wsEndpoint) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-e.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := e.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := e.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *RelayWSController) readPump(ctx context.Context, cancel context.CancelFunc, token string, e *wsEndpoint) {
	defer func() {
		log.Info().Str("module", "signal").Str("client", token).Msg("readPump closing")
		ctl.Relay.Detach(e)
		ctl.Limiter.Forget(e)
		cancel()
		e.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("client", token).Msg("readPump ctx done")
			return
		default:
			_, data, err := e.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("client", token).Msg("readPump read error")
				return
			}
			ctl.handleFrame(token, e, data)
		}
	}
}

// handleFrame parses one inbound frame. Malformed payloads are logged and
// discarded; the connection stays open.
func (ctl *RelayWSController) handleFrame(token string, e *wsEndpoint, data []byte) {
	msg, err := wire.Decode(data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("client", token).Msg("bad json")
		return
	}
	if !ctl.Limiter.Allow(e) {
		log.Warn().Str("module", "signal").Str("client", token).Str("type", string(msg.Type)).Msg("rate limited, dropping")
		return
	}
	ctl.Relay.HandleMessage(e, msg)
}
