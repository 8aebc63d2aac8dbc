package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Shivyyyy-git/volley-peer-app/internal/app"
	"github.com/Shivyyyy-git/volley-peer-app/internal/config"
	wire "github.com/Shivyyyy-git/volley-peer-app/internal/signal"
)

var ErrBackpressure = errors.New("backpressure")

// RelayWSController owns the WebSocket side of the relay: it upgrades
// connections, pumps frames, and feeds parsed envelopes into the broker.
type RelayWSController struct {
	Relay   *app.Relay
	Cfg     *config.Config
	Limiter *MessageRateLimiter
}

func NewRelayWSController(relay *app.Relay, cfg *config.Config) *RelayWSController {
	return &RelayWSController{
		Relay:   relay,
		Cfg:     cfg,
		Limiter: NewMessageRateLimiter(defaultMessageLimit, defaultMessageInterval),
	}
}

type wsEndpoint struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (e *wsEndpoint) TrySend(msg wire.Message) error {
	b, err := msg.Encode()
	if err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return errors.New("connection closed")
	}
	select {
	case e.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (e *wsEndpoint) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.send)
	_ = e.conn.Close()
	e.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *RelayWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	token := c.GetString("client_token")
	log.Info().Str("module", "signal").Str("client", token).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.Cfg != nil && ctl.Cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.Cfg.ReadLimit)
	}

	ep := &wsEndpoint{
		conn: ws,
		send: make(chan []byte, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, ep)
	go ctl.readPump(ctx, cancel, token, ep)
}
