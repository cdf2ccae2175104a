package handler

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quietline/quietline/internal/usecase/bridge"
	"github.com/quietline/quietline/pkg/mediastream"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The telephony provider connects server-to-server; there is no browser
	// origin to check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EngineFactory builds one speech engine client per call.
type EngineFactory func() bridge.EngineClient

// Stream terminates the telephony media-stream websocket and drives one
// bridge session per connection.
type Stream struct {
	registry  *bridge.Registry
	store     bridge.CallStore
	newEngine EngineFactory
	logger    *zap.Logger
}

// NewStreamHandler creates a new media-stream handler
func NewStreamHandler(registry *bridge.Registry, store bridge.CallStore, newEngine EngineFactory, logger *zap.Logger) *Stream {
	return &Stream{registry: registry, store: store, newEngine: newEngine, logger: logger}
}

// telephonyConn serializes writes to the websocket; the session's relay and
// the handler never write concurrently without it.
type telephonyConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (t *telephonyConn) WriteMessage(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *telephonyConn) closeWith(code int, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	_ = t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = t.conn.Close()
}

// Handle upgrades the connection and runs the telephony read loop.
// GET /v1/stream
func (h *Stream) Handle(c echo.Context) error {
	conn, err := streamUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}

	tel := &telephonyConn{conn: conn}
	var session *bridge.Session
	skipped := 0

	defer func() {
		if session != nil {
			session.TelephonyClosed()
		}
		_ = conn.Close()
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if session != nil {
				h.logger.Info("telephony connection closed", zap.Error(err))
			}
			return nil
		}

		ev, err := mediastream.Decode(frame)
		if err != nil {
			if errors.Is(err, mediastream.ErrNotDecodable) {
				skipped++
				h.logger.Debug("skipping undecodable telephony frame",
					zap.Int("skipped_total", skipped))
				continue
			}
			continue
		}

		switch ev.Kind {
		case mediastream.KindConnected:
			h.logger.Debug("telephony handshake",
				zap.String("protocol", ev.Protocol),
				zap.String("version", ev.Version))

		case mediastream.KindStart:
			session = h.startSession(c, tel, ev.Start)
			if session == nil {
				return nil
			}

		case mediastream.KindMedia:
			if session != nil {
				session.HandleMedia(ev.Media)
			}

		case mediastream.KindStop:
			if session != nil {
				session.HandleStop()
			}
			return nil

		case mediastream.KindMark:
			if session != nil {
				session.HandleMark(ev.Mark.Name)
			}
		}
	}
}

// startSession registers and starts a bridge session for a start event. On
// an engine connect failure the telephony socket is closed with an explicit
// non-default close code and nil is returned.
func (h *Stream) startSession(c echo.Context, tel *telephonyConn, start *mediastream.StartInfo) *bridge.Session {
	h.logger.Info("media stream started",
		zap.String("stream_id", start.StreamID),
		zap.String("external_call_id", start.ExternalCallID),
		zap.String("encoding", start.AudioFormat.Encoding))

	session := bridge.NewSession(
		start.StreamID,
		start.ExternalCallID,
		tel,
		h.newEngine(),
		h.store,
		h.registry,
		h.logger,
	)

	registered, created := h.registry.Register(session)
	if !created {
		// Same stream id announced twice; keep the existing session.
		return registered
	}

	if err := session.Start(c.Request().Context()); err != nil {
		h.registry.Unregister(session.StreamID)
		tel.closeWith(websocket.CloseInternalServerErr, "failed to initialize")
		return nil
	}
	return session
}
